package repo

import (
	"errors"
	"fmt"
)

// ErrDuplicateName is returned when a category name is already taken.
var ErrDuplicateName = errors.New("category name already exists")

// NotFoundError indicates that the addressed record does not exist
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// ValidationError indicates a request the repository refuses to store
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// CategoryInUseError indicates a category delete refused because items
// still reference it
type CategoryInUseError struct {
	ItemCount int
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("Cannot delete category with items (%d)", e.ItemCount)
}

// NoIngredientsError is returned when a recipe has nothing to add to the
// list. A missing recipe reports the same way.
type NoIngredientsError struct {
	RecipeID int64
}

func (e *NoIngredientsError) Error() string {
	return "Recipe not found or has no ingredients"
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	var ni *NoIngredientsError
	return errors.As(err, &nf) || errors.As(err, &ni)
}
