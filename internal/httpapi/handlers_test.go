package httpapi

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/erauner12/groceries/internal/model"
)

func TestHealthz(t *testing.T) {
	_, router := newTestServer(t)

	rec := makeRequest(t, router, "GET", "/healthz", nil, "")
	if rec.Code != 200 || rec.Body.String() != "ok" {
		t.Fatalf("healthz: got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected generated X-Correlation-ID")
	}
}

func TestInfo(t *testing.T) {
	_, router := newTestServer(t)

	rec := makeRequest(t, router, "GET", "/api/info", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("info: got %d", rec.Code)
	}
	info := decodeResponse[ServerInfo](t, rec)
	if info.APIVersion != APIVersion {
		t.Errorf("apiVersion: got %q", info.APIVersion)
	}
	if info.Heartbeat != 30 {
		t.Errorf("heartbeatSeconds: got %d", info.Heartbeat)
	}
	if info.RateLimit != nil {
		t.Error("rateLimit should be omitted when disabled")
	}
}

func TestCategoryHandlers(t *testing.T) {
	srv, router := newTestServer(t)
	events, unsubscribe := srv.Hub.Subscribe()
	defer unsubscribe()

	// Body change id is used when no header is sent.
	rec := makeRequest(t, router, "POST", "/api/categories", map[string]string{"name": " Dairy ", "changeId": "c-1"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d %s", rec.Code, rec.Body.String())
	}
	dairy := decodeResponse[model.Category](t, rec)
	if dairy.Name != "Dairy" || dairy.SortOrder != 1 {
		t.Errorf("create: got %+v", dairy)
	}
	ev := nextEvent(t, events)
	if ev.Type != model.EventCategoryCreated || ev.ChangeID != "c-1" {
		t.Errorf("create broadcast: got %s %q", ev.Type, ev.ChangeID)
	}

	rec = makeRequest(t, router, "POST", "/api/categories", map[string]string{"name": "Dairy"}, "c-2")
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", rec.Code)
	}
	if got := decodeResponse[errorResponse](t, rec).Error; got != "Category name already exists" {
		t.Errorf("duplicate message: got %q", got)
	}

	rec = makeRequest(t, router, "POST", "/api/categories", map[string]string{"name": "  "}, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty name: expected 400, got %d", rec.Code)
	}
	rec = makeRequest(t, router, "POST", "/api/categories", "{not json", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON: expected 400, got %d", rec.Code)
	}
	assertNoEvent(t, events)

	// Header wins over body.
	path := "/api/categories/" + strconv.FormatInt(dairy.ID, 10)
	rec = makeRequest(t, router, "PUT", path, map[string]string{"name": "Dairy & Eggs", "changeId": "body"}, "header")
	if rec.Code != http.StatusOK {
		t.Fatalf("update: got %d %s", rec.Code, rec.Body.String())
	}
	ev = nextEvent(t, events)
	if ev.Type != model.EventCategoryUpdated || ev.ChangeID != "header" {
		t.Errorf("update broadcast: got %s %q", ev.Type, ev.ChangeID)
	}

	rec = makeRequest(t, router, "PUT", "/api/categories/999", map[string]string{"name": "x"}, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing: expected 404, got %d", rec.Code)
	}
	rec = makeRequest(t, router, "PUT", "/api/categories/abc", map[string]string{"name": "x"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rec.Code)
	}

	// In use.
	rec = makeRequest(t, router, "POST", "/api/items", map[string]any{"name": "milk", "category_id": dairy.ID}, "i-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create item: got %d", rec.Code)
	}
	item := decodeResponse[model.Item](t, rec)
	nextEvent(t, events)

	rec = makeRequest(t, router, "DELETE", path, nil, "d-1")
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete in use: expected 409, got %d", rec.Code)
	}
	inUse := decodeResponse[errorResponse](t, rec)
	if inUse.Error != "Cannot delete category with items" || inUse.ItemCount != 1 {
		t.Errorf("delete in use body: got %+v", inUse)
	}

	makeRequest(t, router, "DELETE", "/api/items/"+strconv.FormatInt(item.ID, 10), nil, "")
	nextEvent(t, events)

	rec = makeRequest(t, router, "DELETE", path, nil, "d-2")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	ev = nextEvent(t, events)
	var ref model.DeletedRef
	if err := ev.DecodeData(&ref); err != nil || ev.Type != model.EventCategoryDeleted || ref.ID != dairy.ID || ev.ChangeID != "d-2" {
		t.Errorf("delete broadcast: got %s %s %q", ev.Type, ev.Data, ev.ChangeID)
	}
}

func TestReorderCategories(t *testing.T) {
	srv, router := newTestServer(t)
	a, _ := srv.Repo.CreateCategory(t.Context(), "A")
	b, _ := srv.Repo.CreateCategory(t.Context(), "B")

	events, unsubscribe := srv.Hub.Subscribe()
	defer unsubscribe()

	rec := makeRequest(t, router, "PUT", "/api/categories/reorder", map[string]string{"id": "1"}, "r-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("object body: expected 400, got %d", rec.Code)
	}
	if got := decodeResponse[errorResponse](t, rec).Error; got != "Request body must be an array" {
		t.Errorf("object body message: got %q", got)
	}

	order := model.DenseOrder([]int64{b.ID, a.ID})
	rec = makeRequest(t, router, "PUT", "/api/categories/reorder", order, "r-2")
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder: got %d %s", rec.Code, rec.Body.String())
	}
	cats := decodeResponse[[]model.Category](t, rec)
	if len(cats) != 2 || cats[0].ID != b.ID {
		t.Errorf("reorder result: got %+v", cats)
	}

	ev := nextEvent(t, events)
	var broadcast []model.Category
	if err := ev.DecodeData(&broadcast); err != nil || ev.Type != model.EventCategoriesReordered || ev.ChangeID != "r-2" {
		t.Fatalf("reorder broadcast: got %s %q (%v)", ev.Type, ev.ChangeID, err)
	}
	if len(broadcast) != 2 || broadcast[0].Name != "B" {
		t.Errorf("reorder broadcast data: got %+v", broadcast)
	}
}

func TestItemHandlers(t *testing.T) {
	srv, router := newTestServer(t)
	events, unsubscribe := srv.Hub.Subscribe()
	defer unsubscribe()

	rec := makeRequest(t, router, "POST", "/api/items", map[string]any{"name": "bread", "amount": "2"}, "c-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d %s", rec.Code, rec.Body.String())
	}
	bread := decodeResponse[model.Item](t, rec)
	if ev := nextEvent(t, events); ev.Type != model.EventItemCreated || ev.ChangeID != "c-1" {
		t.Errorf("create broadcast: got %s %q", ev.Type, ev.ChangeID)
	}

	path := "/api/items/" + strconv.FormatInt(bread.ID, 10)

	rec = makeRequest(t, router, "PUT", path, map[string]any{"name": "rye bread", "changeId": "u-1"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("update: got %d", rec.Code)
	}
	if got := decodeResponse[model.Item](t, rec); got.Name != "rye bread" {
		t.Errorf("update: got %q", got.Name)
	}
	if ev := nextEvent(t, events); ev.Type != model.EventItemUpdated || ev.ChangeID != "u-1" {
		t.Errorf("update broadcast: got %s %q", ev.Type, ev.ChangeID)
	}

	rec = makeRequest(t, router, "PATCH", path+"/check", map[string]any{"changeId": "t-0"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing checked: expected 400, got %d", rec.Code)
	}
	if got := decodeResponse[errorResponse](t, rec).Error; got != "checked must be a boolean" {
		t.Errorf("missing checked message: got %q", got)
	}

	rec = makeRequest(t, router, "PATCH", path+"/check", map[string]any{"checked": true, "changeId": "t-1"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: got %d", rec.Code)
	}
	if got := decodeResponse[model.Item](t, rec); !bool(got.Checked) {
		t.Error("toggle: expected checked")
	}
	if ev := nextEvent(t, events); ev.Type != model.EventItemUpdated || ev.ChangeID != "t-1" {
		t.Errorf("toggle broadcast: got %s %q", ev.Type, ev.ChangeID)
	}

	rec = makeRequest(t, router, "PATCH", "/api/items/999/check", map[string]any{"checked": true}, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("toggle missing: expected 404, got %d", rec.Code)
	}
	if got := decodeResponse[errorResponse](t, rec).Error; got != "Item not found" {
		t.Errorf("toggle missing message: got %q", got)
	}

	rec = makeRequest(t, router, "DELETE", "/api/items/checked", nil, "dc-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete checked: got %d", rec.Code)
	}
	resp := decodeResponse[deleteCheckedResponse](t, rec)
	if resp.DeletedCount != 1 || resp.Message == "" {
		t.Errorf("delete checked body: got %+v", resp)
	}
	ev := nextEvent(t, events)
	var dc model.DeletedChecked
	if err := ev.DecodeData(&dc); err != nil || ev.Type != model.EventItemsDeletedChecked || dc.DeletedCount != 1 || ev.ChangeID != "dc-1" {
		t.Errorf("delete checked broadcast: got %s %s %q", ev.Type, ev.Data, ev.ChangeID)
	}

	rec = makeRequest(t, router, "DELETE", path, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete already removed: expected 404, got %d", rec.Code)
	}

	rec = makeRequest(t, router, "GET", "/api/items", nil, "")
	if items := decodeResponse[[]model.Item](t, rec); len(items) != 0 {
		t.Errorf("list: expected empty, got %d", len(items))
	}
}

func TestRecipeHandlers(t *testing.T) {
	srv, router := newTestServer(t)
	events, unsubscribe := srv.Hub.Subscribe()
	defer unsubscribe()

	rec := makeRequest(t, router, "POST", "/api/recipes", map[string]any{
		"name": "Pancakes",
		"ingredients": []map[string]any{
			{"name": "flour", "amount": "200g"},
			{"name": "eggs", "amount": "2"},
		},
	}, "r-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d %s", rec.Code, rec.Body.String())
	}
	recipe := decodeResponse[model.Recipe](t, rec)
	if len(recipe.Ingredients) != 2 {
		t.Fatalf("create: expected 2 ingredients, got %d", len(recipe.Ingredients))
	}
	if ev := nextEvent(t, events); ev.Type != model.EventRecipeCreated || ev.ChangeID != "r-1" {
		t.Errorf("create broadcast: got %s %q", ev.Type, ev.ChangeID)
	}

	path := "/api/recipes/" + strconv.FormatInt(recipe.ID, 10)

	rec = makeRequest(t, router, "GET", path, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: got %d", rec.Code)
	}

	rec = makeRequest(t, router, "POST", path+"/add-to-list", map[string]string{"changeId": "a-1"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("add to list: got %d %s", rec.Code, rec.Body.String())
	}
	added := decodeResponse[addToListResponse](t, rec)
	if added.ItemsAdded != 2 || len(added.Items) != 2 {
		t.Errorf("add to list: got %+v", added)
	}
	for i := 0; i < 2; i++ {
		ev := nextEvent(t, events)
		if ev.Type != model.EventItemCreated || ev.ChangeID != "a-1" {
			t.Errorf("add to list broadcast %d: got %s %q", i, ev.Type, ev.ChangeID)
		}
	}

	rec = makeRequest(t, router, "PUT", path, map[string]any{"name": "Water"}, "u-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("update: got %d", rec.Code)
	}
	nextEvent(t, events)

	rec = makeRequest(t, router, "POST", path+"/add-to-list", nil, "a-2")
	if rec.Code != http.StatusNotFound {
		t.Errorf("add empty recipe: expected 404, got %d", rec.Code)
	}
	assertNoEvent(t, events)

	rec = makeRequest(t, router, "DELETE", path, nil, "d-1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rec.Code)
	}
	if ev := nextEvent(t, events); ev.Type != model.EventRecipeDeleted || ev.ChangeID != "d-1" {
		t.Errorf("delete broadcast: got %s %q", ev.Type, ev.ChangeID)
	}

	rec = makeRequest(t, router, "GET", path, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted: expected 404, got %d", rec.Code)
	}
}
