package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/starford/othala/internal/recordservice"
	"github.com/starford/othala/internal/testutil"
)

// testEnv sets up a temp store, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode; a non-empty one means token mode.
func testEnv(t *testing.T, authToken string) (*recordservice.Service, http.Handler) {
	t.Helper()
	svc := testutil.TestService(t, nil)
	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createTask(t *testing.T, router http.Handler, base, title string) Record {
	t.Helper()
	w := do(t, router, http.MethodPost, "/records/task", map[string]any{
		"base":    base,
		"payload": map[string]any{"title": title},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var rec Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return rec
}

func listTasks(t *testing.T, router http.Handler, base string) []Record {
	t.Helper()
	w := do(t, router, http.MethodGet, "/records/task?base="+url.QueryEscape(base), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RecordListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return resp.Records
}

func TestCreateReadListDelete(t *testing.T) {
	_, router := testEnv(t, "")

	rec := createTask(t, router, "project-1", "x")
	if rec.ID == "" || rec.CreatedAt == "" || rec.ID != rec.Address {
		t.Fatalf("unexpected record: %+v", rec)
	}

	w := do(t, router, http.MethodGet, "/records/task/"+rec.ID.String()+"?created_at="+url.QueryEscape(rec.CreatedAt.String()), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("read status = %d", w.Code)
	}
	var got Record
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.CreatedAt != rec.CreatedAt || got.Address != rec.Address {
		t.Errorf("read = %+v, want %+v", got, rec)
	}

	list := listTasks(t, router, "project-1")
	if len(list) != 1 {
		t.Fatalf("list len = %d, want 1", len(list))
	}
	var payload struct {
		Title string `json:"title"`
	}
	_ = json.Unmarshal(list[0].Payload, &payload)
	if payload.Title != "x" {
		t.Errorf("title = %q, want x", payload.Title)
	}

	q := url.Values{"base": {"project-1"}, "created_at": {rec.CreatedAt.String()}, "address": {rec.Address.String()}}
	w = do(t, router, http.MethodDelete, "/records/task/"+rec.ID.String()+"?"+q.Encode(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body.String())
	}
	var del AddressResponse
	_ = json.Unmarshal(w.Body.Bytes(), &del)
	if del.Address != rec.Address {
		t.Errorf("deleted address = %s", del.Address)
	}
	if list := listTasks(t, router, "project-1"); len(list) != 0 {
		t.Errorf("list after delete = %+v", list)
	}

	// Deleting again is a 404.
	w = do(t, router, http.MethodDelete, "/records/task/"+rec.ID.String()+"?"+q.Encode(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestUpdateAndVersions(t *testing.T) {
	_, router := testEnv(t, "")
	rec := createTask(t, router, "b", "draft")

	w := do(t, router, http.MethodPut, "/records/task/"+rec.ID.String(), map[string]any{
		"created_at": rec.CreatedAt,
		"address":    rec.Address,
		"payload":    map[string]any{"title": "final", "done": true},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var upd Record
	_ = json.Unmarshal(w.Body.Bytes(), &upd)
	if upd.Address == rec.Address {
		t.Error("update must produce a new address")
	}

	list := listTasks(t, router, "b")
	if len(list) != 1 || list[0].Address != upd.Address {
		t.Errorf("list after update = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/records/task/"+rec.ID.String()+"/versions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("versions status = %d", w.Code)
	}
	var vr VersionsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &vr)
	if len(vr.Versions) != 1 || vr.Versions[0].Target != upd.Address {
		t.Errorf("versions = %+v", vr.Versions)
	}

	// The superseded handle no longer matches a live link.
	w = do(t, router, http.MethodPut, "/records/task/"+rec.ID.String(), map[string]any{
		"created_at": rec.CreatedAt,
		"address":    rec.Address,
		"payload":    map[string]any{"title": "again"},
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("stale update = %d, want 404", w.Code)
	}
}

func TestRebase(t *testing.T) {
	_, router := testEnv(t, "")
	rec := createTask(t, router, "A", "mover")

	w := do(t, router, http.MethodPost, "/records/task/"+rec.ID.String()+"/rebase", map[string]any{
		"base_from":  "A",
		"base_to":    "B",
		"created_at": rec.CreatedAt,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("rebase status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(listTasks(t, router, "A")) != 0 {
		t.Error("record still listed under A")
	}
	inB := listTasks(t, router, "B")
	if len(inB) != 1 || inB[0].Address != rec.Address || inB[0].CreatedAt != rec.CreatedAt {
		t.Errorf("B = %+v", inB)
	}

	w = do(t, router, http.MethodPost, "/records/task/"+rec.ID.String()+"/rebase", map[string]any{
		"base_from":  "A",
		"base_to":    "B",
		"created_at": rec.CreatedAt,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("second rebase = %d, want 404", w.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	_, router := testEnv(t, "")

	cases := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"missing title", http.MethodPost, "/records/task", map[string]any{"base": "b", "payload": map[string]any{}}, http.StatusBadRequest},
		{"missing base", http.MethodPost, "/records/task", map[string]any{"payload": map[string]any{"title": "x"}}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/records/task", map[string]any{"base": "b", "payload": map[string]any{"title": "x", "color": "red"}}, http.StatusBadRequest},
		{"bad column uuid", http.MethodPost, "/records/column", map[string]any{"base": "b", "payload": map[string]any{"uuid": "nope", "title": "todo"}}, http.StatusBadRequest},
		{"list without base", http.MethodGet, "/records/task", nil, http.StatusBadRequest},
		{"malformed id", http.MethodGet, "/records/task/not-an-address?created_at=2024-01-01T00:00:00Z", nil, http.StatusBadRequest},
		{"unknown kind", http.MethodGet, "/records/widget?base=b", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, tc.method, tc.target, tc.body)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestInvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/records/task", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestReadRecord_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	missing := "0000000000000000000000000000000000000000000000000000000000000000"
	w := do(t, router, http.MethodGet, "/records/task/"+missing+"?created_at=2024-01-01T00:00:00Z", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestReadRecord_MalformedCreatedAt(t *testing.T) {
	_, router := testEnv(t, "")
	rec := createTask(t, router, "b", "stamped")
	for _, q := range []string{"", "?created_at=yesterday"} {
		w := do(t, router, http.MethodGet, "/records/task/"+rec.ID.String()+q, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("GET %q: status = %d, want 400", q, w.Code)
		}
	}
}

func TestKindsAndAgent(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/kinds", nil)
	var kinds KindListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &kinds)
	if w.Code != http.StatusOK || len(kinds.Kinds) != 4 {
		t.Errorf("kinds = %d %+v", w.Code, kinds)
	}

	w = do(t, router, http.MethodGet, "/agent", nil)
	var agent AddressResponse
	_ = json.Unmarshal(w.Body.Bytes(), &agent)
	if agent.Address != testutil.TestAgent {
		t.Errorf("agent = %q", agent.Address)
	}
}

func TestAnchorEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	createTask(t, router, "p1", "a")
	createTask(t, router, "p2", "b")

	w := do(t, router, http.MethodGet, "/anchors/types", nil)
	var types AnchorTypesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &types)
	if len(types.Tags) != 1 || types.Tags[0] != "tasks" {
		t.Errorf("types = %+v", types)
	}

	w = do(t, router, http.MethodGet, "/anchors/types/addresses", nil)
	var typeAddrs AnchorAddressesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &typeAddrs)
	if len(typeAddrs.Addresses) != 1 {
		t.Errorf("type addresses = %+v", typeAddrs)
	}

	w = do(t, router, http.MethodGet, "/anchors/tasks/tags", nil)
	var tags AnchorTypesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &tags)
	if len(tags.Tags) != 2 || tags.Tags[0] != "p1" || tags.Tags[1] != "p2" {
		t.Errorf("tags = %+v", tags)
	}

	w = do(t, router, http.MethodGet, "/anchors/tasks/addresses", nil)
	var addrs AnchorAddressesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &addrs)
	if len(addrs.Addresses) != 2 {
		t.Errorf("addresses = %+v", addrs)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]any{"base": "b", "payload": map[string]any{"title": "auth"}})
	req := httptest.NewRequest(http.MethodPost, "/records/task", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/kinds", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/kinds", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/kinds", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	// No token → 401.
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	router := testEnvWithSSE(t, false, "")

	// Disabled mode → should not 401. SSE handler will write 200 and block,
	// so we cancel the context after a short time.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// testEnvWithSSE creates a router with a dummy SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	svc := testutil.TestService(t, nil)

	// Minimal SSE handler stub: writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	return NewRouter(svc, authEnabled, token, sseHandler)
}
