package project

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/pixora/pixora/backend-go/internal/auth"
	"github.com/pixora/pixora/backend-go/internal/plan"
)

func newTestRouter(h *Handler, userID string) http.Handler {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.ContextWithUserID(req.Context(), userID)))
		})
	})
	r.HandleFunc("/api/me", h.Me).Methods("GET")
	r.HandleFunc("/api/projects", h.List).Methods("GET")
	r.HandleFunc("/api/projects", h.Create).Methods("POST")
	r.HandleFunc("/api/projects/{projectId}", h.Get).Methods("GET")
	r.HandleFunc("/api/projects/{projectId}", h.Update).Methods("PATCH")
	r.HandleFunc("/api/projects/{projectId}", h.Delete).Methods("DELETE")
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerLifecycle(t *testing.T) {
	svc, store := newTestService()
	store.addUser("user_a", plan.TierFree)
	router := newTestRouter(NewHandler(svc), "user_a")

	rec := do(t, router, "POST", "/api/projects", `{"title":"Poster","width":1080,"height":1350}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var created Project
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = do(t, router, "PATCH", "/api/projects/"+created.ID, `{"title":"Poster v2"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Poster v2") {
		t.Errorf("patch = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, router, "GET", "/api/projects", "")
	var list []Project
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 || list[0].Width != 1080 {
		t.Errorf("list = %+v", list)
	}

	rec = do(t, router, "DELETE", "/api/projects/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec = do(t, router, "GET", "/api/projects/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	svc, store := newTestService()
	store.addUser("user_a", plan.TierFree)
	store.addUser("user_b", plan.TierFree)
	for i := 0; i < 3; i++ {
		create(t, svc, "user_a", "p")
	}
	mine := create(t, svc, "user_b", "b's")
	router := newTestRouter(NewHandler(svc), "user_a")

	rec := do(t, router, "POST", "/api/projects", `{"title":"one too many","width":800,"height":600}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("quota status = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["code"] != "quota_exceeded" || body["error"] != plan.ProjectLimitReason(3) {
		t.Errorf("quota body = %v", body)
	}

	if rec := do(t, router, "GET", "/api/projects/"+mine.ID, ""); rec.Code != http.StatusForbidden {
		t.Errorf("foreign get status = %d", rec.Code)
	}
	if rec := do(t, router, "POST", "/api/projects", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", rec.Code)
	}
	if rec := do(t, router, "PATCH", "/api/projects/"+mine.ID, `{"title":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty title status = %d", rec.Code)
	}
}

func TestHandlerMe(t *testing.T) {
	svc, store := newTestService()
	store.addUser("user_a", plan.TierFree)
	router := newTestRouter(NewHandler(svc), "user_a")

	rec := do(t, router, "GET", "/api/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	var acct Account
	if err := json.Unmarshal(rec.Body.Bytes(), &acct); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if acct.Plan != plan.TierFree || acct.ProjectLimit != 3 {
		t.Errorf("account = %+v", acct)
	}
}
