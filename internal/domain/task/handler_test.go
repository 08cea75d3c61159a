package task

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinsched/clinsched/internal/domain/catalog"
)

func doRequest(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	api := e.Group("/api/v1")
	h.RegisterRoutes(api)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlerUpdateStatus(t *testing.T) {
	f := newEngineFixture(t)
	f.createChain(t)
	h := NewHandler(f.engine)

	consult := f.repo.byType(f.surgeryID, catalog.TaskConsultation)
	rec := doRequest(h, http.MethodPatch, "/api/v1/tasks/"+consult.ID.String()+"/status",
		`{"status":"COMPLETED","completed_by":"dr.maier"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated Task
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", updated.Status)
	}
}

func TestHandlerUpdateStatus_DependencyNotMetIs422(t *testing.T) {
	f := newEngineFixture(t)
	f.createChain(t)
	h := NewHandler(f.engine)

	blood := f.repo.byType(f.surgeryID, catalog.TaskBloodwork)
	rec := doRequest(h, http.MethodPatch, "/api/v1/tasks/"+blood.ID.String()+"/status",
		`{"status":"COMPLETED"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandlerUpdateStatus_MissingStatus(t *testing.T) {
	f := newEngineFixture(t)
	f.createChain(t)
	h := NewHandler(f.engine)

	consult := f.repo.byType(f.surgeryID, catalog.TaskConsultation)
	rec := doRequest(h, http.MethodPatch, "/api/v1/tasks/"+consult.ID.String()+"/status", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerTimeline(t *testing.T) {
	f := newEngineFixture(t)
	f.createChain(t)
	h := NewHandler(f.engine)

	rec := doRequest(h, http.MethodGet, "/api/v1/surgeries/"+f.surgeryID.String()+"/timeline", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Tasks []Task `json:"tasks"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != len(catalog.TaskTemplates()) {
		t.Errorf("count = %d, want %d", resp.Count, len(catalog.TaskTemplates()))
	}
}

func TestHandlerTimeline_BadID(t *testing.T) {
	f := newEngineFixture(t)
	h := NewHandler(f.engine)

	rec := doRequest(h, http.MethodGet, "/api/v1/surgeries/nope/timeline", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
