package availability

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*Handler, *resolverFixture) {
	t.Helper()
	f := newResolverFixture(t)
	svc := NewService(f.templates, f.resources)
	return NewHandler(svc, f.resolver), f
}

func doRequest(h *Handler, method, target string, body string) *httptest.ResponseRecorder {
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

func TestHandlerCreateTemplate(t *testing.T) {
	h, f := newTestHandler(t)

	body := fmt.Sprintf(`{"resource_id":%q,"location":"vienna","weekday":3,"start_time":"08:00","end_time":"16:00","active":true}`, f.surgeonID)
	rec := doRequest(h, http.MethodPost, "/api/v1/templates", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created Template
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("expected generated template id")
	}
}

func TestHandlerCreateTemplate_InvalidWindow(t *testing.T) {
	h, f := newTestHandler(t)

	body := fmt.Sprintf(`{"resource_id":%q,"location":"vienna","weekday":3,"start_time":"16:00","end_time":"08:00"}`, f.surgeonID)
	rec := doRequest(h, http.MethodPost, "/api/v1/templates", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerGetTemplate_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/v1/templates/"+uuid.NewString(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandlerGetTemplate_BadID(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/v1/templates/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerListTemplates_RequiresResourceID(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/v1/templates", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerCreateResource(t *testing.T) {
	h, _ := newTestHandler(t)

	body := `{"name":"Dr. Conrad","role":"anesthesiologist","location":"vienna","calendar_id":"cal-conrad","active":true}`
	rec := doRequest(h, http.MethodPost, "/api/v1/resources", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandlerCreateResource_InvalidRole(t *testing.T) {
	h, _ := newTestHandler(t)

	body := `{"name":"Dr. X","role":"nurse","location":"vienna","calendar_id":"c"}`
	rec := doRequest(h, http.MethodPost, "/api/v1/resources", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerCheckAvailability(t *testing.T) {
	h, f := newTestHandler(t)

	start := f.monday(10, 0).Format("2006-01-02T15:04:05Z07:00")
	end := f.monday(10, 30).Format("2006-01-02T15:04:05Z07:00")
	target := fmt.Sprintf("/api/v1/availability/check?resource_id=%s&location=vienna&start=%s&end=%s",
		f.surgeonID, urlEscape(start), urlEscape(end))

	rec := doRequest(h, http.MethodGet, target, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["available"] != true {
		t.Errorf("expected available=true, got %v", resp)
	}
}

func TestHandlerCheckAvailability_OutsideHours(t *testing.T) {
	h, f := newTestHandler(t)

	start := f.monday(7, 0).Format("2006-01-02T15:04:05Z07:00")
	end := f.monday(7, 30).Format("2006-01-02T15:04:05Z07:00")
	target := fmt.Sprintf("/api/v1/availability/check?resource_id=%s&location=vienna&start=%s&end=%s",
		f.surgeonID, urlEscape(start), urlEscape(end))

	rec := doRequest(h, http.MethodGet, target, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["available"] != false {
		t.Errorf("expected available=false, got %v", resp)
	}
	if resp["reason"] != ReasonOutsideWorkingHours {
		t.Errorf("expected reason %q, got %v", ReasonOutsideWorkingHours, resp["reason"])
	}
}

func TestHandlerCheckAvailability_BadStart(t *testing.T) {
	h, f := newTestHandler(t)

	target := fmt.Sprintf("/api/v1/availability/check?resource_id=%s&location=vienna&start=yesterday&end=tomorrow", f.surgeonID)
	rec := doRequest(h, http.MethodGet, target, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerAvailableSlots(t *testing.T) {
	h, f := newTestHandler(t)

	target := fmt.Sprintf("/api/v1/availability/slots?resource_id=%s&location=vienna&from=2026-09-07&to=2026-09-07&duration=60", f.surgeonID)
	rec := doRequest(h, http.MethodGet, target, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Slots []TimeSlot `json:"slots"`
		Count int        `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 3 {
		t.Errorf("expected 3 slots, got %d", resp.Count)
	}
}

func TestHandlerAvailableSlots_BadDuration(t *testing.T) {
	h, f := newTestHandler(t)

	target := fmt.Sprintf("/api/v1/availability/slots?resource_id=%s&location=vienna&from=2026-09-07&to=2026-09-07&duration=-5", f.surgeonID)
	rec := doRequest(h, http.MethodGet, target, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func urlEscape(s string) string {
	return url.QueryEscape(s)
}
