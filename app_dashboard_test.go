package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/thirukguru/aws-posture/service/storage"
)

func TestDashboardCategoriesCoverEveryRule(t *testing.T) {
	store := &mockStorage{counts: map[string]int{"NoMfa": 2, "OpenCriticalPort": 1}}
	rr := httptest.NewRecorder()
	newDashboardHandler(store, "").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/categories?scan_id=7", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var rows []categoryCount
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(rows) != 9 {
		t.Fatalf("expected all 9 rules, got %d", len(rows))
	}
	byCategory := map[string]categoryCount{}
	for _, r := range rows {
		byCategory[r.Category] = r
	}
	if byCategory["NoMfa"].Count != 2 || byCategory["OpenCriticalPort"].Count != 1 || byCategory["PublicInstance"].Count != 0 {
		t.Fatalf("unexpected counts: %+v", rows)
	}
	if byCategory["OpenCriticalPort"].Severity != "CRITICAL" || len(byCategory["OpenCriticalPort"].Controls) == 0 {
		t.Fatalf("expected severity and controls on OpenCriticalPort: %+v", byCategory["OpenCriticalPort"])
	}
}

func TestDashboardFindingsDrillDown(t *testing.T) {
	store := &mockStorage{findings: []storage.FindingSnapshot{
		{Category: "AdminViaGroup", Severity: "HIGH", Subject: "bob", Status: storage.StatusOpen, Detail: map[string]string{"group": "admins", "policy": "AdministratorAccess"}},
	}}
	rr := httptest.NewRecorder()
	newDashboardHandler(store, "").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/findings?scan_id=1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var rows []dashboardFinding
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Subject != "bob" || rows[0].Detail["group"] != "admins" || len(rows[0].Controls) == 0 {
		t.Fatalf("unexpected findings: %+v", rows)
	}
}

func TestDashboardRejectsBadScanID(t *testing.T) {
	handler := newDashboardHandler(&mockStorage{}, "")
	for _, url := range []string{"/api/findings", "/api/categories?scan_id=abc", "/api/trends?days=0"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", url, rr.Code)
		}
	}
}

func TestDashboardServesPage(t *testing.T) {
	handler := newDashboardHandler(&mockStorage{}, "")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "/api/categories?scan_id=") {
		t.Fatalf("unexpected page response %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", rr.Code)
	}
}
