package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/thirukguru/aws-posture/service/finding"
	"github.com/thirukguru/aws-posture/service/storage"
	"github.com/thirukguru/aws-posture/shared/compliance"
)

//go:embed dashboard.html
var dashboardHTML []byte

// categoryCount is one row of the per-scan category breakdown.
type categoryCount struct {
	Category string   `json:"category"`
	Severity string   `json:"severity"`
	Count    int      `json:"count"`
	Controls []string `json:"controls"`
}

// dashboardFinding is a stored finding with its compliance controls.
type dashboardFinding struct {
	Category string            `json:"category"`
	Severity string            `json:"severity"`
	Subject  string            `json:"subject"`
	Status   string            `json:"status"`
	Detail   map[string]string `json:"detail"`
	Controls []string          `json:"controls"`
}

func runDashboardCommand(args []string) error {
	fs := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
	dbPath := fs.String("db-path", "", "SQLite database path")
	port := fs.Int("port", 8080, "Dashboard HTTP port")
	accountID := fs.String("account-id", "", "AWS account ID filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewService(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	addr := fmt.Sprintf(":%d", *port)
	fmt.Printf("Dashboard running on http://localhost%s\n", addr)
	return http.ListenAndServe(addr, newDashboardHandler(store, *accountID))
}

func newDashboardHandler(store storage.Service, accountID string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(dashboardHTML)
	})
	mux.HandleFunc("/api/trends", func(w http.ResponseWriter, r *http.Request) {
		days := 30
		if raw := r.URL.Query().Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "days must be a positive integer", http.StatusBadRequest)
				return
			}
			days = n
		}
		points, err := store.GetTrends(accountID, days)
		writeJSON(w, points, err)
	})
	mux.HandleFunc("/api/scans", func(w http.ResponseWriter, _ *http.Request) {
		scans, err := store.GetRecentScans(accountID, 50)
		writeJSON(w, scans, err)
	})
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		scanID, ok := scanIDParam(w, r)
		if !ok {
			return
		}
		counts, err := store.GetCategoryCounts(scanID)
		writeJSON(w, categoryBreakdown(counts), err)
	})
	mux.HandleFunc("/api/findings", func(w http.ResponseWriter, r *http.Request) {
		scanID, ok := scanIDParam(w, r)
		if !ok {
			return
		}
		stored, err := store.ListFindings(scanID)
		writeJSON(w, dashboardFindings(stored), err)
	})
	return mux
}

func scanIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("scan_id")
	if raw == "" {
		http.Error(w, "scan_id is required", http.StatusBadRequest)
		return 0, false
	}
	scanID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return scanID, true
}

// categoryBreakdown lists every category in report order, zero counts
// included, so the page always shows the full rule set.
func categoryBreakdown(counts map[string]int) []categoryCount {
	out := make([]categoryCount, 0, len(finding.Categories))
	for _, c := range finding.Categories {
		out = append(out, categoryCount{
			Category: string(c),
			Severity: finding.Severity(c),
			Count:    counts[string(c)],
			Controls: compliance.IDs(c),
		})
	}
	return out
}

func dashboardFindings(stored []storage.FindingSnapshot) []dashboardFinding {
	out := make([]dashboardFinding, 0, len(stored))
	for _, f := range stored {
		out = append(out, dashboardFinding{
			Category: f.Category,
			Severity: f.Severity,
			Subject:  f.Subject,
			Status:   f.Status,
			Detail:   f.Detail,
			Controls: compliance.IDs(finding.Category(f.Category)),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
