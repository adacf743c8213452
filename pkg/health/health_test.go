package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestRunWorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"all up", map[string]Check{"index": PingCheck(pinger{}, true)}, StatusUp},
		{"degraded", map[string]Check{
			"index": PingCheck(pinger{}, true),
			"redis": PingCheck(pinger{errors.New("refused")}, false),
		}, StatusDegraded},
		{"down", map[string]Check{
			"feedback": PingCheck(pinger{errors.New("locked")}, true),
			"redis":    PingCheck(pinger{errors.New("refused")}, false),
		}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for n, ch := range tt.checks {
				c.Register(n, ch)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %v", report.Components)
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("feedback", PingCheck(pinger{errors.New("locked")}, true))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Components["feedback"].Message != "locked" {
		t.Errorf("report = %+v", report)
	}

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live code = %d", rec.Code)
	}
}
