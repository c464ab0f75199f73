package tracking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func TestRegisterViewerUpserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO viewers`).
		WithArgs("alex", "DE", 30, "developer").
		WillReturnRows(pgxmock.NewRows([]string{"id", "visits"}).AddRow("v1", int64(3)))

	handler := NewHandler(mock)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/viewers",
		strings.NewReader(`{"name":"alex","country":"DE","age":30,"occupation":"developer"}`))
	handler.RegisterViewer(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID     string `json:"id"`
		Visits int64  `json:"visits"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Visits != 3 {
		t.Errorf("expected 3 visits, got %d", resp.Visits)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestRegisterViewerRequiresNameAndCountry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	handler := NewHandler(mock)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/viewers", strings.NewReader(`{"name":"alex"}`))
	handler.RegisterViewer(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSetReminder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectExec(`UPDATE viewers SET reminders_set = \$3`).
		WithArgs("alex", "DE", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	handler := NewHandler(mock)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/viewers/reminder",
		strings.NewReader(`{"name":"alex","country":"DE","enabled":true}`))
	handler.SetReminder(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestMetricsAggregates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(pgxmock.NewRows([]string{"viewers", "visits", "routines", "plays", "reminders"}).
			AddRow(int64(12), int64(80), int64(5), int64(200), int64(4)))

	handler := NewHandler(mock)
	rec := httptest.NewRecorder()
	handler.Metrics(rec, httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var m metricsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if m.TotalPlays != 200 {
		t.Errorf("expected 200 total plays, got %d", m.TotalPlays)
	}
	if m.RemindersSet != 4 {
		t.Errorf("expected 4 reminders, got %d", m.RemindersSet)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestListViewers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	lastSeen := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, name, country, age, occupation, visits, reminders_set, last_seen`).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "country", "age", "occupation", "visits", "reminders_set", "last_seen",
		}).
			AddRow("v1", "alex", "DE", 30, "developer", int64(7), true, &lastSeen).
			AddRow("v2", "sam", "SE", 0, "", int64(1), false, (*time.Time)(nil)))

	handler := NewHandler(mock)
	rec := httptest.NewRecorder()
	handler.ListViewers(rec, httptest.NewRequest(http.MethodGet, "/api/admin/viewers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var viewers []Viewer
	if err := json.Unmarshal(rec.Body.Bytes(), &viewers); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(viewers) != 2 {
		t.Fatalf("expected 2 viewers, got %d", len(viewers))
	}
	if viewers[0].Name != "alex" || viewers[0].Visits != 7 || !viewers[0].RemindersSet {
		t.Errorf("unexpected first viewer: %+v", viewers[0])
	}
	if viewers[1].LastSeen != nil {
		t.Errorf("expected never-seen viewer to omit lastSeen, got %v", viewers[1].LastSeen)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}
