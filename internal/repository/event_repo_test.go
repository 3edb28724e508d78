package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
)

var eventCols = []string{"id", "occurred_at", "type", "message", "meta"}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newEventRepo(t *testing.T) (*EventSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewEventSQLite(db), mock
}

type argFunc func(v driver.Value) bool

func (f argFunc) Match(v driver.Value) bool { return f(v) }

func TestAppend_Success_WithDefaults(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	isUUID := argFunc(func(v driver.Value) bool {
		s, ok := v.(string)
		return ok && len(s) == 36
	})
	isLayout := argFunc(func(v driver.Value) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := time.Parse(sqliteTimeLayout, s)
		return err == nil
	})

	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs(isUUID, isLayout, "TRANSITION", "Loaded -> Running on Start", `{"from":"Loaded"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.FurnaceEvent{
		Type:        "  transition ",
		Description: "Loaded -> Running on Start",
		Metadata:    map[string]any{"from": "Loaded"},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_KeepsGivenIDAndTime(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	at := time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("CET", 3600))

	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs("ev-1", "2025-03-04 04:06:07.890", "ERROR", "boom", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.FurnaceEvent{
		EventID:     "ev-1",
		OccurredAt:  at,
		Type:        models.EventError,
		Description: "boom",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_UnmarshalableMetadata(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	err := repo.Append(ctx(t), models.FurnaceEvent{Type: "x", Metadata: make(chan int)})
	if err == nil || !strings.Contains(err.Error(), "marshal event metadata") {
		t.Fatalf("expected marshal error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_DBError(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	mock.ExpectExec("INSERT INTO furnace_events").
		WillReturnError(errors.New("down"))

	err := repo.Append(ctx(t), models.FurnaceEvent{
		Type:        "command",
		Description: "x",
		Metadata:    map[string]string{"k": "v"},
	})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_NoFilters_And_MetadataParsing(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	js, _ := json.Marshal(map[string]any{"a": "b"})

	rows := sqlmock.NewRows(eventCols).
		AddRow("1", "2025-01-01 10:00:00.000", "TRANSITION", "m1", string(js)).
		AddRow("2", "2025-01-01 11:00:00.000", "ERROR", "m2", nil).
		AddRow("3", "2025-01-01 12:00:00.000", "COMMAND", "m3", "not json")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, occurred_at, type, message, meta FROM furnace_events ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), EventFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3, got %d", len(got))
	}
	if want := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC); !got[0].OccurredAt.Equal(want) {
		t.Fatalf("occurred_at = %v, want %v", got[0].OccurredAt, want)
	}
	b1, _ := json.Marshal(got[0].Metadata)
	if string(b1) != string(js) {
		t.Fatalf("metadata mismatch: %s vs %s", string(b1), string(js))
	}
	if got[1].Metadata != nil {
		t.Fatalf("expected nil meta, got %#v", got[1].Metadata)
	}
	if got[2].Metadata != "not json" {
		t.Fatalf("malformed meta should be kept raw, got %#v", got[2].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_WithFilters_OrderAndArgs(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	query := `SELECT id, occurred_at, type, message, meta FROM furnace_events WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC`

	rows := sqlmock.NewRows(eventCols).
		AddRow("2", from, "ERROR", "b", nil).
		AddRow("3", to, "ERROR", "c", nil)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("2025-01-01 11:00:00.000", "2025-01-01 12:00:00.000", "ERROR").
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), EventFilter{From: from, To: to, Type: " error "})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].EventID != "2" || got[1].EventID != "3" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if !got[1].OccurredAt.Equal(to) {
		t.Fatalf("occurred_at = %v, want %v", got[1].OccurredAt, to)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_LimitKeepsNewest(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	query := `SELECT * FROM (SELECT id, occurred_at, type, message, meta FROM furnace_events WHERE type = ? ORDER BY occurred_at DESC LIMIT ?) ORDER BY occurred_at ASC`

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("TRANSITION", 2).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow("8", "2025-01-01 10:00:08.000", "TRANSITION", "a", nil).
			AddRow("9", "2025-01-01 10:00:09.000", "TRANSITION", "b", nil))

	got, err := repo.List(ctx(t), EventFilter{Type: "transition", Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].EventID != "8" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_BadTimestamp(t *testing.T) {
	t.Parallel()
	repo, mock := newEventRepo(t)

	rows := sqlmock.NewRows(eventCols).
		AddRow("x", 123, "TRANSITION", "msg", nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, occurred_at, type, message, meta FROM furnace_events ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	if _, err := repo.List(ctx(t), EventFilter{}); err == nil {
		t.Fatalf("expected timestamp error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestParseSQLiteTime(t *testing.T) {
	cases := []string{
		"2025-06-01 08:00:00.250",
		"2025-06-01 08:00:00",
		"2025-06-01T08:00:00.25Z",
	}
	for _, in := range cases {
		got, err := parseSQLiteTime(in)
		if err != nil {
			t.Fatalf("parseSQLiteTime(%q): %v", in, err)
		}
		if got.Location() != time.UTC || got.Hour() != 8 {
			t.Fatalf("parseSQLiteTime(%q) = %v", in, got)
		}
	}
	if _, err := parseSQLiteTime("yesterday"); err == nil {
		t.Fatalf("expected error for free text")
	}
}
