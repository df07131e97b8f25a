package launchlog

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	dbmodel "sumobridge/cli/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := dbmodel.OpenMemory("launchlog_test")
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	t.Cleanup(func() { _ = dbmodel.Close(gdb) })
	st, err := NewStore(gdb)
	if err != nil {
		t.Fatalf("new store failed: %v", err)
	}
	return st
}

func TestStore_RecordAndListNewestFirst(t *testing.T) {
	st := newTestStore(t)
	base := time.UnixMilli(1700000000000)

	first, err := st.Record(Entry{ProjectName: "demo", ScriptPath: "/tmp/a.sh", Status: StatusLaunched, CreatedAt: base})
	if err != nil {
		t.Fatalf("record first: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, err := st.Record(Entry{ProjectName: "demo", Status: StatusFailed, ErrorKind: "spawn", CreatedAt: base.Add(time.Second)}); err != nil {
		t.Fatalf("record second: %v", err)
	}

	rows, err := st.List(10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Status != StatusFailed || rows[1].ID != first.ID {
		t.Fatalf("unexpected order: %#v", rows)
	}
	if !rows[1].CreatedAt.Equal(base) {
		t.Fatalf("unexpected timestamp: %v", rows[1].CreatedAt)
	}
}

func TestStore_ListLimit(t *testing.T) {
	st := newTestStore(t)
	for i := 0; i < 5; i++ {
		if _, err := st.Record(Entry{ProjectName: "p", Status: StatusLaunched}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	rows, err := st.List(3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
}

func TestNewStore_RequiresDB(t *testing.T) {
	if _, err := NewStore(nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestStore_RoundTripsAllFields(t *testing.T) {
	st := newTestStore(t)
	want := Entry{
		ProjectName: "demo",
		ScriptPath:  "/tmp/sumo-demo-1.sh",
		Status:      StatusFailed,
		ErrorKind:   "spawn",
		Message:     "Error opening terminal: exit status 1",
		ContentSize: 42,
	}
	stored, err := st.Record(want)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	rows, err := st.List(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if diff := cmp.Diff(want, rows[0], cmpopts.IgnoreFields(Entry{}, "ID", "CreatedAt")); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
	if rows[0].ID != stored.ID || rows[0].CreatedAt.IsZero() {
		t.Fatalf("generated fields not persisted: stored=%+v listed=%+v", stored, rows[0])
	}
}
