package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestAdapter(t *testing.T) *SQLiteAdapter {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "slot.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	a, err := NewSQLiteAdapter(db)
	if err != nil {
		t.Fatalf("migrate slot: %v", err)
	}
	return a
}

func TestSQLiteLoadEmptySlot(t *testing.T) {
	a := openTestAdapter(t)

	records, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("fresh slot must load empty, got %d records", len(records))
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	a := openTestAdapter(t)

	original := sampleRecords()
	if err := a.Store(context.Background(), original); err != nil {
		t.Fatalf("store: %v", err)
	}

	loaded, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	equalRecords(t, original, loaded)
}

func TestSQLiteOverwritesWholesale(t *testing.T) {
	a := openTestAdapter(t)

	if err := a.Store(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := a.Store(context.Background(), []Record{{ID: "only"}}); err != nil {
		t.Fatalf("second store: %v", err)
	}

	loaded, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "only" {
		t.Fatalf("slot must be overwritten wholesale, got %+v", loaded)
	}
}
