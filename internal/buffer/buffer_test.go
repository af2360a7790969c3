package buffer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "buffer.sqlite3"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	return db
}

func testRecord(ts time.Time) Record {
	return Record{
		Time:                 ts,
		ClientID:             "vessels.urn:mrn:imo:mmsi:230099999",
		Latitude:             59.3251,
		Longitude:            18.0719,
		SpeedOverGround:      6.4,
		CourseOverGroundTrue: 212.5,
		WindSpeedApparent:    14.2,
		WindAngleApparent:    -42.0,
		Status:               "sailing",
		Metrics: map[string]any{
			"environment.water.temperature": 281.5,
			"steering.autopilot.state":      "auto",
		},
	}
}

func TestInsertAndReadBackRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	want := testRecord(time.Date(2026, 3, 1, 12, 0, 0, 250_000_000, time.UTC))
	if err := db.Insert(ctx, want); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := db.Pending(ctx, 10)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("record round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPendingOrderAndLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of order; reads must come back sorted by time.
	for _, offset := range []int{3, 0, 4, 1, 2} {
		rec := testRecord(base.Add(time.Duration(offset) * time.Minute))
		if err := db.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := db.Pending(ctx, 3)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i, rec := range got {
		want := base.Add(time.Duration(i) * time.Minute)
		if !rec.Time.Equal(want) {
			t.Errorf("record %d time = %v, want %v", i, rec.Time, want)
		}
	}

	all, err := db.Pending(ctx, 0)
	if err != nil {
		t.Fatalf("Pending(0) failed: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("unlimited read returned %d records, want 5", len(all))
	}
}

func TestDeleteThrough(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := db.Insert(ctx, testRecord(base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	// Watermark at the third record: it and everything before it goes.
	deleted, err := db.DeleteThrough(ctx, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("DeleteThrough failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted %d rows, want 3", deleted)
	}

	n, err := db.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	// A watermark before everything deletes nothing.
	deleted, err = db.DeleteThrough(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteThrough failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted %d rows, want 0", deleted)
	}
}

func TestDeleteThroughSubMinuteOrdering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Fractional-second timestamps must still order correctly in SQL text
	// comparison thanks to the fixed-precision storage layout.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{
		base.Add(150 * time.Millisecond),
		base.Add(200 * time.Millisecond),
		base.Add(500 * time.Millisecond),
	}
	for _, ts := range times {
		if err := db.Insert(ctx, testRecord(ts)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	deleted, err := db.DeleteThrough(ctx, base.Add(200*time.Millisecond))
	if err != nil {
		t.Fatalf("DeleteThrough failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted %d rows, want 2", deleted)
	}
}

func TestBufferSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buffer.sqlite3")
	ctx := context.Background()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	rec := testRecord(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err := db.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	db.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if err := reopened.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp on reopen failed: %v", err)
	}

	got, err := reopened.Pending(ctx, 10)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records after reopen, want 1", len(got))
	}
	if diff := cmp.Diff(rec, got[0]); diff != "" {
		t.Errorf("record mismatch after reopen (-want +got):\n%s", diff)
	}
}

func TestMigrateVersion(t *testing.T) {
	db := setupTestDB(t)
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("schema reported dirty after clean migration")
	}
	if version == 0 {
		t.Error("version = 0 after MigrateUp, want > 0")
	}
}

func TestFormatTimeFixedPrecision(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 250_000_000, time.UTC)
	got := FormatTime(ts)
	want := "2026-03-01T12:00:00.250Z"
	if got != want {
		t.Errorf("FormatTime = %q, want %q", got, want)
	}

	parsed, err := ParseTime(got)
	if err != nil {
		t.Fatalf("ParseTime failed: %v", err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("ParseTime round trip = %v, want %v", parsed, ts)
	}
}
