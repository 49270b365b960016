package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mr1hm/earthguard/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	return db
}

func TestSQLiteDB_AddAndListEarthquakes(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Date(2026, 3, 11, 5, 46, 0, 0, time.UTC)
	quake := &models.EarthquakeEvent{
		Magnitude: 9.1,
		Latitude:  38.297,
		Longitude: 142.373,
		Depth:     29,
		Timestamp: now,
	}

	if err := db.AddEarthquake(ctx, quake); err != nil {
		t.Fatalf("AddEarthquake failed: %v", err)
	}
	if quake.ID == 0 {
		t.Error("expected AddEarthquake to assign an id")
	}

	got, err := db.ListEarthquakes(ctx, models.Filter{})
	if err != nil {
		t.Fatalf("ListEarthquakes failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 earthquake, got %d", len(got))
	}
	if got[0].Magnitude != 9.1 || got[0].Depth != 29 {
		t.Errorf("unexpected earthquake: %+v", got[0])
	}
	if !got[0].Timestamp.Equal(now) {
		t.Errorf("expected timestamp %v, got %v", now, got[0].Timestamp)
	}
	if got[0].OccurredAt != nil {
		t.Errorf("expected no occurred_at, got %v", got[0].OccurredAt)
	}
}

func TestSQLiteDB_EarthquakeExists(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	exists, err := db.EarthquakeExists(ctx, "usgs", "us7000abcd")
	if err != nil {
		t.Fatalf("EarthquakeExists failed: %v", err)
	}
	if exists {
		t.Error("expected false for unknown event")
	}

	occurred := time.Now().Add(-time.Hour)
	db.AddEarthquake(ctx, &models.EarthquakeEvent{
		Source:     "usgs",
		ExternalID: "us7000abcd",
		Magnitude:  6.2,
		Depth:      10,
		OccurredAt: &occurred,
		Timestamp:  time.Now(),
	})

	exists, err = db.EarthquakeExists(ctx, "usgs", "us7000abcd")
	if err != nil {
		t.Fatalf("EarthquakeExists failed: %v", err)
	}
	if !exists {
		t.Error("expected true for stored event")
	}

	// Same external id from another source is a different event
	exists, _ = db.EarthquakeExists(ctx, "gdacs", "us7000abcd")
	if exists {
		t.Error("expected false for a different source")
	}
}

func TestSQLiteDB_DuplicateExternalID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	quake := models.EarthquakeEvent{Source: "gdacs", ExternalID: "1453", Magnitude: 6.8, Depth: 10, Timestamp: time.Now()}

	first := quake
	if err := db.AddEarthquake(ctx, &first); err != nil {
		t.Fatalf("first AddEarthquake failed: %v", err)
	}

	second := quake
	if err := db.AddEarthquake(ctx, &second); err == nil {
		t.Error("expected error for duplicate source/external_id")
	}

	// Direct reports carry no external id and are never deduplicated
	for i := 0; i < 2; i++ {
		if err := db.AddEarthquake(ctx, &models.EarthquakeEvent{Magnitude: 5, Depth: 10, Timestamp: time.Now()}); err != nil {
			t.Fatalf("direct AddEarthquake %d failed: %v", i, err)
		}
	}
}

func TestSQLiteDB_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		db.AddMeshMessage(ctx, &models.MeshMessage{
			ID:        fmt.Sprintf("m%d", i),
			Type:      "status",
			Content:   "ok",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
	}

	// Newest first
	results, err := db.ListMeshMessages(ctx, models.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("ListMeshMessages failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 messages with limit, got %d", len(results))
	}
	if results[0].ID != "m4" || results[1].ID != "m3" {
		t.Errorf("expected m4, m3 got %s, %s", results[0].ID, results[1].ID)
	}

	since := base.Add(3 * time.Hour)
	results, err = db.ListMeshMessages(ctx, models.Filter{Since: &since})
	if err != nil {
		t.Fatalf("ListMeshMessages failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 messages since %v, got %d", since, len(results))
	}
}

func TestSQLiteDB_MeshMessageIDNotUnique(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		err := db.AddMeshMessage(ctx, &models.MeshMessage{ID: "same", Type: "sos", Content: "help", Timestamp: time.Now()})
		if err != nil {
			t.Fatalf("AddMeshMessage %d failed: %v", i, err)
		}
	}

	results, _ := db.ListMeshMessages(ctx, models.Filter{})
	if len(results) != 2 {
		t.Errorf("expected 2 messages, got %d", len(results))
	}
}

func TestSQLiteDB_RescueNeedsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	needs := json.RawMessage(`{"medical":["insulin"],"people":3}`)
	err := db.AddRescueReport(ctx, &models.RescueReport{
		VictimID:  "victim-9",
		Status:    "trapped",
		Needs:     needs,
		Latitude:  -33.45,
		Longitude: -70.66,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("AddRescueReport failed: %v", err)
	}

	results, err := db.ListRescueReports(ctx, models.Filter{})
	if err != nil {
		t.Fatalf("ListRescueReports failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 report, got %d", len(results))
	}
	if string(results[0].Needs) != string(needs) {
		t.Errorf("expected needs %s, got %s", needs, results[0].Needs)
	}
	if results[0].VictimID != "victim-9" {
		t.Errorf("expected victim-9, got %s", results[0].VictimID)
	}
}

func TestSQLiteDB_Ping(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	db.Close()
	if err := db.Ping(context.Background()); err == nil {
		t.Error("expected Ping to fail after Close")
	}
}

func TestListQuery_ClampsLimit(t *testing.T) {
	_, args := listQuery("SELECT 1", models.Filter{Limit: 10_000})
	if args[len(args)-1] != maxLimit {
		t.Errorf("expected limit clamped to %d, got %v", maxLimit, args[len(args)-1])
	}

	_, args = listQuery("SELECT 1", models.Filter{})
	if args[len(args)-1] != defaultLimit {
		t.Errorf("expected default limit %d, got %v", defaultLimit, args[len(args)-1])
	}
}
