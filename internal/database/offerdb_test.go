package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/offerwatch/internal/migration"
	"github.com/nao1215/offerwatch/internal/migrations"
	"github.com/nao1215/offerwatch/internal/model"
)

// fixedNow is the clock of every test database.
var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.Clock = func() time.Time { return fixedNow }
	return opts
}

// setupTestDB creates a migrated database in a temporary directory.
func setupTestDB(t *testing.T) *OfferDB {
	t.Helper()

	db, err := Open(context.Background(), t.TempDir(), testOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates and migrates a database in a new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(context.Background(), dbDir, testOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if got := db.Migrations().AppliedCount; got != migrations.Registry.Len() {
			t.Errorf("applied %d migrations, want %d", got, migrations.Registry.Len())
		}
	})

	t.Run("reopening applies nothing", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		first, err := Open(context.Background(), dbDir, testOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		_ = first.Close()

		second, err := Open(context.Background(), dbDir, testOptions())
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer second.Close()

		if !second.Migrations().UpToDate {
			t.Errorf("expected an up to date schema, got %+v", second.Migrations())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		opts := testOptions()
		opts.CreateIfNotExists = false

		_, err := Open(context.Background(), dbDir, opts)
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("unexpected error: %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("failed migration closes the database and returns the error", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		sqlDB, err := OpenSQL(dbDir, testOptions())
		if err != nil {
			t.Fatal(err)
		}
		// A legacy database with a value no timestamp layout accepts.
		_, err = sqlDB.Exec(`
CREATE TABLE offers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT UNIQUE,
	source TEXT NOT NULL,
	title TEXT NOT NULL,
	price TEXT,
	location TEXT,
	posted_at TEXT,
	scraped_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	sent INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE chats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	telegram_chat_id TEXT,
	discord_webhook TEXT,
	query TEXT NOT NULL,
	max_price INTEGER,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
INSERT INTO offers (url, source, title, posted_at) VALUES ('https://www.olx.pl/d/1', 'olx', 'Flat', 'wczoraj');`)
		if err != nil {
			t.Fatal(err)
		}
		_ = sqlDB.Close()

		db, err := Open(context.Background(), dbDir, testOptions())
		if err == nil {
			_ = db.Close()
			t.Fatal("expected a migration error")
		}
		var aggErr *migration.AggregateError
		if !errors.As(err, &aggErr) {
			t.Errorf("expected *migration.AggregateError, got %T: %v", err, err)
		}
	})
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()

	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
	if !opts.VerifyIntegrity {
		t.Error("expected VerifyIntegrity to be true by default")
	}
	if opts.BatchSize != migration.DefaultBatchSize {
		t.Errorf("expected batch size %d, got %d", migration.DefaultBatchSize, opts.BatchSize)
	}
}

func TestOfferDBOffers(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	price := int64(450000)
	posted := time.Date(2024, 5, 30, 8, 0, 0, 0, time.UTC)
	offer := &model.Offer{
		URL:      "https://www.otodom.pl/pl/oferta/1",
		Source:   "otodom",
		Title:    "Mieszkanie 2 pokoje",
		Price:    &price,
		Location: "Kraków",
		PostedAt: &posted,
	}

	id, err := db.UpsertOffer(ctx, offer)
	if err != nil {
		t.Fatalf("UpsertOffer() error = %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero ID")
	}

	t.Run("get returns the stored offer", func(t *testing.T) {
		got, err := db.GetOffer(ctx, offer.URL)
		if err != nil {
			t.Fatalf("GetOffer() error = %v", err)
		}
		want := &model.Offer{
			ID:        id,
			URL:       offer.URL,
			Source:    "otodom",
			Title:     "Mieszkanie 2 pokoje",
			Price:     &price,
			Currency:  model.DefaultCurrency,
			Location:  "Kraków",
			PostedAt:  &posted,
			ScrapedAt: fixedNow,
			Type:      model.OfferTypeRealEstate,
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetOffer() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing offer is nil", func(t *testing.T) {
		got, err := db.GetOffer(ctx, "https://example.com/missing")
		if err != nil || got != nil {
			t.Errorf("GetOffer() = %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("upsert by url keeps the id", func(t *testing.T) {
		newPrice := int64(430000)
		again := &model.Offer{URL: offer.URL, Source: "otodom", Title: "Mieszkanie 2 pokoje, obniżka", Price: &newPrice}
		id2, err := db.UpsertOffer(ctx, again)
		if err != nil {
			t.Fatalf("UpsertOffer() error = %v", err)
		}
		if id2 != id {
			t.Errorf("upsert returned id %d, want %d", id2, id)
		}
		got, err := db.GetOffer(ctx, offer.URL)
		if err != nil {
			t.Fatal(err)
		}
		if *got.Price != newPrice || got.PostedAt == nil {
			t.Errorf("unexpected offer after upsert: %+v", got)
		}
	})

	t.Run("enrichment", func(t *testing.T) {
		area := 45.5
		rooms := 2
		if err := db.SetEnrichment(ctx, id, &area, &rooms); err != nil {
			t.Fatalf("SetEnrichment() error = %v", err)
		}
		got, err := db.GetOffer(ctx, offer.URL)
		if err != nil {
			t.Fatal(err)
		}
		if !got.IsEnriched() || *got.AreaM2 != area || *got.Rooms != rooms {
			t.Errorf("enrichment not stored: %+v", got)
		}
		if err := db.SetEnrichment(ctx, 9999, &area, &rooms); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list since", func(t *testing.T) {
		offers, err := db.ListOffersSince(ctx, fixedNow.Add(-time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if len(offers) != 1 {
			t.Errorf("expected 1 offer, got %d", len(offers))
		}
		offers, err = db.ListOffersSince(ctx, fixedNow.Add(time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if len(offers) != 0 {
			t.Errorf("expected no offers, got %d", len(offers))
		}
	})

	t.Run("rejects offers without url", func(t *testing.T) {
		if _, err := db.UpsertOffer(ctx, &model.Offer{Source: "olx", Title: "x"}); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestOfferDBNotifications(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	sub := &model.Subscription{Platform: model.NotificationPlatformTelegram, Target: "123456", Query: "mieszkanie"}
	subID, err := db.AddSubscription(ctx, sub)
	if err != nil {
		t.Fatalf("AddSubscription() error = %v", err)
	}

	var offerIDs []int64
	for _, url := range []string{"https://www.olx.pl/d/1", "https://www.olx.pl/d/2"} {
		id, err := db.UpsertOffer(ctx, &model.Offer{URL: url, Source: "olx", Title: "Mieszkanie"})
		if err != nil {
			t.Fatal(err)
		}
		offerIDs = append(offerIDs, id)
	}

	if err := db.RecordMatch(ctx, model.Match{OfferID: offerIDs[0], SubscriptionID: subID, Score: 0.5}); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordMatch(ctx, model.Match{OfferID: offerIDs[1], SubscriptionID: subID, Score: 0.9}); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingNotifications(ctx, subID)
	if err != nil {
		t.Fatalf("PendingNotifications() error = %v", err)
	}
	var got []int64
	for _, o := range pending {
		got = append(got, o.ID)
	}
	if diff := cmp.Diff([]int64{offerIDs[1], offerIDs[0]}, got); diff != "" {
		t.Errorf("pending order mismatch (-want +got):\n%s", diff)
	}

	inserted, err := db.MarkNotified(ctx, offerIDs[1], subID)
	if err != nil || !inserted {
		t.Fatalf("MarkNotified() = %v, %v", inserted, err)
	}
	inserted, err = db.MarkNotified(ctx, offerIDs[1], subID)
	if err != nil || inserted {
		t.Errorf("second MarkNotified() = %v, %v; want false, nil", inserted, err)
	}

	pending, err = db.PendingNotifications(ctx, subID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != offerIDs[0] {
		t.Errorf("unexpected pending offers: %+v", pending)
	}

	notifications, err := db.Notifications(ctx, subID)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Notification{{ID: notifications[0].ID, OfferID: offerIDs[1], SubscriptionID: subID, SentAt: fixedNow}}
	if diff := cmp.Diff(want, notifications); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}

	t.Run("notifying an unknown offer violates the foreign key", func(t *testing.T) {
		if _, err := db.MarkNotified(ctx, 9999, subID); err == nil {
			t.Error("expected a foreign key error")
		}
	})

	t.Run("deleting offers cascades", func(t *testing.T) {
		n, err := db.DeleteOffersScrapedBefore(ctx, fixedNow.Add(time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Errorf("deleted %d offers, want 2", n)
		}
		counts, err := db.Counts(ctx)
		if err != nil {
			t.Fatal(err)
		}
		wantCounts := map[string]int64{"offers": 0, "subscriptions": 1, "offer_matches": 0, "notifications": 0}
		if diff := cmp.Diff(wantCounts, counts); diff != "" {
			t.Errorf("counts mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestOfferDBSubscriptions(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	limit := int64(80000)
	discord := &model.Subscription{
		Platform: model.NotificationPlatformDiscord,
		Target:   "https://discord.com/api/webhooks/1/abc",
		Query:    "audi a4",
		MaxPrice: &limit,
	}
	id, err := db.AddSubscription(ctx, discord)
	if err != nil {
		t.Fatalf("AddSubscription() error = %v", err)
	}

	if _, err := db.AddSubscription(ctx, &model.Subscription{Platform: "signal", Target: "x", Query: "y"}); err == nil {
		t.Error("expected unknown platform to be rejected")
	}

	subs, err := db.ListActiveSubscriptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Subscription{{
		ID:        id,
		Platform:  model.NotificationPlatformDiscord,
		Target:    discord.Target,
		Query:     "audi a4",
		MaxPrice:  &limit,
		Active:    true,
		CreatedAt: fixedNow,
	}}
	if diff := cmp.Diff(want, subs); diff != "" {
		t.Errorf("ListActiveSubscriptions() mismatch (-want +got):\n%s", diff)
	}

	if err := db.DeactivateSubscription(ctx, id); err != nil {
		t.Fatal(err)
	}
	subs, err = db.ListActiveSubscriptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 0 {
		t.Errorf("deactivated subscription is still listed: %+v", subs)
	}
	if err := db.DeactivateSubscription(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
