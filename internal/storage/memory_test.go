package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

func TestMemoryStoreSaveLoad(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := NewMemoryStore(0, log)
	ctx := context.Background()

	a := domain.Announcement{
		ID:      "utt-1",
		Text:    "16:30 zulu. Sunday.",
		Backend: "espeak",
		Status:  domain.StatusOK,
		At:      time.Date(2026, 10, 18, 16, 30, 5, 0, time.UTC),
	}

	// Save.
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Load.
	loaded, err := store.Load(ctx, "utt-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Text != a.Text {
		t.Fatalf("expected text %q, got %q", a.Text, loaded.Text)
	}

	// Load nonexistent.
	if _, err := store.Load(ctx, "nonexistent"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Overwrite keeps a single entry.
	a.Status = domain.StatusCancelled
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}
	all, _ := store.Recent(ctx, 0)
	if len(all) != 1 || all[0].Status != domain.StatusCancelled {
		t.Fatalf("after overwrite: %+v", all)
	}
}

func TestMemoryStoreRecentAndCapacity(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := NewMemoryStore(3, log)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := store.Save(ctx, domain.Announcement{ID: fmt.Sprintf("utt-%d", i)}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	all, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].ID != "utt-5" || all[2].ID != "utt-3" {
		t.Fatalf("order = %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	// The oldest entries were evicted.
	if _, err := store.Load(ctx, "utt-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("utt-1 should be evicted, got %v", err)
	}

	two, _ := store.Recent(ctx, 2)
	if len(two) != 2 || two[0].ID != "utt-5" {
		t.Fatalf("recent(2) = %+v", two)
	}
}
