package profilesrepo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
	"github.com/mimochat/mimo-server/internal/storage/sqlite"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestUpsertProfileCreatesAndRefreshes(t *testing.T) {
	repo := New(testDB(t))
	ctx := context.Background()

	created, err := repo.UpsertProfile(ctx, profilesdomain.Profile{
		ID:          "u1",
		DisplayName: "Anna",
		Email:       "anna@example.com",
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if created.DisplayName != "Anna" {
		t.Fatalf("created profile mangled: %+v", created)
	}

	refreshed, err := repo.UpsertProfile(ctx, profilesdomain.Profile{
		ID:          "u1",
		DisplayName: "Anna K.",
		Email:       "anna@example.com",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if refreshed.DisplayName != "Anna K." {
		t.Fatalf("identity fields must refresh on sign-in, got %q", refreshed.DisplayName)
	}
	if !refreshed.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at must not change on refresh: %v vs %v", refreshed.CreatedAt, created.CreatedAt)
	}
}

func TestUpsertProfileRejectsEmptyID(t *testing.T) {
	repo := New(testDB(t))

	_, err := repo.UpsertProfile(context.Background(), profilesdomain.Profile{DisplayName: "nobody"})
	if !errors.Is(err, profilesdomain.ErrEmptyProfileID) {
		t.Fatalf("expected ErrEmptyProfileID, got %v", err)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	repo := New(testDB(t))

	_, err := repo.GetProfile(context.Background(), "ghost")
	if !errors.Is(err, profilesdomain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestGetProfilesPreservesOrder(t *testing.T) {
	repo := New(testDB(t))
	ctx := context.Background()

	for _, id := range []string{"u1", "u2", "u3"} {
		if _, err := repo.UpsertProfile(ctx, profilesdomain.Profile{ID: id, DisplayName: id}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	profiles, err := repo.GetProfiles(ctx, []string{"u3", "u1"})
	if err != nil {
		t.Fatalf("get profiles: %v", err)
	}

	if len(profiles) != 2 || profiles[0].ID != "u3" || profiles[1].ID != "u1" {
		t.Fatalf("order not preserved: %+v", profiles)
	}
}

func TestSearchProfilesExcludesViewer(t *testing.T) {
	repo := New(testDB(t))
	ctx := context.Background()

	seed := []profilesdomain.Profile{
		{ID: "u1", DisplayName: "Anna", Email: "anna@example.com"},
		{ID: "u2", DisplayName: "Annette", Email: "annette@example.com"},
		{ID: "u3", DisplayName: "Boris", Email: "boris@example.com"},
	}
	for _, p := range seed {
		if _, err := repo.UpsertProfile(ctx, p); err != nil {
			t.Fatalf("seed %s: %v", p.ID, err)
		}
	}

	found, err := repo.SearchProfiles(ctx, "u1", "ann", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(found) != 1 || found[0].ID != "u2" {
		t.Fatalf("expected only u2 (viewer excluded), got %+v", found)
	}
}

func TestSearchProfilesByEmail(t *testing.T) {
	repo := New(testDB(t))
	ctx := context.Background()

	if _, err := repo.UpsertProfile(ctx, profilesdomain.Profile{
		ID: "u2", DisplayName: "Boris", Email: "bear@example.com",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	found, err := repo.SearchProfiles(ctx, "u1", "BEAR", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != "u2" {
		t.Fatalf("email search failed: %+v", found)
	}
}

func TestSetOnline(t *testing.T) {
	repo := New(testDB(t))
	ctx := context.Background()

	if _, err := repo.UpsertProfile(ctx, profilesdomain.Profile{ID: "u1", DisplayName: "Anna"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := repo.SetOnline(ctx, "u1", false); err != nil {
		t.Fatalf("set offline: %v", err)
	}

	p, err := repo.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.IsOnline {
		t.Fatal("profile should be offline")
	}

	if err := repo.SetOnline(ctx, "ghost", true); !errors.Is(err, profilesdomain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}
