package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestStore(t *testing.T, clock func() time.Time) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&User{}, &Song{}, &Favorite{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	store, err := NewStore(StoreConfig{Database: db, Clock: clock})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestUpsertUserCreatesOnceAndTouchesAfter(t *testing.T) {
	current := time.Unix(1_000, 0)
	store := openTestStore(t, func() time.Time { return current })
	ctx := context.Background()

	first, err := store.UpsertUser(ctx, "recipient-1", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if first.FirstName != "Ada" || first.LastName != "Lovelace" {
		t.Fatalf("unexpected user row: %+v", first)
	}

	current = time.Unix(2_000, 0)
	second, err := store.UpsertUser(ctx, "recipient-1", "ignored", "ignored")
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if second.FirstName != "Ada" {
		t.Fatalf("expected profile to stay fixed, got %q", second.FirstName)
	}
	if !second.LastSeenAt.Equal(time.Unix(2_000, 0)) {
		t.Fatalf("expected last seen to advance, got %v", second.LastSeenAt)
	}

	total, err := store.CountUsers(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected a single user row, got %d", total)
	}
}

func TestTouchUserUnknownIsNoOp(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	if err := store.TouchUser(ctx, "stranger"); err != nil {
		t.Fatalf("touch of unknown user should not fail: %v", err)
	}
	_, found, err := store.GetUser(ctx, "stranger")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found {
		t.Fatalf("touch must not create a row")
	}
}

func TestCountUsersActiveSince(t *testing.T) {
	current := time.Unix(1_000, 0)
	store := openTestStore(t, func() time.Time { return current })
	ctx := context.Background()

	if _, err := store.UpsertUser(ctx, "early", "", ""); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	current = time.Unix(5_000, 0)
	if _, err := store.UpsertUser(ctx, "late", "", ""); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	active, err := store.CountUsersActiveSince(ctx, time.Unix(3_000, 0))
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected one active user, got %d", active)
	}
}

func TestAddFavoriteTwiceKeepsSingleEdgeAndBumpsCounter(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	if _, err := store.UpsertUser(ctx, "recipient-1", "Ada", "Lovelace"); err != nil {
		t.Fatalf("upsert user failed: %v", err)
	}
	if _, err := store.UpsertSong(ctx, "track-99", "Imagine", "John Lennon"); err != nil {
		t.Fatalf("upsert song failed: %v", err)
	}

	for range 2 {
		song, err := store.UpsertSong(ctx, "track-99", "Imagine", "John Lennon")
		if err != nil {
			t.Fatalf("song upsert failed: %v", err)
		}
		if song.Title != "Imagine" {
			t.Fatalf("unexpected song row: %+v", song)
		}
		if err := store.AddFavorite(ctx, "recipient-1", "track-99"); err != nil {
			t.Fatalf("add favorite failed: %v", err)
		}
	}

	edge, found, err := store.GetFavorite(ctx, "recipient-1", "track-99")
	if err != nil {
		t.Fatalf("edge lookup failed: %v", err)
	}
	if !found {
		t.Fatalf("expected the favorite edge to exist")
	}
	if edge.UserID != "recipient-1" || edge.TrackID != "track-99" {
		t.Fatalf("unexpected edge: %+v", edge)
	}

	song, err := store.UpsertSong(ctx, "track-99", "Imagine", "John Lennon")
	if err != nil {
		t.Fatalf("song reload failed: %v", err)
	}
	if song.SearchCount != 2 {
		t.Fatalf("expected search count 2 after repeated add, got %d", song.SearchCount)
	}

	favorites, err := store.ListFavorites(ctx, "recipient-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(favorites) != 1 {
		t.Fatalf("expected exactly one favorite, got %d", len(favorites))
	}
}

func TestAddFavoriteConcurrentCallersDoNotLoseCounts(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	if _, err := store.UpsertUser(ctx, "recipient-1", "", ""); err != nil {
		t.Fatalf("upsert user failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.UpsertSong(ctx, "track-7", "Song", "Artist"); err != nil {
				errs <- err
				return
			}
			errs <- store.AddFavorite(ctx, "recipient-1", "track-7")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent add failed: %v", err)
		}
	}

	song, err := store.UpsertSong(ctx, "track-7", "Song", "Artist")
	if err != nil {
		t.Fatalf("song reload failed: %v", err)
	}
	if song.SearchCount != 2 {
		t.Fatalf("expected counter 2 from two racing adds, got %d", song.SearchCount)
	}
	favorites, err := store.ListFavorites(ctx, "recipient-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(favorites) != 1 {
		t.Fatalf("expected a single edge, got %d", len(favorites))
	}
}

func TestListFavoritesEmptyForUnknownUser(t *testing.T) {
	store := openTestStore(t, nil)

	favorites, err := store.ListFavorites(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(favorites) != 0 {
		t.Fatalf("expected no favorites, got %d", len(favorites))
	}
}

func TestListFavoritesKeepsInsertionOrder(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	if _, err := store.UpsertUser(ctx, "recipient-1", "", ""); err != nil {
		t.Fatalf("upsert user failed: %v", err)
	}
	tracks := []struct{ id, title, artist string }{
		{"t-1", "First", "A"},
		{"t-2", "Second", "B"},
		{"t-3", "Third", "C"},
	}
	for _, track := range tracks {
		if _, err := store.UpsertSong(ctx, track.id, track.title, track.artist); err != nil {
			t.Fatalf("upsert song failed: %v", err)
		}
		if err := store.AddFavorite(ctx, "recipient-1", track.id); err != nil {
			t.Fatalf("add favorite failed: %v", err)
		}
	}

	favorites, err := store.ListFavorites(ctx, "recipient-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(favorites) != 3 {
		t.Fatalf("expected three favorites, got %d", len(favorites))
	}
	for i, track := range tracks {
		if favorites[i].Title != track.title || favorites[i].Artist != track.artist {
			t.Fatalf("unexpected row %d: %+v", i, favorites[i])
		}
	}
}
