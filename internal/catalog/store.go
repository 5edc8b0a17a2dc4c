package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingDatabase = errors.New("catalog: database handle is required")

// StoreConfig describes the dependencies required by the catalog store.
type StoreConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Store persists users, songs and the favorites association between them.
type Store struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
}

// NewStore constructs the catalog store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:     cfg.Database,
		now:    clock,
		logger: logger,
	}, nil
}

// UpsertUser creates the user row on first contact and touches the
// last-seen timestamp on every later call. The current row is returned.
func (s *Store) UpsertUser(ctx context.Context, recipientID, firstName, lastName string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		First(&user).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = User{
			RecipientID: recipientID,
			FirstName:   firstName,
			LastName:    lastName,
			LastSeenAt:  s.now(),
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return User{}, fmt.Errorf("catalog: create user: %w", err)
		}
		return user, nil
	}
	if err != nil {
		return User{}, fmt.Errorf("catalog: lookup user: %w", err)
	}

	user.LastSeenAt = s.now()
	err = s.db.WithContext(ctx).
		Model(&User{}).
		Where("recipient_id = ?", recipientID).
		Update("last_seen_at", user.LastSeenAt).
		Error
	if err != nil {
		return User{}, fmt.Errorf("catalog: touch user: %w", err)
	}
	return user, nil
}

// TouchUser updates the last-seen timestamp. Unknown users are a no-op.
func (s *Store) TouchUser(ctx context.Context, recipientID string) error {
	return s.db.WithContext(ctx).
		Model(&User{}).
		Where("recipient_id = ?", recipientID).
		Update("last_seen_at", s.now()).
		Error
}

// GetUser returns the user row for the identifier, reporting absence
// without an error.
func (s *Store) GetUser(ctx context.Context, recipientID string) (User, bool, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		First(&user).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("catalog: lookup user: %w", err)
	}
	return user, true, nil
}

// CountUsers returns the total number of user rows.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&User{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("catalog: count users: %w", err)
	}
	return total, nil
}

// CountUsersActiveSince returns how many users were last seen at or after
// the provided instant.
func (s *Store) CountUsersActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&User{}).
		Where("last_seen_at >= ?", since).
		Count(&total).
		Error
	if err != nil {
		return 0, fmt.Errorf("catalog: count active users: %w", err)
	}
	return total, nil
}

// UpsertSong creates the song with a search count of one when it is new and
// returns the existing row otherwise. Incrementing the counter is the
// caller's decision, via AddFavorite.
func (s *Store) UpsertSong(ctx context.Context, trackID, title, artist string) (Song, error) {
	song := Song{
		TrackID:     trackID,
		Title:       title,
		Artist:      artist,
		SearchCount: 1,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&song).
		Error
	if err != nil {
		return Song{}, fmt.Errorf("catalog: upsert song: %w", err)
	}

	var current Song
	err = s.db.WithContext(ctx).
		Where("track_id = ?", trackID).
		Take(&current).
		Error
	if err != nil {
		return Song{}, fmt.Errorf("catalog: reload song: %w", err)
	}
	return current, nil
}

// GetFavorite returns the favorite edge for the pair, reporting absence
// without an error.
func (s *Store) GetFavorite(ctx context.Context, recipientID, trackID string) (Favorite, bool, error) {
	var favorite Favorite
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND track_id = ?", recipientID, trackID).
		First(&favorite).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Favorite{}, false, nil
	}
	if err != nil {
		return Favorite{}, false, fmt.Errorf("catalog: lookup favorite: %w", err)
	}
	return favorite, true, nil
}

// AddFavorite records the pair once. A repeated add bumps the song's search
// counter with a single atomic update instead of inserting a duplicate
// edge, so two racing callers can never lose a count.
func (s *Store) AddFavorite(ctx context.Context, recipientID, trackID string) error {
	favorite := Favorite{
		UserID:  recipientID,
		TrackID: trackID,
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&favorite)
	if result.Error != nil {
		return fmt.Errorf("catalog: add favorite: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Model(&Song{}).
		Where("track_id = ?", trackID).
		Update("search_count", gorm.Expr("search_count + ?", 1)).
		Error
	if err != nil {
		return fmt.Errorf("catalog: bump search count: %w", err)
	}
	return nil
}

// ListFavorites returns the user's favorites in insertion order.
func (s *Store) ListFavorites(ctx context.Context, recipientID string) ([]FavoriteSong, error) {
	var rows []FavoriteSong
	err := s.db.WithContext(ctx).
		Table("favorites").
		Select("songs.track_name AS title, songs.artist_name AS artist").
		Joins("JOIN songs ON songs.track_id = favorites.track_id").
		Where("favorites.user_id = ?", recipientID).
		Order("favorites.id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("catalog: list favorites: %w", err)
	}
	return rows, nil
}
