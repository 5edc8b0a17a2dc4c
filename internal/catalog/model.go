package catalog

import "time"

// User is one messaging-platform account that has talked to the bot. The
// recipient identifier is assigned by the platform and never changes.
type User struct {
	RecipientID string    `gorm:"column:recipient_id;primaryKey;size:64;not null"`
	FirstName   string    `gorm:"column:first_name;size:64"`
	LastName    string    `gorm:"column:last_name;size:120"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at;not null;index"`
}

// TableName exposes the table backing bot users.
func (User) TableName() string {
	return "fb_users"
}

// Song is a track known to the bot because at least one user favorited it.
// SearchCount tracks repeated favorite attempts across all users.
type Song struct {
	TrackID     string    `gorm:"column:track_id;primaryKey;size:64;not null"`
	Title       string    `gorm:"column:track_name;size:190"`
	Artist      string    `gorm:"column:artist_name;size:190"`
	SearchCount int64     `gorm:"column:search_count;not null;default:1"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing songs.
func (Song) TableName() string {
	return "songs"
}

// Favorite links one user to one song. The composite unique index keeps the
// association a set; the auto-increment id gives listings a stable order.
type Favorite struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;size:64;not null;uniqueIndex:idx_favorites_user_track"`
	TrackID   string    `gorm:"column:track_id;size:64;not null;uniqueIndex:idx_favorites_user_track"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing favorite edges.
func (Favorite) TableName() string {
	return "favorites"
}

// FavoriteSong is one row of a user's favorite listing.
type FavoriteSong struct {
	Title  string
	Artist string
}
