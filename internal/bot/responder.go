package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Carlo1911/fbc-bot/internal/catalog"
	"github.com/Carlo1911/fbc-bot/internal/messenger"
	"github.com/Carlo1911/fbc-bot/internal/musixmatch"
	"go.uber.org/zap"
)

const (
	confirmationText = "Song added to favorites"

	maxSearchCards = 3

	// Opaque payload for report-menu buttons; the receiving branch
	// dispatches on the title alone.
	sentinelPayload = "true"
)

var (
	errMissingStore     = errors.New("bot: catalog store is required")
	errMissingMetadata  = errors.New("bot: metadata client is required")
	errMissingMessenger = errors.New("bot: messenger client is required")
)

// affirmations is the fixed canned-reply pool.
var affirmations = []string{
	"You are stunning!",
	"We're proud of you.",
	"Keep on being you!",
	"We're greatful to know you :)",
}

// MetadataClient is the slice of the song-metadata API the responder needs.
type MetadataClient interface {
	SearchTracks(ctx context.Context, query string) []musixmatch.Track
	GetTrack(ctx context.Context, trackID string) (musixmatch.Track, bool)
}

// MessengerClient is the slice of the platform send API the responder needs.
// Sends are fire-and-forget; only the profile lookup reports an outcome.
type MessengerClient interface {
	GetUserProfile(ctx context.Context, recipientID string) (messenger.Profile, bool)
	SendText(ctx context.Context, recipientID, text string)
	SendCards(ctx context.Context, recipientID string, cards []messenger.Card)
	SendButtons(ctx context.Context, recipientID, text string, buttons []messenger.Button)
}

// ResponderConfig describes the dependencies required by the responder.
type ResponderConfig struct {
	Store     *catalog.Store
	Metadata  MetadataClient
	Messenger MessengerClient
	Chooser   func(n int) int
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Responder consumes classified inbound events, orchestrates the store and
// the two external clients, and issues the replies.
type Responder struct {
	store     *catalog.Store
	metadata  MetadataClient
	messenger MessengerClient
	chooser   func(n int) int
	now       func() time.Time
	logger    *zap.Logger
}

// NewResponder constructs the responder with validated dependencies.
func NewResponder(cfg ResponderConfig) (*Responder, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Metadata == nil {
		return nil, errMissingMetadata
	}
	if cfg.Messenger == nil {
		return nil, errMissingMessenger
	}
	chooser := cfg.Chooser
	if chooser == nil {
		chooser = rand.IntN
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{
		store:     cfg.Store,
		metadata:  cfg.Metadata,
		messenger: cfg.Messenger,
		chooser:   chooser,
		now:       clock,
		logger:    logger,
	}, nil
}

// HandleEvent classifies one inbound event and executes the resulting
// action. Failures are absorbed and logged; an event can never abort the
// processing of its siblings.
func (r *Responder) HandleEvent(ctx context.Context, event Event) {
	if event.SenderID == "" {
		return
	}

	action := Classify(event)
	if action.Kind == ActionNone {
		return
	}

	if action.Kind != ActionAddFavorite {
		// Record activity; add-favorite touches through its own upsert.
		if err := r.store.TouchUser(ctx, event.SenderID); err != nil {
			r.logger.Warn("user touch failed", zap.String("sender_id", event.SenderID), zap.Error(err))
		}
	}

	switch action.Kind {
	case ActionAddFavorite:
		r.addFavorite(ctx, event.SenderID, action.TrackID)
	case ActionListFavorites:
		r.listFavorites(ctx, event.SenderID)
	case ActionCountUsers:
		r.countUsers(ctx, event.SenderID)
	case ActionCountChatsToday:
		r.countChatsToday(ctx, event.SenderID)
	case ActionSearchSongs:
		r.searchSongs(ctx, event.SenderID, action.Query)
	case ActionReportMenu:
		r.reportMenu(ctx, event.SenderID)
	case ActionCannedReply:
		r.messenger.SendText(ctx, event.SenderID, affirmations[r.chooser(len(affirmations))])
	}
}

func (r *Responder) addFavorite(ctx context.Context, recipientID, trackID string) {
	_, known, err := r.store.GetUser(ctx, recipientID)
	if err != nil {
		r.logger.Error("user lookup failed", zap.String("sender_id", recipientID), zap.Error(err))
		return
	}

	firstName, lastName := "", ""
	if !known {
		if profile, ok := r.messenger.GetUserProfile(ctx, recipientID); ok {
			firstName, lastName = profile.FirstName, profile.LastName
		}
	}
	if _, err := r.store.UpsertUser(ctx, recipientID, firstName, lastName); err != nil {
		r.logger.Error("user upsert failed", zap.String("sender_id", recipientID), zap.Error(err))
		return
	}

	if track, ok := r.metadata.GetTrack(ctx, trackID); ok {
		if _, err := r.store.UpsertSong(ctx, trackID, track.Title, track.Artist); err != nil {
			r.logger.Error("song upsert failed", zap.String("track_id", trackID), zap.Error(err))
		} else if err := r.store.AddFavorite(ctx, recipientID, trackID); err != nil {
			r.logger.Error("favorite add failed", zap.String("track_id", trackID), zap.Error(err))
		}
	}

	r.messenger.SendText(ctx, recipientID, confirmationText)
}

func (r *Responder) listFavorites(ctx context.Context, recipientID string) {
	favorites, err := r.store.ListFavorites(ctx, recipientID)
	if err != nil {
		r.logger.Error("favorite listing failed", zap.String("sender_id", recipientID), zap.Error(err))
		return
	}
	lines := make([]string, 0, len(favorites))
	for _, favorite := range favorites {
		lines = append(lines, fmt.Sprintf("%s - %s", favorite.Title, favorite.Artist))
	}
	r.messenger.SendText(ctx, recipientID, strings.Join(lines, "\n"))
}

func (r *Responder) countUsers(ctx context.Context, recipientID string) {
	total, err := r.store.CountUsers(ctx)
	if err != nil {
		r.logger.Error("user count failed", zap.Error(err))
		return
	}
	r.messenger.SendText(ctx, recipientID, fmt.Sprintf("Total users: %d", total))
}

func (r *Responder) countChatsToday(ctx context.Context, recipientID string) {
	now := r.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	total, err := r.store.CountUsersActiveSince(ctx, midnight)
	if err != nil {
		r.logger.Error("chat count failed", zap.Error(err))
		return
	}
	r.messenger.SendText(ctx, recipientID, fmt.Sprintf("Total chats today: %d", total))
}

func (r *Responder) searchSongs(ctx context.Context, recipientID, query string) {
	tracks := r.metadata.SearchTracks(ctx, query)
	if len(tracks) > maxSearchCards {
		tracks = tracks[:maxSearchCards]
	}
	cards := make([]messenger.Card, 0, len(tracks))
	for _, track := range tracks {
		cards = append(cards, messenger.Card{
			Title:    track.Title,
			Subtitle: track.Artist,
			Buttons:  []messenger.Button{messenger.PostbackButton(TitleAddFavorite, track.ID)},
		})
	}
	r.messenger.SendCards(ctx, recipientID, cards)
}

func (r *Responder) reportMenu(ctx context.Context, recipientID string) {
	cards := []messenger.Card{
		{
			Title:   "Favorite songs",
			Buttons: []messenger.Button{messenger.PostbackButton(TitleListFavorites, sentinelPayload)},
		},
		{
			Title:   "Total users",
			Buttons: []messenger.Button{messenger.PostbackButton(TitleCountUsers, sentinelPayload)},
		},
		{
			Title:   "Chats today",
			Buttons: []messenger.Button{messenger.PostbackButton(TitleCountChatsToday, sentinelPayload)},
		},
	}
	r.messenger.SendCards(ctx, recipientID, cards)
}
