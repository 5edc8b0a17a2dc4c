package musixmatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.musixmatch.com/ws/1.1"
	defaultTimeout = 10 * time.Second
)

var errMissingAPIKey = errors.New("musixmatch: api key is required")

// Track is the subset of track metadata the bot cares about.
type Track struct {
	ID     string
	Title  string
	Artist string
}

// ClientConfig bundles configuration required to instantiate a Client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client queries the Musixmatch track-search and track-get endpoints. Every
// failure mode degrades to an empty or absent result; callers never see an
// error from this boundary.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a Musixmatch client with validated configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errMissingAPIKey
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type trackPayload struct {
	TrackID    int64  `json:"track_id"`
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
}

type searchEnvelope struct {
	Message struct {
		Body struct {
			TrackList []struct {
				Track trackPayload `json:"track"`
			} `json:"track_list"`
		} `json:"body"`
	} `json:"message"`
}

type getEnvelope struct {
	Message struct {
		Body struct {
			Track trackPayload `json:"track"`
		} `json:"body"`
	} `json:"message"`
}

// SearchTracks returns tracks matching the query, or an empty slice when the
// upstream call fails in any way.
func (c *Client) SearchTracks(ctx context.Context, query string) []Track {
	params := url.Values{}
	params.Set("q_track", query)

	var envelope searchEnvelope
	if err := c.get(ctx, "/track.search", params, &envelope); err != nil {
		c.logger.Warn("track search failed", zap.String("query", query), zap.Error(err))
		return nil
	}

	tracks := make([]Track, 0, len(envelope.Message.Body.TrackList))
	for _, entry := range envelope.Message.Body.TrackList {
		tracks = append(tracks, Track{
			ID:     strconv.FormatInt(entry.Track.TrackID, 10),
			Title:  entry.Track.TrackName,
			Artist: entry.Track.ArtistName,
		})
	}
	return tracks
}

// GetTrack returns metadata for a single track, reporting absence when the
// upstream call fails or the track is unknown.
func (c *Client) GetTrack(ctx context.Context, trackID string) (Track, bool) {
	params := url.Values{}
	params.Set("track_id", trackID)

	var envelope getEnvelope
	if err := c.get(ctx, "/track.get", params, &envelope); err != nil {
		c.logger.Warn("track lookup failed", zap.String("track_id", trackID), zap.Error(err))
		return Track{}, false
	}
	payload := envelope.Message.Body.Track
	if payload.TrackName == "" {
		return Track{}, false
	}
	return Track{
		ID:     strconv.FormatInt(payload.TrackID, 10),
		Title:  payload.TrackName,
		Artist: payload.ArtistName,
	}, true
}

func (c *Client) get(ctx context.Context, path string, params url.Values, target any) error {
	params.Set("apikey", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	response, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", response.StatusCode)
	}
	return json.NewDecoder(response.Body).Decode(target)
}
