package musixmatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const searchResponse = `{
	"message": {
		"body": {
			"track_list": [
				{"track": {"track_id": 101, "track_name": "Imagine", "artist_name": "John Lennon"}},
				{"track": {"track_id": 102, "track_name": "Imagine Dragons", "artist_name": "Radioactive"}}
			]
		}
	}
}`

const getResponse = `{
	"message": {
		"body": {
			"track": {"track_id": 99, "track_name": "One Kiss", "artist_name": "Calvin Harris"}
		}
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(ClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestSearchTracksDecodesEnvelope(t *testing.T) {
	var gotPath, gotKey, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apikey")
		gotQuery = r.URL.Query().Get("q_track")
		w.Write([]byte(searchResponse))
	})

	tracks := client.SearchTracks(context.Background(), "imagine")

	if gotPath != "/track.search" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key parameter, got %q", gotKey)
	}
	if gotQuery != "imagine" {
		t.Fatalf("unexpected query parameter: %q", gotQuery)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected two tracks, got %d", len(tracks))
	}
	if tracks[0].ID != "101" || tracks[0].Title != "Imagine" || tracks[0].Artist != "John Lennon" {
		t.Fatalf("unexpected first track: %+v", tracks[0])
	}
}

func TestSearchTracksReturnsEmptyOnErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if tracks := client.SearchTracks(context.Background(), "imagine"); len(tracks) != 0 {
		t.Fatalf("expected empty result on upstream failure, got %d tracks", len(tracks))
	}
}

func TestSearchTracksReturnsEmptyOnMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {"body": "not an object"`))
	})

	if tracks := client.SearchTracks(context.Background(), "imagine"); len(tracks) != 0 {
		t.Fatalf("expected empty result on decode failure, got %d tracks", len(tracks))
	}
}

func TestGetTrackReturnsMetadata(t *testing.T) {
	var gotTrackID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTrackID = r.URL.Query().Get("track_id")
		w.Write([]byte(getResponse))
	})

	track, found := client.GetTrack(context.Background(), "99")
	if !found {
		t.Fatalf("expected track to be found")
	}
	if gotTrackID != "99" {
		t.Fatalf("unexpected track id parameter: %q", gotTrackID)
	}
	if track.Title != "One Kiss" || track.Artist != "Calvin Harris" {
		t.Fatalf("unexpected track: %+v", track)
	}
}

func TestGetTrackReportsAbsenceOnFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if _, found := client.GetTrack(context.Background(), "99"); found {
		t.Fatalf("expected absence on upstream failure")
	}
}

func TestGetTrackReportsAbsenceOnEmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {"body": {}}}`))
	})

	if _, found := client.GetTrack(context.Background(), "99"); found {
		t.Fatalf("expected absence for empty track payload")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}
