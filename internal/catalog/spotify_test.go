package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/pkg/spotify"
)

func newTestSpotify(t *testing.T, api http.HandlerFunc) *Spotify {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/", api)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := spotify.NewClient(spotify.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Market:       "US",
		BaseURL:      server.URL,
		TokenURL:     server.URL + "/token",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return NewSpotify(client, zerolog.Nop())
}

func trackJSON(id, name string, artists ...string) string {
	parts := make([]string, len(artists))
	for i, a := range artists {
		parts[i] = fmt.Sprintf(`{"id":"id-%s","name":%q}`, strings.ToLower(a), a)
	}
	return fmt.Sprintf(`{"id":%q,"name":%q,"artists":[%s]}`, id, name, strings.Join(parts, ","))
}

func TestSpotify_SearchTracksPages(t *testing.T) {
	var requests int
	s := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items := make([]string, 0, limit)
		for i := 0; i < limit; i++ {
			items = append(items, trackJSON(fmt.Sprintf("t%d", offset+i), "Song", "Artist"))
		}
		fmt.Fprintf(w, `{"tracks":{"items":[%s],"total":500,"limit":%d,"offset":%d,"next":"more"}}`,
			strings.Join(items, ","), limit, offset)
	})

	tracks, err := s.SearchTracks(context.Background(), "jazz", SearchOptions{Limit: 70})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tracks) != 70 {
		t.Fatalf("expected 70 tracks, got %d", len(tracks))
	}
	if tracks[69].ID != "t69" {
		t.Errorf("expected contiguous paging, last id %s", tracks[69].ID)
	}
	if requests != 2 {
		t.Errorf("expected 2 requests, got %d", requests)
	}
}

func TestSpotify_SearchPlaylistsFillsFollowers(t *testing.T) {
	s := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/search":
			_, _ = w.Write([]byte(`{"playlists":{"items":[
				{"id":"p1","name":"Coachella 2024","owner":{"display_name":"fan"},"tracks":{"total":50}},
				null,
				{"id":"p2","name":"Coachella Official","owner":{"display_name":"coachella"},"tracks":{"total":90}},
				{"id":"p3","name":"Gone","tracks":{"total":10}}
			],"total":4}}`))
		case r.URL.Path == "/playlists/p1":
			_, _ = w.Write([]byte(`{"id":"p1","followers":{"total":1200}}`))
		case r.URL.Path == "/playlists/p2":
			_, _ = w.Write([]byte(`{"id":"p2","followers":{"total":98000}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	playlists, err := s.SearchPlaylists(context.Background(), "coachella 2024", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(playlists) != 3 {
		t.Fatalf("expected 3 playlists, got %d", len(playlists))
	}
	want := map[string]int{"p1": 1200, "p2": 98000, "p3": 0}
	for _, p := range playlists {
		if p.Followers != want[p.ID] {
			t.Errorf("playlist %s: expected %d followers, got %d", p.ID, want[p.ID], p.Followers)
		}
	}
}

func TestSpotify_PlaylistTracksSkipsRemoved(t *testing.T) {
	s := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"items":[{"track":%s},{"track":null},{"track":%s}],"total":3}`,
			trackJSON("t1", "One", "A"), trackJSON("t2", "Two", "B"))
	})

	tracks, err := s.PlaylistTracks(context.Background(), Playlist{ID: "p1"}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tracks) != 2 || tracks[0].ID != "t1" || tracks[1].ID != "t2" {
		t.Errorf("unexpected tracks: %+v", tracks)
	}
}

func TestSpotify_ResolveArtist(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		body    string
		want    ArtistRef
		wantErr error
	}{
		{
			name:  "prefers exact normalized match",
			query: "bad bunny",
			body:  `{"artists":{"items":[{"id":"x","name":"Bad Bunny Tribute"},{"id":"bb","name":"Bad Bunny"}]}}`,
			want:  ArtistRef{ID: "bb", Name: "Bad Bunny"},
		},
		{
			name:  "accepts word boundary match",
			query: "bad bunny",
			body:  `{"artists":{"items":[{"id":"x","name":"Bunny Rabbit"},{"id":"bj","name":"Bad Bunny & Jhay Cortez"}]}}`,
			want:  ArtistRef{ID: "bj", Name: "Bad Bunny & Jhay Cortez"},
		},
		{
			name:    "rejects unrelated top hit",
			query:   "bad bunny",
			body:    `{"artists":{"items":[{"id":"x","name":"Bunny Rabbit"}]}}`,
			wantErr: ErrNotFound,
		},
		{
			name:    "short name is not a prefix match",
			query:   "Ana",
			body:    `{"artists":{"items":[{"id":"an","name":"Anabel"},{"id":"am","name":"Ana Mena"}]}}`,
			wantErr: ErrNotFound,
		},
		{
			name:    "no results",
			query:   "bad bunny",
			body:    `{"artists":{"items":[]}}`,
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := s.ResolveArtist(context.Background(), tt.query)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if got.ID != "" || got.Name != tt.query {
					t.Errorf("got %+v, want only the requested name", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSpotify_ArtistTopTracksCompletesWithSearch(t *testing.T) {
	s := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/artists/id-rosalia/top-tracks":
			fmt.Fprintf(w, `{"tracks":[%s,%s]}`,
				trackJSON("t1", "Despechá", "Rosalia"), trackJSON("t2", "Saoko", "Rosalia"))
		case "/search":
			fmt.Fprintf(w, `{"tracks":{"items":[%s,%s,%s]}}`,
				trackJSON("t1", "Despechá", "Rosalia"),
				trackJSON("t3", "Cover", "Someone Else"),
				trackJSON("t4", "La Fama", "Rosalia", "The Weeknd"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	tracks, err := s.ArtistTopTracks(context.Background(), ArtistRef{ID: "id-rosalia", Name: "Rosalia"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := make([]string, len(tracks))
	for i, tr := range tracks {
		ids[i] = tr.ID
	}
	if got := strings.Join(ids, ","); got != "t1,t2,t4" {
		t.Errorf("expected t1,t2,t4, got %s", got)
	}
}

func TestSpotify_RelatedTracksWithoutSeeds(t *testing.T) {
	s := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without seeds")
	})

	tracks, err := s.RelatedTracks(context.Background(), nil, 10)
	if err != nil || tracks != nil {
		t.Errorf("expected nil, nil; got %v, %v", tracks, err)
	}
}
