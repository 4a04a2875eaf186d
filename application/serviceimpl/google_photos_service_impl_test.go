package serviceimpl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
	"smart-gallery/infrastructure/googlephotos"
	"smart-gallery/infrastructure/websocket"
	"smart-gallery/pkg/config"
)

type fakeGoogle struct {
	server       *httptest.Server
	tokenCalls   atomic.Int32
	items        map[string][]googlephotos.MediaItem
	albums       []googlephotos.Album
	image        []byte
	refreshGrant string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{items: map[string][]googlephotos.MediaItem{}, image: pngBytes(t)}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			io.WriteString(w, `{"access_token":"exchanged","refresh_token":"new-refresh","expires_in":3600,"token_type":"Bearer"}`)
		case "refresh_token":
			if f.refreshGrant == "revoked" {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
				return
			}
			io.WriteString(w, `{"access_token":"refreshed","expires_in":3600,"token_type":"Bearer"}`)
		}
	})
	mux.HandleFunc("/v1/albums", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"albums": f.albums})
	})
	mux.HandleFunc("/v1/mediaItems:search", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AlbumID string `json:"albumId"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]interface{}{"mediaItems": f.items[body.AlbumID]})
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, googlephotos.DownloadSizeSuffix) {
			http.Error(w, "missing size suffix", http.StatusBadRequest)
			return
		}
		w.Write(f.image)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

type memAlbumCache struct {
	mu     sync.Mutex
	albums []models.AlbumMapping
	ok     bool
}

func (c *memAlbumCache) Get(ctx context.Context) ([]models.AlbumMapping, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.albums, c.ok, nil
}

func (c *memAlbumCache) Set(ctx context.Context, albums []models.AlbumMapping) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.albums, c.ok = albums, true
	return nil
}

func (c *memAlbumCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.albums, c.ok = nil, false
	return nil
}

func newGooglePhotosService(t *testing.T, env *testEnv, fake *fakeGoogle, cache AlbumCache) *GooglePhotosServiceImpl {
	t.Helper()
	cfg := config.GooglePhotosConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:3000/api/v1/google-photos/callback",
		AuthURL:      fake.server.URL + "/auth",
		TokenURL:     fake.server.URL + "/token",
		LibraryURL:   fake.server.URL,
	}
	return NewGooglePhotosService(
		cfg,
		googlephotos.NewOAuthClient(cfg),
		googlephotos.NewLibraryClient(cfg.LibraryURL, fake.server.Client()),
		env.creds, env.albums, env.photos, env.categories,
		env.store, env.enrichment, env.settings, cache, env.events,
	)
}

func connect(t *testing.T, env *testEnv, cred models.OAuthCredential) {
	t.Helper()
	if err := env.creds.Save(context.Background(), &cred); err != nil {
		t.Fatal(err)
	}
}

func validCredential() models.OAuthCredential {
	expiry := time.Now().Add(time.Hour)
	return models.OAuthCredential{AccessToken: "valid", RefreshToken: "refresh", Expiry: &expiry}
}

func TestGooglePhotosService_ImportAlbum(t *testing.T) {
	env := newTestEnv(t)
	fake := newFakeGoogle(t)
	cache := &memAlbumCache{}
	svc := newGooglePhotosService(t, env, fake, cache)
	ctx := context.Background()
	connect(t, env, validCredential())
	cache.Set(ctx, []models.AlbumMapping{{AlbumID: "stale"}})

	fake.items["album-1"] = []googlephotos.MediaItem{
		{ID: "item-1", Filename: "beach.jpg", Description: "At the beach", BaseURL: fake.server.URL + "/media/1",
			MediaMetadata: googlephotos.MediaMetadata{CreationTime: "2023-07-14T10:00:00Z"}},
		{ID: "item-2", Filename: "dup.jpg", BaseURL: fake.server.URL + "/media/2"},
		{ID: "item-3", BaseURL: fake.server.URL + "/media/3"},
	}
	dupID := "item-2"
	env.photos.Create(ctx, &models.Photo{Status: models.PhotoStatusPublished, Title: "dup", GooglePhotosMediaID: &dupID})

	result, err := svc.ImportAlbum(ctx, services.ImportRequest{AlbumID: "album-1", AlbumTitle: "Summer Trip"})
	if err != nil {
		t.Fatalf("ImportAlbum() error = %v", err)
	}
	if result.Imported != 2 || result.Skipped != 1 {
		t.Fatalf("result = %+v, want 2 imported 1 skipped", result)
	}

	photo, err := env.photos.GetByGooglePhotosMediaID(ctx, "item-1")
	if err != nil {
		t.Fatal(err)
	}
	if photo.EventDate != "2023-07-14" || photo.Title != "beach.jpg" || photo.Description != "At the beach" {
		t.Errorf("photo = %+v", photo)
	}
	if photo.Status != models.PhotoStatusPublished {
		t.Errorf("status = %s", photo.Status)
	}
	if _, err := env.store.GetFilePath(ctx, photo.AttachmentID); err != nil {
		t.Errorf("binary not stored: %v", err)
	}

	untitled, _ := env.photos.GetByGooglePhotosMediaID(ctx, "item-3")
	if untitled.Title != "Imported Photo" || untitled.EventDate != "" {
		t.Errorf("untitled = %+v", untitled)
	}

	category, err := env.categories.GetByName(ctx, "Summer Trip")
	if err != nil {
		t.Fatal(err)
	}
	if category.Slug != "summer-trip" || result.CategoryID != category.ID {
		t.Errorf("category = %+v", category)
	}
	if ok, _ := env.photos.HasCategory(ctx, photo.ID, category.ID); !ok {
		t.Error("imported photo not in album category")
	}

	mapping, err := env.albums.GetByAlbumID(ctx, "album-1")
	if err != nil || mapping.CategoryID == nil || *mapping.CategoryID != category.ID {
		t.Errorf("mapping = %+v, err = %v", mapping, err)
	}
	if env.queue.count() != 2 {
		t.Errorf("enrichment jobs = %d, want 2", env.queue.count())
	}
	if _, ok, _ := cache.Get(ctx); ok {
		t.Error("album cache not invalidated")
	}
	if env.events.count(websocket.EventImportProgress) != 3 {
		t.Errorf("progress events = %d", env.events.count(websocket.EventImportProgress))
	}

	again, err := svc.ImportAlbum(ctx, services.ImportRequest{AlbumID: "album-1"})
	if err != nil {
		t.Fatal(err)
	}
	if again.Imported != 0 || again.Skipped != 3 || again.CategoryID != category.ID {
		t.Errorf("second import = %+v", again)
	}
}

func TestGooglePhotosService_ImportSlugCollision(t *testing.T) {
	env := newTestEnv(t)
	fake := newFakeGoogle(t)
	svc := newGooglePhotosService(t, env, fake, nil)
	ctx := context.Background()
	connect(t, env, validCredential())

	if err := env.categories.Create(ctx, &models.Category{Name: models.PeopleCategoryName, Slug: models.PeopleCategorySlug}); err != nil {
		t.Fatal(err)
	}

	albums := []struct {
		id, title, wantSlug string
	}{
		{"album-a", "Summer 2024", "summer-2024"},
		{"album-b", "Summer 2024!", "summer-2024-2"},
		{"album-c", "Summer, 2024", "summer-2024-3"},
		{"album-d", "people", "people-2"},
	}

	for _, album := range albums {
		fake.items[album.id] = []googlephotos.MediaItem{
			{ID: album.id + "-item", Filename: "x.jpg", BaseURL: fake.server.URL + "/media/" + album.id},
		}
		result, err := svc.ImportAlbum(ctx, services.ImportRequest{AlbumID: album.id, AlbumTitle: album.title})
		if err != nil {
			t.Fatalf("import %q: %v", album.title, err)
		}
		if result.Imported != 1 {
			t.Errorf("import %q = %+v", album.title, result)
		}

		category, err := env.categories.GetByName(ctx, album.title)
		if err != nil {
			t.Fatalf("category %q: %v", album.title, err)
		}
		if category.Slug != album.wantSlug || result.CategoryID != category.ID {
			t.Errorf("category %q slug = %q, want %q", album.title, category.Slug, album.wantSlug)
		}
	}
}

func TestGooglePhotosService_ImportFailuresCountedNowhere(t *testing.T) {
	env := newTestEnv(t)
	fake := newFakeGoogle(t)
	svc := newGooglePhotosService(t, env, fake, nil)
	connect(t, env, validCredential())

	fake.items["album-1"] = []googlephotos.MediaItem{
		{ID: "ok", Filename: "ok.jpg", BaseURL: fake.server.URL + "/media/ok"},
		{ID: "broken", Filename: "broken.jpg", BaseURL: fake.server.URL + "/missing/broken"},
	}

	result, err := svc.ImportAlbum(context.Background(), services.ImportRequest{AlbumID: "album-1", AlbumTitle: "Mixed"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Imported != 1 || result.Skipped != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestGooglePhotosService_ImportExplicitCategory(t *testing.T) {
	env := newTestEnv(t)
	fake := newFakeGoogle(t)
	svc := newGooglePhotosService(t, env, fake, nil)
	ctx := context.Background()
	connect(t, env, validCredential())

	category := &models.Category{Name: "Family", Slug: "family"}
	env.categories.Create(ctx, category)
	fake.items["album-1"] = []googlephotos.MediaItem{{ID: "a", Filename: "a.jpg", BaseURL: fake.server.URL + "/media/a"}}

	result, err := svc.ImportAlbum(ctx, services.ImportRequest{AlbumID: "album-1", AlbumTitle: "Ignored", CategoryID: &category.ID})
	if err != nil {
		t.Fatal(err)
	}
	if result.CategoryID != category.ID {
		t.Errorf("category = %s, want %s", result.CategoryID, category.ID)
	}
	if _, err := env.categories.GetByName(ctx, "Ignored"); !errors.Is(err, repositories.ErrNotFound) {
		t.Error("album-named category created despite explicit category")
	}
}

func TestGooglePhotosService_ImportEmptyAlbum(t *testing.T) {
	env := newTestEnv(t)
	fake := newFakeGoogle(t)
	svc := newGooglePhotosService(t, env, fake, nil)
	connect(t, env, validCredential())

	_, err := svc.ImportAlbum(context.Background(), services.ImportRequest{AlbumID: "empty", AlbumTitle: "Empty"})
	if !errors.Is(err, services.ErrEmptyAlbum) {
		t.Errorf("err = %v, want ErrEmptyAlbum", err)
	}
}

func TestGooglePhotosService_AccessToken(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name       string
		cred       *models.OAuthCredential
		grant      string
		want       string
		wantErr    error
		tokenCalls int32
	}{
		{
			name:    "nothing stored",
			wantErr: services.ErrNotConnected,
		},
		{
			name:       "valid token used as is",
			cred:       func() *models.OAuthCredential { c := validCredential(); return &c }(),
			want:       "valid",
			tokenCalls: 0,
		},
		{
			name:       "expired token refreshed",
			cred:       &models.OAuthCredential{AccessToken: "old", RefreshToken: "refresh", Expiry: &past},
			want:       "refreshed",
			tokenCalls: 1,
		},
		{
			name:       "empty access token refreshed",
			cred:       &models.OAuthCredential{RefreshToken: "refresh"},
			want:       "refreshed",
			tokenCalls: 1,
		},
		{
			name:       "expired without refresh token",
			cred:       &models.OAuthCredential{AccessToken: "old", Expiry: &past},
			wantErr:    services.ErrAuthExpired,
			tokenCalls: 0,
		},
		{
			name:       "revoked refresh token",
			cred:       &models.OAuthCredential{AccessToken: "old", RefreshToken: "refresh", Expiry: &past},
			grant:      "revoked",
			wantErr:    services.ErrAuthExpired,
			tokenCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			fake := newFakeGoogle(t)
			fake.refreshGrant = tt.grant
			svc := newGooglePhotosService(t, env, fake, nil)
			ctx := context.Background()
			if tt.cred != nil {
				connect(t, env, *tt.cred)
			}

			got, err := svc.AccessToken(ctx)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil || got != tt.want {
				t.Fatalf("AccessToken() = %q, %v; want %q", got, err, tt.want)
			}
			if calls := fake.tokenCalls.Load(); calls != tt.tokenCalls {
				t.Errorf("token endpoint calls = %d, want %d", calls, tt.tokenCalls)
			}

			if tt.want == "refreshed" {
				stored, _ := env.creds.Get(ctx)
				if stored.AccessToken != "refreshed" || stored.RefreshToken != "refresh" || stored.Expiry == nil {
					t.Errorf("stored = %+v", stored)
				}
			}
		})
	}
}

func TestGooglePhotosService_ConnectFlow(t *testing.T) {
	env := newTestEnv(t)
	fake := newFakeGoogle(t)
	cache := &memAlbumCache{}
	svc := newGooglePhotosService(t, env, fake, cache)
	ctx := context.Background()

	status, _ := svc.Status(ctx)
	if !status.Configured || status.State != services.ConnectionDisconnected {
		t.Errorf("status = %+v", status)
	}

	authURL, err := svc.AuthURL(ctx, "signed-state")
	if err != nil || !strings.Contains(authURL, "state=signed-state") || !strings.HasPrefix(authURL, fake.server.URL+"/auth") {
		t.Fatalf("AuthURL() = %q, %v", authURL, err)
	}

	if err := svc.HandleCallback(ctx, "code"); err != nil {
		t.Fatal(err)
	}
	stored, _ := env.creds.Get(ctx)
	if stored.AccessToken != "exchanged" || stored.RefreshToken != "new-refresh" || stored.ClientID != "client-id" {
		t.Errorf("stored = %+v", stored)
	}
	status, _ = svc.Status(ctx)
	if status.State != services.ConnectionConnected {
		t.Errorf("state = %s", status.State)
	}

	fake.albums = []googlephotos.Album{
		{ID: "a1", Title: "Beach", MediaItemsCount: "12"},
		{ID: "a2", Title: "Alps", MediaItemsCount: "3"},
	}
	albums, err := svc.SyncAlbums(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(albums) != 2 || albums[0].Title != "Alps" || albums[1].MediaItemsCount != 12 {
		t.Errorf("albums = %+v", albums)
	}
	if cached, ok, _ := cache.Get(ctx); !ok || len(cached) != 2 {
		t.Error("album listing not cached")
	}

	if err := svc.Disconnect(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AccessToken(ctx); !errors.Is(err, services.ErrNotConnected) {
		t.Errorf("after disconnect err = %v", err)
	}
	if _, ok, _ := cache.Get(ctx); ok {
		t.Error("cache kept after disconnect")
	}
	stored, _ = env.creds.Get(ctx)
	if stored.ClientID != "client-id" {
		t.Error("disconnect dropped the client credentials")
	}
}

func TestGooglePhotosService_SyncNoAlbums(t *testing.T) {
	env := newTestEnv(t)
	fake := newFakeGoogle(t)
	svc := newGooglePhotosService(t, env, fake, nil)
	connect(t, env, validCredential())

	if _, err := svc.SyncAlbums(context.Background()); !errors.Is(err, services.ErrNoAlbums) {
		t.Errorf("err = %v", err)
	}
}

func TestGooglePhotosService_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	fake := newFakeGoogle(t)
	svc := newGooglePhotosService(t, env, fake, nil)
	svc.cfg.ClientID = ""

	if _, err := svc.AuthURL(context.Background(), "state"); !errors.Is(err, services.ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
}

func TestGooglePhotosService_ResyncMappedAlbums(t *testing.T) {
	env := newTestEnv(t)
	fake := newFakeGoogle(t)
	svc := newGooglePhotosService(t, env, fake, nil)
	ctx := context.Background()
	connect(t, env, validCredential())

	fake.items["album-1"] = []googlephotos.MediaItem{{ID: "a", Filename: "a.jpg", BaseURL: fake.server.URL + "/media/a"}}
	if _, err := svc.ImportAlbum(ctx, services.ImportRequest{AlbumID: "album-1", AlbumTitle: "Trip"}); err != nil {
		t.Fatal(err)
	}
	fake.items["album-1"] = append(fake.items["album-1"], googlephotos.MediaItem{ID: "b", Filename: "b.jpg", BaseURL: fake.server.URL + "/media/b"})

	results, err := svc.ResyncMappedAlbums(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Imported != 1 || results[0].Skipped != 1 {
		t.Errorf("results = %+v", results)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Summer Trip 2023": "summer-trip-2023",
		"  Café & Bar ":    "caf-bar",
		"---":              "",
	}
	for in, want := range tests {
		got := slugify(in)
		if want == "" {
			if !strings.HasPrefix(got, "album-") {
				t.Errorf("slugify(%q) = %q, want album- fallback", in, got)
			}
			continue
		}
		if got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
