package googlephotos

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"smart-gallery/domain/services"
	"smart-gallery/pkg/config"
)

func newTestOAuth(tokenURL string) *OAuthClient {
	return NewOAuthClient(config.GooglePhotosConfig{
		AuthURL:     "https://accounts.example.com/auth",
		TokenURL:    tokenURL,
		RedirectURL: "http://localhost:3000/api/v1/google-photos/callback",
	})
}

func TestAuthCodeURL(t *testing.T) {
	c := newTestOAuth("https://accounts.example.com/token")
	raw := c.AuthCodeURL("client-id", "secret", "state-123")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	checks := map[string]string{
		"client_id":     "client-id",
		"scope":         LibraryReadonlyScope,
		"access_type":   "offline",
		"prompt":        "consent",
		"state":         "state-123",
		"response_type": "code",
		"redirect_uri":  "http://localhost:3000/api/v1/google-photos/callback",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") != "authorization_code" || r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant","error_description":"Malformed auth code."}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600,"token_type":"Bearer"}`)
	}))
	defer server.Close()

	c := newTestOAuth(server.URL)

	token, err := c.Exchange(context.Background(), "id", "secret", "good-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if token.AccessToken != "at-1" || token.RefreshToken != "rt-1" || token.Expiry.IsZero() {
		t.Errorf("token = %+v", token)
	}

	_, err = c.Exchange(context.Background(), "id", "secret", "bad-code")
	if err == nil || !strings.Contains(err.Error(), "Malformed auth code.") {
		t.Errorf("err = %v, want provider message", err)
	}
	if got := services.ProviderMessage(err); got != "Malformed auth code." {
		t.Errorf("ProviderMessage = %q", got)
	}
}

func TestRefresh(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("refresh_token") == "revoked" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
			return
		}
		io.WriteString(w, `{"access_token":"at-2","expires_in":3600,"token_type":"Bearer"}`)
	}))
	defer server.Close()

	c := newTestOAuth(server.URL)
	ctx := context.Background()

	if _, err := c.Refresh(ctx, "id", "secret", ""); !errors.Is(err, services.ErrAuthExpired) {
		t.Errorf("empty refresh token: err = %v, want ErrAuthExpired", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("empty refresh token must not reach the token endpoint")
	}

	token, err := c.Refresh(ctx, "id", "secret", "rt-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if token.AccessToken != "at-2" {
		t.Errorf("access token = %q", token.AccessToken)
	}

	if _, err := c.Refresh(ctx, "id", "secret", "revoked"); !errors.Is(err, services.ErrAuthExpired) {
		t.Errorf("revoked: err = %v, want ErrAuthExpired", err)
	}
}

func TestListAlbums_Paginates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":{"code":401,"message":"Request had invalid authentication credentials."}}`)
			return
		}
		if r.URL.Query().Get("pageToken") == "" {
			io.WriteString(w, `{"albums":[{"id":"a1","title":"Trip","mediaItemsCount":"12"}],"nextPageToken":"p2"}`)
			return
		}
		io.WriteString(w, `{"albums":[{"id":"a2","title":"Party","mediaItemsCount":"3","coverPhotoBaseUrl":"https://img/x"}]}`)
	}))
	defer server.Close()

	c := NewLibraryClient(server.URL, nil)

	albums, err := c.ListAlbums(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ListAlbums: %v", err)
	}
	if len(albums) != 2 || albums[0].ID != "a1" || albums[1].Title != "Party" {
		t.Fatalf("albums = %+v", albums)
	}
	if albums[0].ItemCount() != 12 {
		t.Errorf("count = %d", albums[0].ItemCount())
	}

	_, err = c.ListAlbums(context.Background(), "expired")
	if !errors.Is(err, services.ErrAuthExpired) {
		t.Errorf("err = %v, want ErrAuthExpired", err)
	}
}

func TestListMediaItems(t *testing.T) {
	var pages int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/mediaItems:search" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["albumId"] != "album-1" || body["pageSize"] != float64(100) {
			t.Errorf("body = %v", body)
		}

		atomic.AddInt32(&pages, 1)
		if body["pageToken"] == nil {
			io.WriteString(w, `{"mediaItems":[{"id":"m1","baseUrl":"https://lh3/x","filename":"a.jpg","mediaMetadata":{"creationTime":"2023-07-04T18:30:00Z"}}],"nextPageToken":"next"}`)
			return
		}
		io.WriteString(w, `{"mediaItems":[{"id":"m2","baseUrl":"https://lh3/y"}]}`)
	}))
	defer server.Close()

	items, err := NewLibraryClient(server.URL, nil).ListMediaItems(context.Background(), "tok", "album-1")
	if err != nil {
		t.Fatalf("ListMediaItems: %v", err)
	}
	if len(items) != 2 || pages != 2 {
		t.Fatalf("items = %+v pages = %d", items, pages)
	}
	if items[0].MediaMetadata.CreationTime != "2023-07-04T18:30:00Z" {
		t.Errorf("creation time = %q", items[0].MediaMetadata.CreationTime)
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok=w2048-h2048":
			io.WriteString(w, "jpeg-bytes")
		case "/empty=w2048-h2048":
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewLibraryClient(server.URL, nil)
	ctx := context.Background()

	path, err := c.Download(ctx, server.URL+"/ok")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer os.Remove(path)
	data, _ := os.ReadFile(path)
	if string(data) != "jpeg-bytes" {
		t.Errorf("content = %q", data)
	}

	if _, err := c.Download(ctx, server.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}
	if _, err := c.Download(ctx, server.URL+"/empty"); !errors.Is(err, services.ErrEmptyImage) {
		t.Errorf("err = %v, want ErrEmptyImage", err)
	}
}
