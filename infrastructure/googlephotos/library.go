package googlephotos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"

	"smart-gallery/domain/services"
)

const (
	albumsPageSize     = 50
	mediaItemsPageSize = 100

	// DownloadSizeSuffix requests a bounded rendition of the original.
	DownloadSizeSuffix = "=w2048-h2048"
)

type Album struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	ProductURL        string `json:"productUrl"`
	MediaItemsCount   string `json:"mediaItemsCount"`
	CoverPhotoBaseURL string `json:"coverPhotoBaseUrl"`
}

// ItemCount parses the API's string encoded count.
func (a Album) ItemCount() int64 {
	n, _ := strconv.ParseInt(a.MediaItemsCount, 10, 64)
	return n
}

type MediaMetadata struct {
	CreationTime string `json:"creationTime"`
	Width        string `json:"width"`
	Height       string `json:"height"`
}

type MediaItem struct {
	ID            string        `json:"id"`
	Description   string        `json:"description"`
	ProductURL    string        `json:"productUrl"`
	BaseURL       string        `json:"baseUrl"`
	MimeType      string        `json:"mimeType"`
	Filename      string        `json:"filename"`
	MediaMetadata MediaMetadata `json:"mediaMetadata"`
}

// LibraryClient talks to the Photos Library REST API with a bearer token.
type LibraryClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewLibraryClient(baseURL string, httpClient *http.Client) *LibraryClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &LibraryClient{baseURL: baseURL, httpClient: httpClient}
}

// ListAlbums walks every page of the user's albums.
func (c *LibraryClient) ListAlbums(ctx context.Context, accessToken string) ([]Album, error) {
	var albums []Album
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("pageSize", strconv.Itoa(albumsPageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page struct {
			Albums        []Album `json:"albums"`
			NextPageToken string  `json:"nextPageToken"`
		}
		if err := c.do(ctx, http.MethodGet, "/v1/albums?"+params.Encode(), accessToken, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to list albums: %w", err)
		}

		albums = append(albums, page.Albums...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return albums, nil
}

// ListMediaItems walks every page of an album's contents.
func (c *LibraryClient) ListMediaItems(ctx context.Context, accessToken, albumID string) ([]MediaItem, error) {
	var items []MediaItem
	pageToken := ""

	for {
		body := map[string]interface{}{
			"albumId":  albumID,
			"pageSize": mediaItemsPageSize,
		}
		if pageToken != "" {
			body["pageToken"] = pageToken
		}

		var page struct {
			MediaItems    []MediaItem `json:"mediaItems"`
			NextPageToken string      `json:"nextPageToken"`
		}
		if err := c.do(ctx, http.MethodPost, "/v1/mediaItems:search", accessToken, body, &page); err != nil {
			return nil, fmt.Errorf("failed to search media items: %w", err)
		}

		items = append(items, page.MediaItems...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return items, nil
}

// Download fetches the sized rendition of baseURL into a temp file and returns its path.
// The caller owns the file.
func (c *LibraryClient) Download(ctx context.Context, baseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+DownloadSizeSuffix, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return "", fmt.Errorf("failed to download media: %w", err)
	}

	tmp, err := os.CreateTemp("", "google-photos-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save media: %w", err)
	}
	if n == 0 {
		os.Remove(tmp.Name())
		return "", services.ErrEmptyImage
	}
	return tmp.Name(), nil
}

func (c *LibraryClient) do(ctx context.Context, method, path, accessToken string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", services.ErrAuthExpired, apiErr.Message)
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", services.ErrMalformedResponse, err)
	}
	return nil
}
