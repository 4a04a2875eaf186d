package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
	"smart-gallery/infrastructure/googlephotos"
	"smart-gallery/infrastructure/storage"
	"smart-gallery/infrastructure/websocket"
	"smart-gallery/pkg/config"
	"smart-gallery/pkg/logger"
)

// tokenExpirySkew refreshes access tokens slightly before Google would reject them.
const tokenExpirySkew = time.Minute

type GooglePhotosServiceImpl struct {
	cfg          config.GooglePhotosConfig
	oauth        *googlephotos.OAuthClient
	library      *googlephotos.LibraryClient
	credRepo     repositories.OAuthCredentialRepository
	albumRepo    repositories.AlbumMappingRepository
	photoRepo    repositories.PhotoRepository
	categoryRepo repositories.CategoryRepository
	store        storage.MediaStore
	enrichment   services.EnrichmentService
	settings     services.SettingsService
	cache        AlbumCache
	events       EventBroadcaster
	now          func() time.Time
}

func NewGooglePhotosService(
	cfg config.GooglePhotosConfig,
	oauth *googlephotos.OAuthClient,
	library *googlephotos.LibraryClient,
	credRepo repositories.OAuthCredentialRepository,
	albumRepo repositories.AlbumMappingRepository,
	photoRepo repositories.PhotoRepository,
	categoryRepo repositories.CategoryRepository,
	store storage.MediaStore,
	enrichment services.EnrichmentService,
	settings services.SettingsService,
	cache AlbumCache,
	events EventBroadcaster,
) *GooglePhotosServiceImpl {
	if events == nil {
		events = noopBroadcaster{}
	}
	return &GooglePhotosServiceImpl{
		cfg:          cfg,
		oauth:        oauth,
		library:      library,
		credRepo:     credRepo,
		albumRepo:    albumRepo,
		photoRepo:    photoRepo,
		categoryRepo: categoryRepo,
		store:        store,
		enrichment:   enrichment,
		settings:     settings,
		cache:        cache,
		events:       events,
		now:          time.Now,
	}
}

// clientCredentials prefers the stored OAuth client over the environment one.
func (s *GooglePhotosServiceImpl) clientCredentials(cred *models.OAuthCredential) (string, string) {
	if cred.ClientID != "" && cred.ClientSecret != "" {
		return cred.ClientID, cred.ClientSecret
	}
	return s.cfg.ClientID, s.cfg.ClientSecret
}

func (s *GooglePhotosServiceImpl) Status(ctx context.Context) (*services.ConnectionStatus, error) {
	cred, err := s.credRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	id, secret := s.clientCredentials(cred)
	status := &services.ConnectionStatus{
		Configured: id != "" && secret != "",
		State:      services.ConnectionDisconnected,
		ExpiresAt:  cred.Expiry,
	}

	switch {
	case cred.RefreshToken != "":
		status.State = services.ConnectionConnected
	case cred.AccessToken != "" && !cred.Expired(s.now()):
		status.State = services.ConnectionConnected
	case cred.AccessToken != "":
		status.State = services.ConnectionTokenExpired
	}
	return status, nil
}

func (s *GooglePhotosServiceImpl) AuthURL(ctx context.Context, state string) (string, error) {
	cred, err := s.credRepo.Get(ctx)
	if err != nil {
		return "", err
	}
	id, secret := s.clientCredentials(cred)
	if id == "" || secret == "" {
		return "", services.ErrNotConfigured
	}
	return s.oauth.AuthCodeURL(id, secret, state), nil
}

func (s *GooglePhotosServiceImpl) HandleCallback(ctx context.Context, code string) error {
	cred, err := s.credRepo.Get(ctx)
	if err != nil {
		return err
	}
	id, secret := s.clientCredentials(cred)
	if id == "" || secret == "" {
		return services.ErrNotConfigured
	}

	token, err := s.oauth.Exchange(ctx, id, secret, code)
	if err != nil {
		logger.ImportError("oauth_exchange_failed", "Google Photos token exchange failed", err, nil)
		return err
	}

	cred.ClientID = id
	cred.ClientSecret = secret
	s.applyToken(cred, token)
	if err := s.credRepo.Save(ctx, cred); err != nil {
		return fmt.Errorf("failed to save google photos tokens: %w", err)
	}

	logger.Import("connected", "Google Photos connected", map[string]interface{}{
		"has_refresh_token": cred.RefreshToken != "",
	})
	return nil
}

// applyToken copies a token onto the credential. Google omits the refresh token on
// refresh responses, so an existing one is kept.
func (s *GooglePhotosServiceImpl) applyToken(cred *models.OAuthCredential, token *oauth2.Token) {
	cred.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		cred.RefreshToken = token.RefreshToken
	}
	if token.Expiry.IsZero() {
		cred.Expiry = nil
	} else {
		expiry := token.Expiry
		cred.Expiry = &expiry
	}
}

func (s *GooglePhotosServiceImpl) Disconnect(ctx context.Context) error {
	if err := s.credRepo.ClearTokens(ctx); err != nil {
		return fmt.Errorf("failed to clear google photos tokens: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	logger.Import("disconnected", "Google Photos disconnected", nil)
	return nil
}

func (s *GooglePhotosServiceImpl) AccessToken(ctx context.Context) (string, error) {
	cred, err := s.credRepo.Get(ctx)
	if err != nil {
		return "", err
	}
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return "", services.ErrNotConnected
	}

	fresh := cred.AccessToken != "" && (cred.Expiry == nil || s.now().Add(tokenExpirySkew).Before(*cred.Expiry))
	if fresh {
		return cred.AccessToken, nil
	}

	id, secret := s.clientCredentials(cred)
	token, err := s.oauth.Refresh(ctx, id, secret, cred.RefreshToken)
	if err != nil {
		logger.ImportError("token_refresh_failed", "Google Photos token refresh failed", err, nil)
		return "", err
	}

	s.applyToken(cred, token)
	if err := s.credRepo.Save(ctx, cred); err != nil {
		return "", fmt.Errorf("failed to save refreshed token: %w", err)
	}
	return cred.AccessToken, nil
}

func (s *GooglePhotosServiceImpl) SyncAlbums(ctx context.Context) ([]models.AlbumMapping, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	albums, err := s.library.ListAlbums(ctx, token)
	if err != nil {
		logger.ImportError("list_albums_failed", "Failed to list Google Photos albums", err, nil)
		return nil, err
	}
	if len(albums) == 0 {
		return nil, services.ErrNoAlbums
	}

	now := s.now()
	listing := make([]models.AlbumMapping, 0, len(albums))
	for _, album := range albums {
		listing = append(listing, models.AlbumMapping{
			AlbumID:           album.ID,
			Title:             album.Title,
			MediaItemsCount:   album.ItemCount(),
			CoverPhotoBaseURL: album.CoverPhotoBaseURL,
			SyncedAt:          now,
		})
	}
	if err := s.albumRepo.SaveListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to save album listing: %w", err)
	}

	saved, err := s.albumRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, saved); err != nil {
			logger.Warn(logger.CategoryImport, "album_cache_failed", "Failed to cache album listing", map[string]interface{}{"error": err.Error()})
		}
	}

	logger.Import("albums_synced", "Google Photos albums synced", map[string]interface{}{"albums": len(saved)})
	return saved, nil
}

func (s *GooglePhotosServiceImpl) GetAlbums(ctx context.Context) ([]models.AlbumMapping, error) {
	if s.cache != nil {
		if albums, ok, err := s.cache.Get(ctx); err == nil && ok {
			return albums, nil
		}
	}

	albums, err := s.albumRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(albums) > 0 && s.cache != nil {
		s.cache.Set(ctx, albums)
	}
	return albums, nil
}

func (s *GooglePhotosServiceImpl) ImportAlbum(ctx context.Context, req services.ImportRequest) (*services.ImportResult, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	mapping, err := s.albumRepo.GetByAlbumID(ctx, req.AlbumID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	title := strings.TrimSpace(req.AlbumTitle)
	if title == "" && mapping != nil {
		title = mapping.Title
	}
	if title == "" {
		title = req.AlbumID
	}

	category, err := s.resolveCategory(ctx, req.CategoryID, mapping, title)
	if err != nil {
		return nil, err
	}

	items, err := s.library.ListMediaItems(ctx, token, req.AlbumID)
	if err != nil {
		logger.ImportError("list_items_failed", "Failed to list album items", err, map[string]interface{}{"album_id": req.AlbumID})
		return nil, err
	}
	if len(items) == 0 {
		return nil, services.ErrEmptyAlbum
	}

	enrich := s.settings.IsFeatureEnabled(ctx, services.FeatureAITagging) ||
		s.settings.IsFeatureEnabled(ctx, services.FeatureFaceDetection)

	result := &services.ImportResult{AlbumID: req.AlbumID, CategoryID: category.ID}
	for i, item := range items {
		photo, err := s.importItem(ctx, item)
		switch {
		case errors.Is(err, services.ErrDuplicateExternalItem):
			result.Skipped++
		case err != nil:
			logger.ImportError("item_failed", "Failed to import media item", err, map[string]interface{}{
				"album_id": req.AlbumID,
				"media_id": item.ID,
			})
		default:
			result.Imported++
			if err := s.photoRepo.AttachCategory(ctx, photo.ID, category.ID); err != nil {
				logger.ImportError("category_link_failed", "Failed to attach album category", err, map[string]interface{}{"photo_id": photo.ID.String()})
			}
			if enrich {
				if err := s.enrichment.Schedule(ctx, photo.ID, photo.AttachmentID); err != nil {
					logger.ImportError("schedule_failed", "Failed to schedule enrichment", err, map[string]interface{}{"photo_id": photo.ID.String()})
				}
			}
		}

		s.events.Broadcast(websocket.EventImportProgress, map[string]interface{}{
			"album_id":  req.AlbumID,
			"processed": i + 1,
			"total":     len(items),
			"imported":  result.Imported,
			"skipped":   result.Skipped,
		})
	}

	if err := s.albumRepo.SetCategory(ctx, req.AlbumID, title, category.ID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to save album mapping: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	logger.Import("album_imported", fmt.Sprintf("Imported %d photos. Skipped %d duplicates.", result.Imported, result.Skipped), map[string]interface{}{
		"album_id":    req.AlbumID,
		"category_id": category.ID.String(),
		"items":       len(items),
	})
	return result, nil
}

// resolveCategory uses the explicit category, then the album's mapped category, then
// a category named after the album.
func (s *GooglePhotosServiceImpl) resolveCategory(ctx context.Context, explicit *uuid.UUID, mapping *models.AlbumMapping, title string) (*models.Category, error) {
	if explicit != nil {
		return s.categoryRepo.GetByID(ctx, *explicit)
	}
	if mapping != nil && mapping.CategoryID != nil {
		category, err := s.categoryRepo.GetByID(ctx, *mapping.CategoryID)
		if err == nil {
			return category, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}

	category, err := s.categoryRepo.GetByName(ctx, title)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	return s.createCategory(ctx, title)
}

const maxSlugAttempts = 50

// createCategory creates a category named title under the first free slug among
// base, base-2, base-3 and so on.
func (s *GooglePhotosServiceImpl) createCategory(ctx context.Context, title string) (*models.Category, error) {
	base := slugify(title)
	var lastErr error
	for n := 1; n <= maxSlugAttempts; n++ {
		slug := base
		if n > 1 {
			slug = fmt.Sprintf("%s-%d", base, n)
		}

		_, err := s.categoryRepo.GetBySlug(ctx, slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}

		category := &models.Category{Name: title, Slug: slug}
		if lastErr = s.categoryRepo.Create(ctx, category); lastErr == nil {
			return category, nil
		}
		// lost a race: either the name or the slug was taken meanwhile
		if existing, lookupErr := s.categoryRepo.GetByName(ctx, title); lookupErr == nil {
			return existing, nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no free slug for %q", base)
	}
	return nil, fmt.Errorf("failed to create album category: %w", lastErr)
}

// importItem stores one media item as a published photo. Already imported items
// return ErrDuplicateExternalItem.
func (s *GooglePhotosServiceImpl) importItem(ctx context.Context, item googlephotos.MediaItem) (*models.Photo, error) {
	if _, err := s.photoRepo.GetByGooglePhotosMediaID(ctx, item.ID); err == nil {
		return nil, services.ErrDuplicateExternalItem
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	tempPath, err := s.library.Download(ctx, item.BaseURL)
	if err != nil {
		return nil, err
	}

	filename := item.Filename
	if filename == "" {
		filename = fmt.Sprintf("google-photos-%d.jpg", s.now().Unix())
	}

	attachmentID, err := s.store.StoreDownloadedImage(ctx, tempPath, filename)
	if err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	title := item.Filename
	if title == "" {
		title = "Imported Photo"
	}
	mediaID := item.ID
	photo := &models.Photo{
		AttachmentID:        attachmentID,
		Status:              models.PhotoStatusPublished,
		Title:               title,
		Description:         item.Description,
		EventDate:           creationDate(item.MediaMetadata.CreationTime),
		GooglePhotosMediaID: &mediaID,
	}

	if err := s.photoRepo.Create(ctx, photo); err != nil {
		s.store.Delete(ctx, attachmentID)
		// lost a race with a concurrent import of the same item
		if _, lookupErr := s.photoRepo.GetByGooglePhotosMediaID(ctx, item.ID); lookupErr == nil {
			return nil, services.ErrDuplicateExternalItem
		}
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}
	return photo, nil
}

func (s *GooglePhotosServiceImpl) ResyncMappedAlbums(ctx context.Context) ([]services.ImportResult, error) {
	mappings, err := s.albumRepo.ListMapped(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]services.ImportResult, 0, len(mappings))
	for _, mapping := range mappings {
		categoryID := *mapping.CategoryID
		result, err := s.ImportAlbum(ctx, services.ImportRequest{
			AlbumID:    mapping.AlbumID,
			AlbumTitle: mapping.Title,
			CategoryID: &categoryID,
		})
		if err != nil {
			if errors.Is(err, services.ErrAuthExpired) || errors.Is(err, services.ErrNotConnected) {
				return results, err
			}
			logger.ImportError("resync_failed", "Failed to resync album", err, map[string]interface{}{"album_id": mapping.AlbumID})
			continue
		}
		results = append(results, *result)
	}
	return results, nil
}

// creationDate keeps the YYYY-MM-DD prefix of an RFC 3339 creation time.
func creationDate(creationTime string) string {
	if len(creationTime) < 10 {
		return ""
	}
	date := creationTime[:10]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ""
	}
	return date
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "album-" + uuid.NewString()[:8]
	}
	return slug
}
