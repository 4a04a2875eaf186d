package dto

import (
	"strings"

	"smart-gallery/domain/models"
	"smart-gallery/domain/services"
)

const (
	SourceUpload       = "upload"
	SourceGooglePhotos = "google_photos"
)

func PhotoToPhotoResponse(photo *models.Photo) PhotoResponse {
	source := SourceUpload
	if photo.GooglePhotosMediaID != nil {
		source = SourceGooglePhotos
	}

	categories := make([]CategoryResponse, 0, len(photo.Categories))
	for _, c := range photo.Categories {
		categories = append(categories, CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}

	return PhotoResponse{
		ID:                  photo.ID,
		AttachmentID:        photo.AttachmentID,
		Status:              photo.Status,
		Title:               photo.Title,
		Description:         photo.Description,
		EventDate:           photo.EventDate,
		EventDateEnd:        photo.EventDateEnd,
		Location:            photo.Location,
		Source:              source,
		EnrichmentStatus:    photo.EnrichmentStatus,
		EnrichmentUpdatedAt: photo.EnrichmentUpdatedAt,
		Categories:          categories,
		CreatedAt:           photo.CreatedAt,
		UpdatedAt:           photo.UpdatedAt,
	}
}

func PhotosToPhotoResponses(photos []models.Photo) []PhotoResponse {
	out := make([]PhotoResponse, len(photos))
	for i := range photos {
		out[i] = PhotoToPhotoResponse(&photos[i])
	}
	return out
}

func RelatedToRelatedResponses(related []services.RelatedPhoto) []RelatedPhotoResponse {
	out := make([]RelatedPhotoResponse, len(related))
	for i := range related {
		out[i] = RelatedPhotoResponse{
			Photo:      PhotoToPhotoResponse(&related[i].Photo),
			SharedTags: related[i].SharedTags,
		}
	}
	return out
}

// MaskSettings hides secret values, keeping only the last 4 characters.
func MaskSettings(settings map[string]string) map[string]string {
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		if isSecretKey(k) && v != "" {
			if len(v) > 4 {
				v = "****" + v[len(v)-4:]
			} else {
				v = "****"
			}
		}
		out[k] = v
	}
	return out
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "_api_key") || strings.HasSuffix(key, "_secret_key") ||
		strings.HasSuffix(key, "_access_key") || strings.HasSuffix(key, "_secret")
}
