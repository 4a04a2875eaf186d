package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"smart-gallery/domain/dto"
	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
	"smart-gallery/pkg/utils"
)

type PhotoHandler struct {
	photoService          services.PhotoService
	enrichmentService     services.EnrichmentService
	recommendationService services.RecommendationService
}

func NewPhotoHandler(photoService services.PhotoService, enrichmentService services.EnrichmentService, recommendationService services.RecommendationService) *PhotoHandler {
	return &PhotoHandler{
		photoService:          photoService,
		enrichmentService:     enrichmentService,
		recommendationService: recommendationService,
	}
}

// Upload stores a new photo and schedules it for enrichment
// @Summary Upload a photo
// @Tags Photos
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image file (jpg, png, gif, webp; max 10MB)"
// @Param title formData string false "Title"
// @Param event_date formData string false "Event date (YYYY-MM-DD)"
// @Param categories formData string false "Comma separated category ids"
// @Success 201 {object} utils.Response{data=dto.PhotoResponse}
// @Router /api/v1/photos [post]
func (h *PhotoHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Image file is required", err)
	}

	var form dto.UploadForm
	if err := c.BodyParser(&form); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid form data", err)
	}
	if err := utils.ValidateStruct(&form); err != nil {
		return utils.ValidationErrorResponse(c, err)
	}

	categoryIDs, err := parseUUIDList(form.Categories)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid category ID", err)
	}

	f, err := file.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read file", err)
	}
	defer f.Close()

	input := services.UploadInput{
		Filename:     file.Filename,
		Size:         file.Size,
		Content:      f,
		Title:        form.Title,
		Description:  form.Description,
		EventDate:    form.EventDate,
		EventDateEnd: form.EventDateEnd,
		Location:     form.Location,
		CategoryIDs:  categoryIDs,
	}
	if user := currentUser(c); user != nil {
		input.OwnerID = &user.ID
	}

	photo, err := h.photoService.Upload(c.UserContext(), input)
	if err != nil {
		return serviceError(c, "Failed to upload photo", err)
	}

	return utils.CreatedResponse(c, "Photo uploaded", dto.PhotoToPhotoResponse(photo))
}

// List returns photos, newest first. Anonymous callers only see published photos.
// @Summary List photos
// @Tags Photos
// @Produce json
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Param status query string false "Photo status (admin only)"
// @Param enrichment_status query string false "Enrichment status"
// @Param category_id query string false "Category ID"
// @Success 200 {object} utils.Response{data=utils.PaginatedData}
// @Router /api/v1/photos [get]
func (h *PhotoHandler) List(c *fiber.Ctx) error {
	filter := repositories.PhotoFilter{
		Status:           models.PhotoStatus(c.Query("status")),
		EnrichmentStatus: models.EnrichmentStatus(c.Query("enrichment_status")),
	}
	if !currentUser(c).IsAdmin() {
		filter.Status = models.PhotoStatusPublished
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid category ID", err)
		}
		filter.CategoryID = &id
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	photos, total, err := h.photoService.List(c.UserContext(), filter, page, limit)
	if err != nil {
		return serviceError(c, "Failed to list photos", err)
	}

	return utils.PaginatedResponse(c, "Photos retrieved", dto.PhotosToPhotoResponses(photos), total, page, limit)
}

// Search finds published photos by text, category, event dates and tags
// @Summary Search photos
// @Tags Photos
// @Produce json
// @Param q query string false "Text matched against titles, descriptions, tags and keywords"
// @Param category_id query string false "Category ID"
// @Param date_from query string false "Event date from (YYYY-MM-DD)"
// @Param date_to query string false "Event date to (YYYY-MM-DD)"
// @Param tags query string false "Comma separated tag names"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} utils.Response{data=utils.PaginatedData}
// @Router /api/v1/photos/search [get]
func (h *PhotoHandler) Search(c *fiber.Ctx) error {
	var params dto.SearchParams
	if err := c.QueryParser(&params); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", err)
	}
	if err := utils.ValidateStruct(&params); err != nil {
		return utils.ValidationErrorResponse(c, err)
	}

	query := repositories.PhotoSearch{
		Text:     params.Query,
		DateFrom: params.DateFrom,
		DateTo:   params.DateTo,
	}
	if params.Category != "" {
		id, err := uuid.Parse(params.Category)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid category ID", err)
		}
		query.CategoryID = &id
	}
	if params.Tags != "" {
		query.Tags = strings.Split(params.Tags, ",")
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	photos, total, err := h.photoService.Search(c.UserContext(), query, page, limit)
	if err != nil {
		return serviceError(c, "Failed to search photos", err)
	}

	return utils.PaginatedResponse(c, "Photos found", dto.PhotosToPhotoResponses(photos), total, page, limit)
}

// Get returns one photo
// @Summary Get a photo
// @Tags Photos
// @Produce json
// @Param id path string true "Photo ID"
// @Success 200 {object} utils.Response{data=dto.PhotoResponse}
// @Router /api/v1/photos/{id} [get]
func (h *PhotoHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	photo, err := h.photoService.Get(c.UserContext(), id)
	if err != nil {
		return serviceError(c, "Failed to get photo", err)
	}
	if !photo.IsPublished() && !currentUser(c).IsAdmin() {
		return utils.NotFoundResponse(c, "Photo not found")
	}

	return utils.SuccessResponse(c, "Photo retrieved", dto.PhotoToPhotoResponse(photo))
}

// @Summary Delete a photo and its binary
// @Tags Photos
// @Security BearerAuth
// @Param id path string true "Photo ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/photos/{id} [delete]
func (h *PhotoHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	if err := h.photoService.Delete(c.UserContext(), id); err != nil {
		return serviceError(c, "Failed to delete photo", err)
	}
	return utils.SuccessResponse(c, "Photo deleted", nil)
}

// @Summary Publish a pending photo
// @Tags Photos
// @Security BearerAuth
// @Param id path string true "Photo ID"
// @Success 200 {object} utils.Response{data=dto.PhotoResponse}
// @Router /api/v1/photos/{id}/approve [post]
func (h *PhotoHandler) Approve(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	photo, err := h.photoService.Approve(c.UserContext(), id)
	if err != nil {
		return serviceError(c, "Failed to approve photo", err)
	}
	return utils.SuccessResponse(c, "Photo approved", dto.PhotoToPhotoResponse(photo))
}

// @Summary Reject a pending photo, removing it
// @Tags Photos
// @Security BearerAuth
// @Param id path string true "Photo ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/photos/{id}/reject [post]
func (h *PhotoHandler) Reject(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	if err := h.photoService.Reject(c.UserContext(), id); err != nil {
		return serviceError(c, "Failed to reject photo", err)
	}
	return utils.SuccessResponse(c, "Photo rejected", nil)
}

// Enrich queues a (re-)run of vision enrichment
// @Summary Schedule enrichment
// @Tags Enrichment
// @Security BearerAuth
// @Param id path string true "Photo ID"
// @Success 202 {object} utils.Response{data=services.EnrichmentStatusView}
// @Router /api/v1/photos/{id}/enrich [post]
func (h *PhotoHandler) Enrich(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	ctx := c.UserContext()
	photo, err := h.photoService.Get(ctx, id)
	if err != nil {
		return serviceError(c, "Failed to schedule enrichment", err)
	}
	if err := h.enrichmentService.Schedule(ctx, photo.ID, photo.AttachmentID); err != nil {
		return serviceError(c, "Failed to schedule enrichment", err)
	}

	status, err := h.enrichmentService.GetStatus(ctx, id)
	if err != nil {
		return serviceError(c, "Failed to get enrichment status", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(utils.Response{Success: true, Message: "Enrichment scheduled", Data: status})
}

// @Summary Enrichment status and transition log
// @Tags Enrichment
// @Security BearerAuth
// @Param id path string true "Photo ID"
// @Success 200 {object} utils.Response{data=services.EnrichmentStatusView}
// @Router /api/v1/photos/{id}/enrichment [get]
func (h *PhotoHandler) EnrichmentStatus(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	status, err := h.enrichmentService.GetStatus(c.UserContext(), id)
	if err != nil {
		return serviceError(c, "Failed to get enrichment status", err)
	}
	return utils.SuccessResponse(c, "Enrichment status retrieved", status)
}

// GetTags returns the unique tag names of a photo
// @Summary Get photo tags
// @Tags Tags
// @Param id path string true "Photo ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/photos/{id}/tags [get]
func (h *PhotoHandler) GetTags(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	names, err := h.photoService.GetTags(c.UserContext(), id)
	if err != nil {
		return serviceError(c, "Failed to get tags", err)
	}
	return utils.SuccessResponse(c, "Tags retrieved", fiber.Map{"tags": names, "count": len(names)})
}

// @Summary Get vision labels ordered by confidence
// @Tags Tags
// @Param id path string true "Photo ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/photos/{id}/ai-tags [get]
func (h *PhotoHandler) GetAITags(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	tags, err := h.photoService.GetAITags(c.UserContext(), id)
	if err != nil {
		return serviceError(c, "Failed to get AI tags", err)
	}
	return utils.SuccessResponse(c, "AI tags retrieved", fiber.Map{"tags": tags, "count": len(tags)})
}

// @Summary Add a manual tag
// @Tags Tags
// @Security BearerAuth
// @Param id path string true "Photo ID"
// @Param request body dto.AddTagRequest true "Tag"
// @Success 201 {object} utils.Response
// @Router /api/v1/photos/{id}/tags [post]
func (h *PhotoHandler) AddTag(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	var req dto.AddTagRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return utils.ValidationErrorResponse(c, err)
	}

	tag, err := h.photoService.AddManualTag(c.UserContext(), id, req.Name)
	if err != nil {
		return serviceError(c, "Failed to add tag", err)
	}
	return utils.CreatedResponse(c, "Tag added", tag)
}

// @Summary Get detected faces
// @Tags Faces
// @Param id path string true "Photo ID"
// @Success 200 {object} utils.Response
// @Router /api/v1/photos/{id}/faces [get]
func (h *PhotoHandler) GetFaces(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	faces, err := h.photoService.GetFaces(c.UserContext(), id)
	if err != nil {
		return serviceError(c, "Failed to get faces", err)
	}
	return utils.SuccessResponse(c, "Faces retrieved", fiber.Map{"faces": faces, "count": len(faces)})
}

// Related returns published photos ranked by shared tag names
// @Summary Related photos
// @Tags Photos
// @Param id path string true "Photo ID"
// @Param limit query int false "Max results (max 50)" default(12)
// @Success 200 {object} utils.Response
// @Router /api/v1/photos/{id}/related [get]
func (h *PhotoHandler) Related(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	related, err := h.recommendationService.GetRelated(c.UserContext(), id, c.QueryInt("limit", services.DefaultRelatedLimit))
	if err != nil {
		return serviceError(c, "Failed to get related photos", err)
	}

	items := dto.RelatedToRelatedResponses(related)
	return utils.SuccessResponse(c, "Related photos retrieved", fiber.Map{"photos": items, "count": len(items)})
}

// @Summary Record a view
// @Tags Photos
// @Param id path string true "Photo ID"
// @Success 200 {object} utils.Response{data=dto.ViewCountResponse}
// @Router /api/v1/photos/{id}/views [post]
func (h *PhotoHandler) RecordView(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	views, err := h.photoService.RecordView(c.UserContext(), id)
	if err != nil {
		return serviceError(c, "Failed to record view", err)
	}
	return utils.SuccessResponse(c, "View recorded", dto.ViewCountResponse{PhotoID: id, Views: views})
}

// @Summary Get view count
// @Tags Photos
// @Param id path string true "Photo ID"
// @Success 200 {object} utils.Response{data=dto.ViewCountResponse}
// @Router /api/v1/photos/{id}/views [get]
func (h *PhotoHandler) GetViews(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid photo ID", err)
	}

	views, err := h.photoService.GetViewCount(c.UserContext(), id)
	if err != nil {
		return serviceError(c, "Failed to get view count", err)
	}
	return utils.SuccessResponse(c, "View count retrieved", dto.ViewCountResponse{PhotoID: id, Views: views})
}
