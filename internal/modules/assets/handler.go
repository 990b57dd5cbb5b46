package assets

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mediavault/internal/domain"
	"mediavault/internal/pkg/response"
	"mediavault/internal/pkg/validator"
	"mediavault/internal/repository"
)

type Handler struct {
	service *Service
	log     *zap.Logger
	timeout time.Duration
}

func NewHandler(service *Service, log *zap.Logger, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{service: service, log: log, timeout: timeout}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/assets", h.ListAssets)
	rg.GET("/assets/:id", h.GetAsset)
	rg.POST("/assets", h.CreateAsset)
	rg.PUT("/assets/:id", h.UpdateAsset)
	rg.POST("/assets/:id/file", h.ReplaceAssetFile)
	rg.DELETE("/assets/:id", h.DeleteAsset)
}

// requestContext bounds reference resolution and thumbnail auto-fill so an
// unbounded chain cannot stall a response indefinitely.
func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// ListAssets handles GET /api/assets with the multi-dimensional filter set.
func (h *Handler) ListAssets(c *gin.Context) {
	filters, fields := h.parseFilters(c)
	if err := fields.err(); err != nil {
		h.respondError(c, err)
		return
	}

	items, total, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"items": items,
		"total": total,
	})
}

func (h *Handler) parseFilters(c *gin.Context) (repository.AssetFilters, fieldErrors) {
	fields := fieldErrors{}
	filters := repository.AssetFilters{
		Q:    c.Query("q"),
		Tags: parseTagsForm(c.Query("tags")),
	}

	filters.RatingMin = parseRatingBound(c.Query("rating_min"), "rating_min", fields)
	filters.RatingMax = parseRatingBound(c.Query("rating_max"), "rating_max", fields)
	var ok bool
	if filters.DateFrom, ok = parseDateTimeField(c.Query("date_from")); !ok {
		fields["date_from"] = "must be an ISO-8601 datetime"
	}
	if filters.DateTo, ok = parseDateTimeField(c.Query("date_to")); !ok {
		fields["date_to"] = "must be an ISO-8601 datetime"
	}
	if raw := c.Query("media_type"); raw != "" {
		mediaType, valid := domain.ParseMediaType(raw)
		if !valid {
			fields["media_type"] = "must be image or video"
		} else {
			filters.MediaType = &mediaType
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filters.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil && size > 0 {
		filters.PageSize = size
	}
	return filters, fields
}

// parseRatingBound parses a rating filter bound, held to the same [0, 5]
// range as stored ratings.
func parseRatingBound(raw, field string, fields fieldErrors) *float64 {
	value, ok := parseFloatField(raw)
	if !ok {
		fields[field] = "must be a number"
		return nil
	}
	if value != nil && (*value < 0 || *value > 5) {
		fields[field] = "must be between 0 and 5"
		return nil
	}
	return value
}

// GetAsset handles GET /api/assets/:id, returning the full asset with its
// one-level resolved references and dependents.
func (h *Handler) GetAsset(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	detail, err := h.service.NewSession().Detail(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// CreateAsset handles multipart POST /api/assets.
func (h *Handler) CreateAsset(c *gin.Context) {
	fields := fieldErrors{}

	mediaType := domain.MediaImage
	if raw := c.PostForm("media_type"); raw != "" {
		parsed, ok := domain.ParseMediaType(raw)
		if !ok {
			fields["media_type"] = "must be image or video"
		} else {
			mediaType = parsed
		}
	}

	rating, ok := parseFloatField(c.PostForm("rating"))
	if !ok {
		fields["rating"] = "must be a number"
	}
	capturedAt, ok := parseDateTimeField(c.PostForm("captured_at"))
	if !ok {
		fields["captured_at"] = "must be an ISO-8601 datetime"
	}
	if err := fields.err(); err != nil {
		h.respondError(c, err)
		return
	}

	in := CreateAssetInput{
		Media:      formFile(c, "media_file"),
		Thumbnail:  formFile(c, "thumbnail_file"),
		PromptText: c.PostForm("prompt_text"),
		PromptMeta: parsePromptMetaForm(c.PostForm("prompt_meta")),
		MediaType:  mediaType,
		AIModel:    optionalString(c.PostForm("ai_model")),
		Notes:      optionalString(c.PostForm("notes")),
		Rating:     rating,
		CapturedAt: capturedAt,
		Tags:       parseTagsForm(c.PostForm("tags")),
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	asset, err := h.service.NewSession().Create(ctx, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, asset)
}

// UpdateAsset handles PUT /api/assets/:id with a partial JSON field set.
func (h *Handler) UpdateAsset(c *gin.Context) {
	var req UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "Malformed JSON payload")
		return
	}
	if violations := validator.Validate(req); violations != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity,
			"VALIDATION_ERROR", "Invalid asset payload", violations)
		return
	}

	in, fields := req.ToInput()
	if err := fields.err(); err != nil {
		h.respondError(c, err)
		return
	}

	asset, err := h.service.NewSession().Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, asset)
}

// ReplaceAssetFile handles POST /api/assets/:id/file, replacing the primary
// binary and/or the thumbnail.
func (h *Handler) ReplaceAssetFile(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	asset, err := h.service.NewSession().ReplaceBinary(
		ctx,
		c.Param("id"),
		formFile(c, "media_file"),
		formFile(c, "thumbnail_file"),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, asset)
}

// DeleteAsset handles DELETE /api/assets/:id.
func (h *Handler) DeleteAsset(c *gin.Context) {
	if err := h.service.NewSession().Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity,
			"VALIDATION_ERROR", "Invalid asset payload", validationErr.Fields)
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Asset not found")
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out")
	default:
		h.log.Error("asset request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}

func formFile(c *gin.Context, field string) *multipart.FileHeader {
	header, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return header
}
