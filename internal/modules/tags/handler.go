package tags

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mediavault/internal/pkg/response"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.ListTags)
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(c *gin.Context) {
	usage, err := h.service.Usage(c.Request.Context())
	if err != nil {
		h.log.Error("tag listing failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	response.Success(c, http.StatusOK, usage)
}
