package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/dispatch-backend-go/internal/apperr"
	"github.com/jengzang/dispatch-backend-go/internal/service"
	"github.com/jengzang/dispatch-backend-go/internal/spatial"
	"github.com/jengzang/dispatch-backend-go/pkg/response"
)

// maxLocationBody caps the size of a location request body
const maxLocationBody = 64 << 10

// LocationHandler handles HTTP requests for agent locations
type LocationHandler struct {
	locationService *service.LocationService
	log             *zap.Logger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(locationService *service.LocationService, log *zap.Logger) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
		log:             log,
	}
}

// RecordLocation handles POST /api/agent/:encryptedUserId/locations
func (h *LocationHandler) RecordLocation(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxLocationBody))
	if err != nil {
		response.BadRequest(c, apperr.MalformedRequest(err))
		return
	}

	record, err := h.locationService.ProcessLocationRequest(c.Request.Context(), c.Param("encryptedUserId"), body)
	if err != nil {
		renderError(c, h.log, err)
		return
	}

	lon, lat := spatial.DecodePoint(record.Raw.Point)
	response.Created(c, "Location recorded", record.Summary(lon, lat))
}
