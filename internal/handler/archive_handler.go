package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/dispatch-backend-go/internal/apperr"
	"github.com/jengzang/dispatch-backend-go/internal/identity"
	"github.com/jengzang/dispatch-backend-go/internal/models"
	"github.com/jengzang/dispatch-backend-go/internal/service"
	"github.com/jengzang/dispatch-backend-go/pkg/response"
)

// ArchiveHandler handles HTTP requests for trajectory archives
type ArchiveHandler struct {
	archiveService *service.ArchiveService
	codec          *identity.Codec
	log            *zap.Logger
}

// NewArchiveHandler creates a new archive handler
func NewArchiveHandler(archiveService *service.ArchiveService, codec *identity.Codec, log *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archiveService: archiveService,
		codec:          codec,
		log:            log,
	}
}

// GetTaskArchive handles GET /api/agent/:encryptedUserId/tasks/:taskId/archive
func (h *ArchiveHandler) GetTaskArchive(c *gin.Context) {
	userID, err := h.codec.Decode(c.Param("encryptedUserId"), identity.KindUser)
	if err != nil {
		response.BadRequest(c, apperr.InvalidIdentifier("user", err))
		return
	}
	taskID, err := h.codec.Decode(c.Param("taskId"), identity.KindTask)
	if err != nil {
		response.BadRequest(c, apperr.InvalidIdentifier("task", err))
		return
	}

	archive, err := h.archiveService.GetAgentTaskArchive(c.Request.Context(), userID, taskID)
	if err != nil {
		renderError(c, h.log, err)
		return
	}

	response.Success(c, "Trajectory archive", models.NewArchiveSummary(archive))
}
