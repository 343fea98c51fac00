package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/dispatch-backend-go/internal/middleware"
	"github.com/jengzang/dispatch-backend-go/pkg/response"
)

// renderError writes err to the client and logs internal failures with the
// request id so they can be traced from the generic 500 body
func renderError(c *gin.Context, log *zap.Logger, err error) {
	_ = c.Error(err)
	if response.FromError(c, err) {
		return
	}
	log.Error("Unhandled error",
		zap.String("request_id", middleware.RequestID(c)),
		zap.String("path", c.FullPath()),
		zap.Error(err))
}
