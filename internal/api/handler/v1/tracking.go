package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventpass/eventpass-api/internal/api/handler/v1/response"
)

// HandleTrackView godoc
// @Summary      Record a page view
// @Description  The payload is free-form and only logged.
// @Tags         tracking
// @Accept       json
// @Param        request  body  object  false  "view data"
// @Success      204
// @Failure      400  {object}  response.Err
// @Router       /tracking/view [post]
func HandleTrackView(ctx *gin.Context) {
	var view map[string]any
	if err := ctx.ShouldBindJSON(&view); err != nil && !errors.Is(err, io.EOF) {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	zap.L().Info("event view tracked",
		zap.Any("view", view),
		zap.String("client_ip", ctx.ClientIP()),
		zap.String("user_agent", ctx.Request.UserAgent()),
	)

	ctx.Status(http.StatusNoContent)
}
