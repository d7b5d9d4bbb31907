package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mms-backend/internal/http/middleware"
	"github.com/tbourn/go-mms-backend/internal/media"
)

// GetMedia godoc
// @ID          getMedia
// @Summary     Staged MMS media
// @Description Serves an image staged for the delivery gateway. Objects expire after MEDIA_TTL.
// @Tags        Media
// @Produce     image/png,image/jpeg,image/webp
// @Param       id  path  string  true  "Media id"
// @Success     200  {file}    binary
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /media/{id} [get]
func (h *Handlers) GetMedia(c *gin.Context) {
	if h.media == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "media not found")
		return
	}
	obj, err := h.media.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, media.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "media not found")
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("load media failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load media")
		return
	}

	ct := obj.ContentType
	if ct == "" {
		ct = http.DetectContentType(obj.Data)
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, ct, obj.Data)
}
