// History HTTP handlers.
//
//   - GET /history-items?limit&offset  gallery tiles plus a "load more" button
//   - GET /mms-image?id                the stored image of one record
//
// Both only ever see the caller's own records.
package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mms-backend/internal/http/middleware"
	"github.com/tbourn/go-mms-backend/internal/http/views"
	"github.com/tbourn/go-mms-backend/internal/services"
	"github.com/tbourn/go-mms-backend/internal/utils"
)

// ListHistory godoc
// @ID          historyItems
// @Summary     History gallery page
// @Description Renders the caller's history newest first. A "load more" button is included when the page is full.
// @Tags        History
// @Produce     html
// @Param       Authorization  header  string  false  "Bearer session token (or session cookie)"
// @Param       limit   query  int  false  "Page size (default 12, max 48)"
// @Param       offset  query  int  false  "Offset (default 0)"
// @Success     200  {string}  string  "gallery fragment"
// @Failure     401  {string}  string  "empty body"
// @Failure     500  {string}  string  "empty body"
// @Router      /history-items [get]
func (h *Handlers) ListHistory(c *gin.Context) {
	uid := middleware.UserID(c)
	if uid == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	limit := utils.AtoiDefault(c.Query("limit"), services.DefaultHistoryPage)
	offset := utils.AtoiDefault(c.Query("offset"), 0)

	recs, limit, offset, err := h.history.ListPage(c.Request.Context(), uid, limit, offset)
	if err != nil {
		// an empty body keeps the gallery intact on the client
		middleware.LoggerFrom(c).Error().Err(err).Msg("list history failed")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	data := views.HistoryData{Items: make([]views.HistoryItem, 0, len(recs))}
	for _, r := range recs {
		data.Items = append(data.Items, views.HistoryItem{
			ImageURL: h.link("/mms-image?id=" + url.QueryEscape(r.ID)),
			Prompt:   r.Prompt,
			Alt:      r.Prompt,
		})
	}
	if len(recs) == limit {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(offset+limit))
		data.NextURL = h.link("/history-items?" + q.Encode())
	}
	c.HTML(http.StatusOK, views.History, data)
}

// GetImage godoc
// @ID          mmsImage
// @Summary     Stored image
// @Description Returns the image bytes of one of the caller's history records.
// @Tags        History
// @Produce     image/png,image/jpeg,image/webp,text/plain
// @Param       Authorization  header  string  false  "Bearer session token (or session cookie)"
// @Param       id  query  string  true  "History record id"
// @Success     200  {file}    binary
// @Failure     400  {string}  string  "Image ID is required"
// @Failure     401  {string}  string  "Authorization error."
// @Failure     404  {string}  string  "Image not found or access denied"
// @Failure     500  {string}  string  "An unexpected server error occurred."
// @Router      /mms-image [get]
func (h *Handlers) GetImage(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.String(http.StatusBadRequest, MsgImageIDRequired)
		return
	}
	uid := middleware.UserID(c)
	if uid == "" {
		c.String(http.StatusUnauthorized, MsgUnauthorized)
		return
	}

	rec, err := h.history.Image(c.Request.Context(), uid, id)
	switch {
	case errors.Is(err, services.ErrImageNotFound):
		c.String(http.StatusNotFound, MsgImageNotFound)
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("load image failed")
		c.String(http.StatusInternalServerError, MsgUnexpected)
		return
	}

	c.Header("Cache-Control", "private, max-age=86400")
	c.Data(http.StatusOK, http.DetectContentType(rec.ImageData), rec.ImageData)
}
