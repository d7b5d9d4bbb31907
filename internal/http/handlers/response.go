// Account, profile, history and MMS endpoints answer with HTML fragments
// rendered by the views package so an HTMX page can swap them in place.
// Only infrastructure answers (unknown route, wrong method, public media)
// use the JSON ErrorResponse envelope.
//
//	HTTP/1.1 429 Too Many Requests
//	<div id="notification-area" class="alert alert-warning">Daily limit of 5 MMS reached. Try again tomorrow.</div>

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mms-backend/internal/http/middleware"
	"github.com/tbourn/go-mms-backend/internal/http/views"
)

// ErrorResponse is the JSON body of infrastructure errors.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"0b6f7c1e-2f44-4a53-9d1c-5d1f0f6a9a11"`
	Code      string `json:"code" example:"not_found"`
	Message   string `json:"message" example:"media not found"`
}

// Fail writes an ErrorResponse and stops the chain. Server errors are logged
// on the request logger.
func Fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Msg(msg)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

func fail(c *gin.Context, status int, code, msg string) { Fail(c, status, code, msg) }

// alert swaps an alert into the element with the given id.
func alert(c *gin.Context, status int, id, level, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("target", id).
			Msg(msg)
	}
	c.HTML(status, views.Alert, views.AlertData{ID: id, Level: level, Message: msg})
	c.Abort()
}

func notify(c *gin.Context, status int, level, msg string) {
	alert(c, status, views.NotificationArea, level, msg)
}

// redirect tells HTMX to navigate; the body stays empty.
func redirect(c *gin.Context, location string) {
	c.Header("HX-Redirect", location)
	c.Status(http.StatusOK)
}
