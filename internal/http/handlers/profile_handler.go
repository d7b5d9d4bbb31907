// Profile HTTP handlers.
//
//   - GET  /get-profile     renders the #profile-view card
//   - POST /update-profile  renames the caller; answers into #profile-update-error
//
// A successful rename sets `HX-Trigger: profileUpdated` so the page reloads
// the profile card.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mms-backend/internal/http/middleware"
	"github.com/tbourn/go-mms-backend/internal/http/views"
	"github.com/tbourn/go-mms-backend/internal/services"
)

// defaultDisplayName is shown while no username is set.
const defaultDisplayName = "User"

// UpdateProfileRequest is the JSON payload of POST /update-profile.
type UpdateProfileRequest struct {
	Username *string `json:"username" example:"ada"`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Profile card
// @Description Renders the caller's display name and phone number.
// @Tags        Profile
// @Produce     html
// @Param       Authorization  header  string  false  "Bearer session token (or session cookie)"
// @Success     200  {string}  string  "profile fragment"
// @Failure     401  {string}  string  "error fragment"
// @Failure     500  {string}  string  "error fragment"
// @Router      /get-profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	uid := middleware.UserID(c)
	if uid == "" {
		alert(c, http.StatusUnauthorized, views.ProfileView, views.LevelError, MsgProfileAuth)
		return
	}

	p, err := h.profiles.Get(c.Request.Context(), uid)
	switch {
	case errors.Is(err, services.ErrProfileNotFound):
		alert(c, http.StatusUnauthorized, views.ProfileView, views.LevelError, MsgProfileAuth)
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("load profile failed")
		alert(c, http.StatusInternalServerError, views.ProfileView, views.LevelError, MsgProfileLoad)
		return
	}

	c.HTML(http.StatusOK, views.Profile, views.ProfileData{
		Name:           p.DisplayName(defaultDisplayName),
		Phone:          p.PhoneNumber,
		PhoneConfirmed: p.PhoneConfirmedAt != nil,
	})
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Change the username
// @Description Sets a unique display name. Triggers `profileUpdated` on success.
// @Tags        Profile
// @Accept      json
// @Produce     html
// @Param       Authorization  header  string  false  "Bearer session token (or session cookie)"
// @Param       body  body  handlers.UpdateProfileRequest  true  "New username"
// @Success     200  {string}  string  "success fragment, HX-Trigger header"
// @Failure     400  {string}  string  "error fragment"
// @Failure     401  {string}  string  "error fragment"
// @Failure     409  {string}  string  "error fragment (taken)"
// @Failure     500  {string}  string  "error fragment"
// @Router      /update-profile [post]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	uid := middleware.UserID(c)
	if uid == "" {
		alert(c, http.StatusUnauthorized, views.ProfileUpdateError, views.LevelError, MsgUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		alert(c, http.StatusBadRequest, views.ProfileUpdateError, views.LevelError, MsgInvalidRequest)
		return
	}
	if req.Username == nil {
		alert(c, http.StatusBadRequest, views.ProfileUpdateError, views.LevelError, MsgUsernameRequired)
		return
	}

	_, err := h.profiles.UpdateUsername(c.Request.Context(), uid, *req.Username)
	switch {
	case errors.Is(err, services.ErrUsernameRequired):
		alert(c, http.StatusBadRequest, views.ProfileUpdateError, views.LevelError, MsgUsernameRequired)
	case errors.Is(err, services.ErrUsernameInvalid):
		alert(c, http.StatusBadRequest, views.ProfileUpdateError, views.LevelError, MsgUsernameInvalid)
	case errors.Is(err, services.ErrUsernameTaken):
		alert(c, http.StatusConflict, views.ProfileUpdateError, views.LevelError, MsgUsernameTaken)
	case errors.Is(err, services.ErrProfileNotFound):
		alert(c, http.StatusUnauthorized, views.ProfileUpdateError, views.LevelError, MsgUnauthorized)
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("update profile failed")
		alert(c, http.StatusInternalServerError, views.ProfileUpdateError, views.LevelError, MsgProfileUpdateFail)
	default:
		c.Header("HX-Trigger", "profileUpdated")
		alert(c, http.StatusOK, views.ProfileUpdateError, views.LevelSuccess, MsgProfileUpdated)
	}
}
