// MMS HTTP handler.
//
// POST /mms takes a prompt (JSON or form), runs the MMS workflow and answers
// with a notification fragment whose status and level depend on the outcome.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a completed outcome is
// stored for (user, route, key), the stored outcome is rendered again with
// `Idempotency-Replayed: true` and the workflow does not run. Otherwise the
// key is claimed before the workflow starts; a second request arriving while
// the first still runs gets 409 instead of a second MMS.
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mms-backend/internal/http/middleware"
	"github.com/tbourn/go-mms-backend/internal/http/views"
	"github.com/tbourn/go-mms-backend/internal/services"
)

// MMSRequest is the payload of POST /mms.
type MMSRequest struct {
	// Prompt describes the image to generate (1–300 characters).
	Prompt string `json:"prompt" form:"prompt" example:"A lighthouse at dawn, watercolor"`
}

// OutcomeResponse maps a workflow outcome to the HTTP status, alert level and
// message shown to the user. It is a pure function of its inputs.
func OutcomeResponse(o services.Outcome, lim services.Limits) (status int, level, msg string) {
	switch o.Kind {
	case services.OutcomeAccepted:
		return http.StatusAccepted, views.LevelInfo, MsgAccepted
	case services.OutcomeUnauthorized:
		return http.StatusUnauthorized, views.LevelError, MsgUnauthorized
	case services.OutcomeInvalidInput:
		if o.Reason == services.ReasonTooLong {
			return http.StatusBadRequest, views.LevelWarning, fmt.Sprintf(MsgPromptTooLongFmt, lim.PromptMaxChars)
		}
		return http.StatusBadRequest, views.LevelWarning, MsgPromptEmpty
	case services.OutcomeQuotaExceeded:
		if o.Scope == services.ScopeGlobal {
			return http.StatusTooManyRequests, views.LevelWarning, MsgGlobalQuota
		}
		return http.StatusTooManyRequests, views.LevelWarning, fmt.Sprintf(MsgUserQuotaFmt, lim.UserDaily)
	case services.OutcomeGenerationFailed:
		return http.StatusInternalServerError, views.LevelError, MsgGenerationFailed
	case services.OutcomeDeliveryFailed:
		return http.StatusInternalServerError, views.LevelError, MsgDeliveryFailed
	default:
		return http.StatusInternalServerError, views.LevelError, MsgUnexpected
	}
}

// SubmitMMS godoc
// @ID          submitMMS
// @Summary     Generate an image and send it as MMS
// @Description Validates the prompt, enforces the per-user and global daily quotas, generates an image and delivers it to the caller's phone. Answers with an HTML notification fragment.
// @Tags        MMS
// @Accept      json,x-www-form-urlencoded
// @Produce     html
//
// @Param       Authorization    header  string  false  "Bearer session token (or session cookie)"
// @Param       Idempotency-Key  header  string  false  "Optional idempotency key for safe retries"
// @Param       body             body    handlers.MMSRequest  true  "Prompt"
//
// @Success     202  {string}  string  "info fragment"
// @Failure     400  {string}  string  "warning fragment (empty or too long)"
// @Failure     401  {string}  string  "error fragment"
// @Failure     409  {string}  string  "warning fragment (same Idempotency-Key still running)"
// @Failure     429  {string}  string  "warning fragment (daily limit)"
// @Failure     500  {string}  string  "error fragment"
// @Router      /mms [post]
func (h *Handlers) SubmitMMS(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	key, hasKey := middleware.GetIdempotencyKey(c)
	scope := c.FullPath()
	useIdem := h.idem != nil && hasKey && uid != ""

	if useIdem && h.replay(c, uid, scope, key) {
		return
	}

	// claimed stays false when the store failed; the request then runs
	// without replay protection.
	claimed := false
	if useIdem {
		ok, err := h.idem.Claim(ctx, uid, scope, key)
		switch {
		case err != nil:
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency claim failed")
		case !ok:
			// finished between the lookup and the claim, or still running
			if h.replay(c, uid, scope, key) {
				return
			}
			notify(c, http.StatusConflict, views.LevelWarning, MsgInProgress)
			return
		default:
			claimed = true
		}
	}

	// A body that does not bind is treated as an empty prompt so the
	// identity guard still answers first.
	var req MMSRequest
	_ = c.ShouldBind(&req)

	out := h.mms.Submit(ctx, middleware.Credential(c), req.Prompt)

	if claimed {
		// the outcome is recorded even if the client went away meanwhile
		sctx := context.WithoutCancel(ctx)
		if out.Replayable() {
			status, _, _ := OutcomeResponse(out, h.opts.Limits)
			if err := h.idem.Put(sctx, uid, scope, key, out.String(), status); err != nil {
				middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency store failed")
			}
		} else if err := h.idem.Release(sctx, uid, scope, key); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency release failed")
		}
	}
	h.renderOutcome(c, out)
}

// replay renders a stored outcome for the key and reports whether it did.
func (h *Handlers) replay(c *gin.Context, uid, scope, key string) bool {
	label, found, err := h.idem.Get(c.Request.Context(), uid, scope, key)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
		return false
	}
	if !found {
		return false
	}
	out, ok := services.ParseOutcome(label)
	if !ok {
		return false
	}
	c.Header("Idempotency-Replayed", "true")
	h.renderOutcome(c, out)
	return true
}

func (h *Handlers) renderOutcome(c *gin.Context, out services.Outcome) {
	status, level, msg := OutcomeResponse(out, h.opts.Limits)
	notify(c, status, level, msg)
}
