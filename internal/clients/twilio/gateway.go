package twilio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/media"
)

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("sms gateway not configured")

// Sender is the part of Client the gateway needs.
type Sender interface {
	SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error)
}

// Gateway delivers generated images as MMS. The image is staged in Media and
// Twilio fetches it from PublicBaseURL + "/media/<id>".
type Gateway struct {
	Sender        Sender
	Media         media.Store
	PublicBaseURL string
	MediaTTL      time.Duration
}

// MediaURL builds the public link for a staged object.
func MediaURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/media/" + id
}

// SendMMS stages img and sends it with an optional caption.
func (g *Gateway) SendMMS(ctx context.Context, to string, img domain.GeneratedImage, caption string) error {
	if len(img.Bytes) == 0 {
		return errors.New("mms: empty image")
	}
	ttl := g.MediaTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	id, err := g.Media.Put(ctx, img.Bytes, img.MimeType, ttl)
	if err != nil {
		return fmt.Errorf("stage media: %w", err)
	}
	msg, err := g.Sender.SendMessage(ctx, SendMessageRequest{
		To:        to,
		Body:      caption,
		MediaURLs: []string{MediaURL(g.PublicBaseURL, id)},
	})
	if err != nil {
		// Nothing will fetch the link now, so the image must not stay public.
		if derr := g.Media.Delete(ctx, id); derr != nil {
			zerolog.Ctx(ctx).Warn().Err(derr).Str("media_id", id).Msg("unstage media failed")
		}
		return err
	}
	zerolog.Ctx(ctx).Debug().Str("sid", msg.SID).Str("status", msg.Status).Msg("mms queued")
	return nil
}

// SendText sends a plain SMS.
func (g *Gateway) SendText(ctx context.Context, to, body string) error {
	_, err := g.Sender.SendMessage(ctx, SendMessageRequest{To: to, Body: body})
	return err
}

// Disabled refuses every send. It is used when Twilio is not configured in
// release mode.
type Disabled struct{}

// SendMMS always fails with ErrNotConfigured.
func (Disabled) SendMMS(context.Context, string, domain.GeneratedImage, string) error {
	return ErrNotConfigured
}

// SendText always fails with ErrNotConfigured.
func (Disabled) SendText(context.Context, string, string) error { return ErrNotConfigured }

// LogOnly writes messages to the logger instead of sending them. It is used
// in debug mode so verification codes can be read from the console.
type LogOnly struct {
	Log zerolog.Logger
}

// SendMMS logs the destination and image size.
func (l LogOnly) SendMMS(_ context.Context, to string, img domain.GeneratedImage, caption string) error {
	l.Log.Info().Str("to", to).Int("bytes", len(img.Bytes)).Str("caption", caption).Msg("mms (not sent)")
	return nil
}

// SendText logs the message body.
func (l LogOnly) SendText(_ context.Context, to, body string) error {
	l.Log.Info().Str("to", to).Str("body", body).Msg("sms (not sent)")
	return nil
}
