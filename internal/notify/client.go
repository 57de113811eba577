// Package notify sends user-facing notifications through the platform's
// notification API. All sends are fire-and-forget from the console's
// perspective: a false return is logged by callers, never propagated.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"backoffice/internal/platform/config"
)

// Notification types emitted by the console.
const (
	TypeSubmissionApproved = "submission_approved"
	TypeSubmissionRejected = "submission_rejected"
	TypeUserBanned         = "user_banned"
	TypeUserUnbanned       = "user_unbanned"
)

// Sender is the notification collaborator consumed by the engines.
type Sender interface {
	Notify(ctx context.Context, recipientIDs []string, notificationType string, meta map[string]any) bool
}

// Client posts notifications to the external notification API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	log        *slog.Logger
}

// New constructs a Client. An empty URL disables sending.
func New(cfg config.Notify, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiURL:     cfg.URL,
		log:        log,
	}
}

// Notify sends one notification and reports whether it was accepted. Every
// failure mode returns false; this call can never fail its caller.
func (c *Client) Notify(ctx context.Context, recipientIDs []string, notificationType string, meta map[string]any) bool {
	if c.apiURL == "" || len(recipientIDs) == 0 {
		return false
	}

	payload, err := json.Marshal(map[string]any{
		"recipients_ids": recipientIDs,
		"notification_base": map[string]any{
			"type": notificationType,
			"meta": meta,
		},
	})
	if err != nil {
		c.log.Error("marshal notification failed", "type", notificationType, "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"?role=write", bytes.NewReader(payload))
	if err != nil {
		c.log.Error("build notification request failed", "type", notificationType, "error", err)
		return false
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("notification send failed",
			"type", notificationType,
			"recipients", recipientIDs,
			"error", err,
		)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("notification rejected",
			"type", notificationType,
			"recipients", recipientIDs,
			"status", resp.StatusCode,
		)
		return false
	}

	c.log.Info("notification sent", "type", notificationType, "recipients", recipientIDs)
	return true
}
