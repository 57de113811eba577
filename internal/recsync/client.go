// Package recsync is the boundary to the recommendation engine. It translates
// local weight-ledger changes into set/remove notifications.
//
// Both operations are a single outbound attempt: no retries, no backoff. The
// caller holds staged local mutations open across the call and must discard
// them when this package reports failure, so a retry here would only widen
// the window in which the remote state is unknown.
package recsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"backoffice/internal/platform/config"
	dErrors "backoffice/pkg/domain-errors"
)

// Client calls the configured recommendation endpoints.
type Client struct {
	httpClient *http.Client
	setURL     string
	removeURL  string
	token      string
	log        *slog.Logger
}

// New constructs a Client. Endpoints left empty in the config turn the
// corresponding notification into a no-op, matching environments where the
// recommendation engine is not deployed.
func New(cfg config.Recommend, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		setURL:     cfg.SetURL,
		removeURL:  cfg.RemoveURL,
		token:      cfg.Token,
		log:        log,
	}
}

// NotifySet tells the recommendation engine that weights were assigned to the
// given content identifiers.
func (c *Client) NotifySet(ctx context.Context, contentIDs []string) error {
	return c.notify(ctx, c.setURL, "set", contentIDs)
}

// NotifyRemove tells the recommendation engine that weights were removed from
// the given content identifiers.
func (c *Client) NotifyRemove(ctx context.Context, contentIDs []string) error {
	return c.notify(ctx, c.removeURL, "remove", contentIDs)
}

func (c *Client) notify(ctx context.Context, url, op string, contentIDs []string) error {
	if url == "" || len(contentIDs) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string][]string{"post_ids": contentIDs})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal recommendation payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build recommendation request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUpstream, "recommendation service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Error("recommendation service rejected notification",
			"op", op,
			"status", resp.StatusCode,
			"body", string(body),
			"content_ids", contentIDs,
		)
		return dErrors.New(dErrors.CodeUpstream,
			fmt.Sprintf("recommendation %s returned status %d", op, resp.StatusCode))
	}
	return nil
}
