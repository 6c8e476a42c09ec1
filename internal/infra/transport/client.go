// File: internal/infra/transport/client.go
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"chopshop/internal/config"
	"chopshop/internal/domain/ports/adapter"
	"chopshop/internal/domain/ports/repository"
	"chopshop/internal/infra/logging"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Client executes requests against the ChopShop backend. It attaches the
// session's bearer credential, speaks JSON both ways, and folds every
// failure into a tagged *adapter.APIError; nothing panics across this
// boundary.
type Client struct {
	baseURL string
	http    *http.Client
	session repository.SessionStore
	log     *zerolog.Logger
}

func NewClient(cfg config.APIConfig, session repository.SessionStore, logger *zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	clientLog := logger.With().Str("component", "transport").Logger()
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		session: session,
		log:     &clientLog,
	}, nil
}

// errorPayload is the loose error envelope the backend uses on non-2xx
// responses: either {"error": "..."} or {"message": "..."}.
type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (p errorPayload) text() string {
	if p.Error != "" {
		return p.Error
	}
	return p.Message
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &adapter.APIError{Kind: adapter.ErrorKindNetwork, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	reqID := ulid.Make().String()
	ctx = logging.WithRequestID(ctx, reqID)
	log := logging.With(ctx, c.log)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &adapter.APIError{Kind: adapter.ErrorKindNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if tok := c.session.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return &adapter.APIError{Kind: adapter.ErrorKindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &adapter.APIError{Kind: adapter.ErrorKindNetwork, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ep errorPayload
		_ = json.Unmarshal(raw, &ep)
		kind := adapter.ErrorKindBackend
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = adapter.ErrorKindUnauthorized
		}
		log.Debug().Int("status", resp.StatusCode).Str("method", method).Str("path", path).
			Str("kind", string(kind)).Msg("backend rejected request")
		return &adapter.APIError{Kind: kind, Status: resp.StatusCode, Message: ep.text()}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &adapter.APIError{Kind: adapter.ErrorKindNetwork, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
