package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sustainet/sustainet/internal/config"
	"github.com/sustainet/sustainet/internal/errors"
	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/logging"
)

// Operation names, used in errors, logs and metrics.
const (
	OpStart      = "start"
	OpPlayerTurn = "player-turn"
	OpAiTurn     = "ai-turn"
	OpPolish     = "polish"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// RequestIDHeader carries a fresh UUID on every request.
const RequestIDHeader = "X-Request-ID"

// Client is the HTTP/JSON resolver and rewriter.
//
// # Thread Safety
//
// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// NewClient creates a client from resolver configuration.
//
// # Example
//
//	client := resolver.NewClient(cfg.Resolver, logger)
//	snap, err := client.StartSession(ctx)
func NewClient(cfg config.ResolverConfig, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NopLogger()
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// StartSession calls POST /games/start.
func (c *Client) StartSession(ctx context.Context) (game.Snapshot, error) {
	return c.round(ctx, OpStart, "/games/start", struct{}{})
}

// ResolvePlayerTurn calls POST /games/player-turn.
func (c *Client) ResolvePlayerTurn(ctx context.Context, turn PlayerTurn) (game.Snapshot, error) {
	req := playerTurnRequest{
		SessionID:   turn.SessionID,
		RoundNumber: turn.Round,
		ActionType:  string(turn.Action),
		Article:     fromArticle(turn.Article),
		ToolUsed:    fromTools(turn.ToolsUsed),
	}
	return c.round(ctx, OpPlayerTurn, "/games/player-turn", req)
}

// ResolveAiTurn calls POST /games/next-round, which plays the opponent's
// turn for round.
func (c *Client) ResolveAiTurn(ctx context.Context, sessionID string, round int) (game.Snapshot, error) {
	req := nextRoundRequest{SessionID: sessionID, RoundNumber: round}
	return c.round(ctx, OpAiTurn, "/games/next-round", req)
}

// Polish calls POST /games/polish-news and returns the polished content.
func (c *Client) Polish(ctx context.Context, req PolishRequest) (string, error) {
	body := polishRequest{
		SessionID:    req.SessionID,
		Content:      req.Content,
		Requirements: req.Requirement,
		Platform:     req.Platform,
	}
	var resp polishResponse
	if err := c.post(ctx, OpPolish, "/games/polish-news", body, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.PolishedContent) == "" {
		return "", errors.NewResolutionError(OpPolish, errors.ErrMalformedSnapshot).
			WithRemoteMessage("rewrite service returned no content")
	}
	return resp.PolishedContent, nil
}

// round posts body and decodes and validates a round response.
func (c *Client) round(ctx context.Context, op, path string, body any) (game.Snapshot, error) {
	var resp roundResponse
	if err := c.post(ctx, op, path, body, &resp); err != nil {
		return game.Snapshot{}, err
	}
	resp.normalize()
	if err := resp.validate(); err != nil {
		return game.Snapshot{}, errors.NewResolutionError(op, err)
	}
	return resp.toSnapshot(), nil
}

// post performs one JSON exchange. Every failure is a *errors.ResolutionError.
func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	requestID := uuid.NewString()
	log := c.logger.With("op", op, "request_id", requestID)

	if err := c.limiter.Wait(ctx); err != nil {
		return errors.NewResolutionError(op, contextCause(ctx, err))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.NewResolutionError(op, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.NewResolutionError(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("resolver request failed", "error", err.Error(), "elapsed_ms", time.Since(start).Milliseconds())
		return errors.NewResolutionError(op, contextCause(ctx, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.NewResolutionError(op, contextCause(ctx, fmt.Errorf("read response: %w", err))).
			WithStatus(resp.StatusCode)
	}
	log.Debug("resolver responded", "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resErr := errors.NewResolutionError(op, errors.ErrRemoteFailure).WithStatus(resp.StatusCode)
		var errBody map[string]any
		if json.Unmarshal(data, &errBody) == nil {
			resErr = resErr.WithRemoteMessage(remoteMessage(errBody))
		}
		return resErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewResolutionError(op, fmt.Errorf("%w: %v", errors.ErrMalformedSnapshot, err)).
			WithStatus(resp.StatusCode)
	}
	return nil
}

// contextCause maps a context expiry onto the engine's sentinels.
func contextCause(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", errors.ErrTimeout, err)
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", errors.ErrCanceled, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", errors.ErrTimeout, err)
	}
	return err
}
