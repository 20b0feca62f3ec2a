// Package dashboard loads the signed-in user's profile together with the
// global leaderboard. Either both arrive or neither is shown.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prajyotgorlewar/BattleIDE/internal/client/auth"
	"github.com/prajyotgorlewar/BattleIDE/internal/config"
	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	mePath          = "/api/users/me"
	leaderboardPath = "/api/users/leaderboard"
)

// Fetcher runs one aggregated fetch.
type Fetcher interface {
	Fetch(ctx context.Context, tokens auth.TokenSource) Result
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 15s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for failed fetches.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = logger.OrNop(l).Named("dashboard") }
}

// WithClock sets the time source stamped on sentinel profiles.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client fetches the dashboard from the BattleIDE API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
	now     func() time.Time
}

// NewClient returns a Client for baseURL, falling back to config.DefaultAPIURL
// when it is blank.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: config.ResolveBaseURL(baseURL),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type meResponse struct {
	User *model.User `json:"user"`
}

type leaderboardResponse struct {
	Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
}

// Fetch obtains one token and issues both requests concurrently. Both
// requests always settle before the outcome is decided.
func (c *Client) Fetch(ctx context.Context, tokens auth.TokenSource) Result {
	if tokens == nil {
		return c.fail(fmt.Errorf("%w: no token source", ErrTokenRetrieval))
	}
	token, err := tokens.Token(ctx)
	if err != nil {
		return c.fail(fmt.Errorf("%w: %w", ErrTokenRetrieval, err))
	}

	var (
		me    meResponse
		board leaderboardResponse
		g     errgroup.Group
	)
	g.Go(func() error { return c.get(ctx, mePath, token, &me) })
	g.Go(func() error { return c.get(ctx, leaderboardPath, token, &board) })
	if err := g.Wait(); err != nil {
		return c.fail(err)
	}

	if me.User == nil {
		return c.fail(fmt.Errorf("%w: response has no user", ErrNetwork))
	}
	if board.Leaderboard == nil {
		board.Leaderboard = []model.LeaderboardEntry{}
	}

	c.log.Debug("dashboard loaded",
		zap.String("username", me.User.Username),
		zap.Int("entries", len(board.Leaderboard)))
	return Success{Profile: *me.User, Leaderboard: board.Leaderboard}
}

func (c *Client) get(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: path, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrNetwork, path, err)
	}
	return nil
}

func (c *Client) fail(err error) Failure {
	var se *StatusError
	if errors.As(err, &se) {
		c.log.Warn("dashboard request rejected", zap.String("path", se.Path), zap.Int("status", se.Code))
	} else {
		c.log.Warn("dashboard fetch failed", zap.Error(err))
	}
	return newFailure(err, c.now())
}
