// Package fetch implements the remote-content fetch collaborator over
// HTTP.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/maligree/corpus-import/pkg/runner"
)

// Config holds fetcher configuration.
type Config struct {
	// BaseURL is the root of the remote content service (required).
	BaseURL string

	// Timeout per unit fetch.
	Timeout time.Duration

	// UserAgent sent with every request.
	UserAgent string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		Timeout:   30 * time.Second,
		UserAgent: "corpus-import/0.1.0",
	}
}

// HTTPFetcher fetches unit content from the remote service. Pacing and
// retries are the orchestrator's concern; the fetcher performs exactly
// one request per call.
type HTTPFetcher struct {
	client *resty.Client
	logger zerolog.Logger
}

// New creates an HTTP fetcher.
func New(cfg Config, logger zerolog.Logger) (*HTTPFetcher, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "text/html").
		SetHeader("User-Agent", cfg.UserAgent)

	return &HTTPFetcher{
		client: client,
		logger: logger.With().Str("component", "fetcher").Logger(),
	}, nil
}

// FetchUnit implements runner.Fetcher. Units live under
// {base}/{collectionPath}/{groupID}/{unitIndex}.
func (f *HTTPFetcher) FetchUnit(ctx context.Context, collectionPath, groupID string, unitIndex int) (runner.RawContent, error) {
	path := fmt.Sprintf("/%s/%s/%d", collectionPath, groupID, unitIndex)

	resp, err := f.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode())
	}

	f.logger.Debug().
		Str("path", path).
		Int("bytes", len(resp.Body())).
		Dur("duration", resp.Time()).
		Msg("Unit fetched")

	return runner.RawContent(resp.Body()), nil
}
