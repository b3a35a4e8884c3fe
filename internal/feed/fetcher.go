package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/procurehub/backend/pkg/config"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
	"github.com/procurehub/backend/pkg/logger"
)

// maxFeedBytes caps how much of a price list we are willing to buffer.
const maxFeedBytes = 32 << 20

// Fetcher downloads supplier price lists over HTTP.
type Fetcher struct {
	cfg    config.FeedConfig
	client *http.Client
	logg   *logger.Logger
}

// NewFetcher builds a feed fetcher with the configured timeout.
func NewFetcher(cfg config.FeedConfig, logg *logger.Logger) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.FetchTimeout},
		logg:   logg,
	}
}

// Fetch downloads the document at source. When the source sits behind the
// external base URL it is fetched via the internal address first, falling
// back to the original URL.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price list url is required")
	}
	parsed, err := url.Parse(source)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price list url is invalid")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price list url must be http or https")
	}

	if rewritten, ok := f.cfg.RewriteFeedURL(source); ok {
		body, err := f.get(ctx, rewritten)
		if err == nil {
			return body, nil
		}
		if f.logg != nil {
			fields := map[string]any{"rewritten_url": rewritten, "error": err.Error()}
			f.logg.Warn(f.logg.WithFields(ctx, fields), "internal feed fetch failed, retrying original url")
		}
	}

	body, err := f.get(ctx, source)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching price list")
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/x-yaml, text/yaml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(body) > maxFeedBytes {
		return nil, fmt.Errorf("price list exceeds %d bytes", maxFeedBytes)
	}
	return body, nil
}
