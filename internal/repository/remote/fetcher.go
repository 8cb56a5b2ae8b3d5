package remote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mobilepoint/apexorder/internal/domain/models"
	"github.com/mobilepoint/apexorder/internal/tabular"
)

// Fetcher downloads a supplier catalog export published over HTTP.
type Fetcher struct {
	httpClient *resty.Client
	opts       tabular.Options
	logger     *zap.Logger
}

// NewFetcher builds a resty-backed fetcher.
func NewFetcher(opts tabular.Options, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Fetcher{
		httpClient: restyClient,
		opts:       opts,
		logger:     logger,
	}
}

// Fetch downloads rawURL and decodes it as CSV or xlsx, using the URL path
// extension and then the response Content-Type to pick the format.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (models.Table, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return models.Table{}, fmt.Errorf("invalid catalog url %q", rawURL)
	}

	resp, err := f.httpClient.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return models.Table{}, fmt.Errorf("fetch catalog: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return models.Table{}, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode())
	}

	name := path.Base(parsed.Path)
	if name == "/" || name == "." {
		name = parsed.Host
	}

	table, err := tabular.Read(name, resp.Header().Get("Content-Type"), bytes.NewReader(resp.Body()), f.opts)
	if err != nil {
		return models.Table{}, err
	}

	f.logger.Info("catalog fetched",
		zap.String("url", parsed.Redacted()),
		zap.Int("bytes", len(resp.Body())),
		zap.Int("rows", len(table.Rows)))
	return table, nil
}
