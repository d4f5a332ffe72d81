// Package api is the client for the AI Verify gateway's folder upload endpoints.
package api

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/aiverify/aiv-upload/internal/config"
	"github.com/aiverify/aiv-upload/internal/constants"
	"github.com/aiverify/aiv-upload/internal/http"
	"github.com/aiverify/aiv-upload/internal/logging"
	"github.com/aiverify/aiv-upload/internal/ratelimit"
	"github.com/aiverify/aiv-upload/internal/upload"
	"github.com/aiverify/aiv-upload/internal/version"
)

// retryLogger routes retryablehttp's leveled logs into zerolog.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg("retry: " + msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("retry: " + msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg("retry: " + msg)
}

// Client uploads folders to the gateway.
type Client struct {
	retry   *retryablehttp.Client
	config  *config.Config
	baseURL string
	apiKey  string
	limiter *ratelimit.RateLimiter
	logger  *logging.Logger
	timeout time.Duration
}

// NewClient creates a client from cfg. The base URL must be set.
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("API base URL is empty: set api_base_url, AIVERIFY_API_URL or --api-url")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	httpClient, err := http.CreateTransferClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = &retryLogger{logger: logger}
	// Keep the final response so the error body can be parsed.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		retry:   retryClient,
		config:  cfg,
		baseURL: strings.TrimSuffix(cfg.APIBaseURL, "/"),
		apiKey:  cfg.APIKey,
		limiter: ratelimit.NewAPIRateLimiter(logger),
		logger:  logger,
		timeout: constants.UploadTimeout,
	}, nil
}

// SetRetryWait overrides the retry backoff bounds.
func (c *Client) SetRetryWait(minWait, maxWait time.Duration) {
	c.retry.RetryWaitMin = minWait
	c.retry.RetryWaitMax = maxWait
}

// UploadFolder posts one folder's multipart payload to the endpoint for the
// configured upload kind and returns the response body.
func (c *Client) UploadFolder(ctx context.Context, p *upload.Payload) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}

	path := c.config.UploadPath()

	// Every attempt reads a fresh stream with the same boundary. Streams are
	// closed here as well as by the transport so no writer goroutine outlives
	// the call.
	boundary := upload.NewBoundary()
	var mu sync.Mutex
	var current io.ReadCloser
	closeCurrent := func() {
		if current != nil {
			current.Close()
			current = nil
		}
	}
	defer func() {
		mu.Lock()
		closeCurrent()
		mu.Unlock()
	}()

	bodyFn := retryablehttp.ReaderFunc(func() (io.Reader, error) {
		mu.Lock()
		defer mu.Unlock()
		closeCurrent()
		current = p.StreamWithBoundary(boundary)
		return current, nil
	})

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.baseURL+path, bodyFn)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", upload.FormDataContentType(boundary))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "aiv-upload/"+version.Version)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug().Str("folder", p.FolderName).Str("path", path).Int("files", len(p.Files)).
		Int64("bytes", p.TotalBytes()).Msg("Posting folder")

	resp, err := c.retry.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := newHTTPError(resp, path, data)
		if IsConflict(herr) {
			c.logger.Warn().Str("folder", p.FolderName).Msg("A folder with this name already exists on the server")
		}
		return nil, herr
	}
	return data, nil
}

const maxResponseBytes = 1 << 20

var _ upload.Uploader = (*Client)(nil)
