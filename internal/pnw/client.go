package pnw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/resetwatch/resetwatch/internal/setup/config"
	"github.com/resetwatch/resetwatch/pkg/utils"
	"go.uber.org/zap"
)

const (
	// MaxBatchIDs is the provider's cap on ids per batch call.
	MaxBatchIDs = 100

	// DefaultPageSize is used for catalog pages when no size is configured.
	DefaultPageSize = 500

	// DefaultThrottleWait is the fallback delay when a throttled response
	// carries no usable Retry-After header.
	DefaultThrottleWait = 60 * time.Second
)

// Client fetches nation data from the upstream game API. All calls go through
// the shared Limiter before touching the network, and throttled responses get
// exactly one bounded retry.
type Client struct {
	http         *client.Client
	limiter      *Limiter
	baseURL      string
	apiKey       string
	throttleWait time.Duration
	logger       *zap.Logger
}

// NewClient creates a provider client on top of the shared axonet HTTP client.
func NewClient(
	httpClient *client.Client, limiter *Limiter, cfg *config.PNW,
	throttleWait time.Duration, logger *zap.Logger,
) *Client {
	if throttleWait <= 0 {
		throttleWait = DefaultThrottleWait
	}

	return &Client{
		http:         httpClient,
		limiter:      limiter,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		throttleWait: throttleWait,
		logger:       logger.Named("pnw_client"),
	}
}

// Limiter exposes the client's rate limit gate.
func (c *Client) Limiter() *Limiter {
	return c.limiter
}

// FetchPage retrieves one page of the full nation catalog. The cursor must be
// whatever the provider returned previously, replayed verbatim; an empty
// cursor starts from the beginning.
func (c *Client) FetchPage(ctx context.Context, cursor string, pageSize int) (*NationPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(pageSize))

	if cursor != "" {
		params.Set("cursor", cursor)
	}

	body, err := c.do(ctx, "/v1/nations", params)
	if err != nil {
		return nil, err
	}

	var page struct {
		Data       []*Nation `json:"data"`
		HasMore    bool      `json:"has_more"`
		NextCursor string    `json:"next_cursor"`
		Total      int       `json:"total"`
	}

	if err := sonic.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	return &NationPage{
		Nations:    page.Data,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
		Total:      page.Total,
	}, nil
}

// FetchByIDs retrieves current nation data for the given id set, splitting it
// into sequential sub-batches of at most MaxBatchIDs. A failed sub-batch is
// logged and reported through the result's FailedIDs without aborting the
// remaining sub-batches; protocol errors and context cancellation abort the
// whole fetch.
func (c *Client) FetchByIDs(ctx context.Context, ids []int64) (*BatchResult, error) {
	result := &BatchResult{Nations: make([]*Nation, 0, len(ids))}

	for start := 0; start < len(ids); start += MaxBatchIDs {
		chunk := ids[start:min(start+MaxBatchIDs, len(ids))]

		nations, err := c.fetchBatch(ctx, chunk)
		if err != nil {
			if errors.Is(err, ErrProtocol) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}

			c.logger.Error("Dropping failed nation sub-batch",
				zap.Int64s("nationIDs", chunk),
				zap.Error(err))

			result.FailedIDs = append(result.FailedIDs, chunk...)

			continue
		}

		result.Nations = append(result.Nations, nations...)
	}

	return result, nil
}

// fetchBatch performs a single batch call for at most MaxBatchIDs ids.
func (c *Client) fetchBatch(ctx context.Context, ids []int64) ([]*Nation, error) {
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = strconv.FormatInt(id, 10)
	}

	params := url.Values{}
	params.Set("ids", strings.Join(idStrs, ","))

	body, err := c.do(ctx, "/v1/nations/batch", params)
	if err != nil {
		return nil, err
	}

	var batch struct {
		Data []*Nation `json:"data"`
	}

	if err := sonic.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	return batch.Data, nil
}

// do performs a request with throttle handling: a 429 response is retried
// exactly once after the provider's Retry-After delay, and a second 429
// propagates as ErrThrottled.
func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, error) {
	body, status, header, err := c.send(ctx, path, params)
	if err != nil {
		return nil, err
	}

	if status == http.StatusTooManyRequests {
		wait := c.retryAfter(header)

		c.logger.Warn("Provider throttled request, waiting before single retry",
			zap.String("path", path),
			zap.Duration("wait", wait))

		if utils.ContextSleep(ctx, wait) == utils.SleepCancelled {
			return nil, ctx.Err()
		}

		body, status, _, err = c.send(ctx, path, params)
		if err != nil {
			return nil, err
		}

		if status == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: still throttled after retry", ErrThrottled)
		}
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProtocol, status)
	}

	return body, nil
}

// send makes one network call, waiting on the rate limit gate first and
// feeding the response's budget headers back into the limiter.
func (c *Client) send(ctx context.Context, path string, params url.Values) ([]byte, int, http.Header, error) {
	if err := c.limiter.WaitIfNeeded(ctx); err != nil {
		return nil, 0, nil, err
	}

	req := c.http.NewRequest().
		Method(http.MethodGet).
		URL(c.baseURL + path).
		Query("api_key", c.apiKey)

	for key, values := range params {
		for _, value := range values {
			req = req.Query(key, value)
		}
	}

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	c.updateLimiter(resp.Header)

	return body, resp.StatusCode, resp.Header, nil
}

// updateLimiter overwrites the limiter state from rate limit headers.
// Responses without budget headers leave the limiter untouched.
func (c *Client) updateLimiter(header http.Header) {
	remaining, err := strconv.Atoi(header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}

	limit, _ := strconv.Atoi(header.Get("X-RateLimit-Limit"))

	var resetAt time.Time
	if epoch, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64); err == nil && epoch > 0 {
		resetAt = time.Unix(epoch, 0)
	}

	c.limiter.Update(remaining, limit, resetAt)
}

// retryAfter reads the provider's requested delay from a throttled response.
func (c *Client) retryAfter(header http.Header) time.Duration {
	seconds, err := strconv.Atoi(header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return c.throttleWait
	}

	return time.Duration(seconds) * time.Second
}
