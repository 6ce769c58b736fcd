// Package catalog 是第三方图片目录 (Unsplash 兼容) 的 REST 客户端
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"photoshared-backend/internal/common"
	"photoshared-backend/internal/metrics"
	"photoshared-backend/internal/model"
	"photoshared-backend/internal/repository/interfaces"
	"photoshared-backend/internal/util"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	endpointUserPhotos = "user_photos"
	endpointSearch     = "search"
)

// APIError 目录 API 返回了非 200 状态码
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("图片目录请求失败 %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Temporary 5xx 和 429 可以重试
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Cache 目录响应缓存
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

type Client struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
	metrics    *metrics.Metrics
	maxRetries int
}

var _ interfaces.PhotoCatalog = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit 每秒最多 perSec 个请求，<=0 表示不限速
func WithRateLimit(perSec int) Option {
	return func(c *Client) {
		if perSec <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
	}
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

func NewClient(baseURL, accessKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accessKey:  accessKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserPhotos GET /users/{handle}/photos
func (c *Client) UserPhotos(ctx context.Context, handle string, page, perPage int) ([]model.CatalogPhoto, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var photos []model.CatalogPhoto
	if err := c.get(ctx, endpointUserPhotos, "/users/"+url.PathEscape(handle)+"/photos", params, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// Search GET /search/photos
func (c *Client) Search(ctx context.Context, query string, page, perPage int) (*model.SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var result model.SearchResult
	if err := c.get(ctx, endpointSearch, "/search/photos", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out interface{}) error {
	key := path + "?" + params.Encode()

	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			util.Logger.Warn("读取目录缓存失败", zap.String("key", key), zap.Error(err))
		}
		c.metrics.ObserveCache(ok)
		if ok && json.Unmarshal(body, out) == nil {
			return nil
		}
	}

	var body []byte
	err := common.WithRetry(ctx, c.maxRetries, func() error {
		var err error
		body, err = c.do(ctx, endpoint, c.baseURL+key)
		return err
	})
	if err != nil {
		util.Logger.Error("图片目录请求失败", zap.String("endpoint", endpoint), zap.String("path", path), zap.Error(err))
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析目录响应失败: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body); err != nil {
			util.Logger.Warn("写入目录缓存失败", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	c.metrics.ObserveCatalog(endpoint, resp.StatusCode, started)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}
