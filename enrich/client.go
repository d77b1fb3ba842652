// Package enrich 为推荐结果补全海报与详情页链接（OMDb API）。
//
// 每个片名独立请求，单个字段失败只会让该字段缺省，不影响同批次的其它片名。
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/logging"
	"github.com/rushteam/cinesphere/metrics"
)

// notAvailable 是 OMDb 表示字段缺失的取值。
const notAvailable = "N/A"

// maxBodyBytes 限制单个响应体大小。
const maxBodyBytes = 1 << 20

// Record 是 OMDb 按片名查询（?t=）的响应中本服务关心的字段。
// 片名不存在时 OMDb 返回 200 + {"Response":"False","Error":"Movie not found!"}。
type Record struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
	Title    string `json:"Title"`
	Poster   string `json:"Poster"`
	IMDbID   string `json:"imdbID"`
}

// Found 报告响应是否命中了影片。
func (r *Record) Found() bool {
	return r != nil && !strings.EqualFold(r.Response, "False")
}

// PosterURL 返回海报地址，缺失时返回空串。
func (r *Record) PosterURL() string {
	if !r.Found() || r.Poster == "" || r.Poster == notAvailable {
		return ""
	}
	return r.Poster
}

// BreakerOptions 是外部 API 熔断器参数。
type BreakerOptions struct {
	// FailureThreshold 连续失败多少次后熔断；0 表示不启用熔断器
	FailureThreshold uint32
	// OpenTimeout 熔断打开后多久进入半开状态
	OpenTimeout time.Duration
	// HalfOpenRequests 半开状态允许通过的请求数
	HalfOpenRequests uint32
}

// ClientOptions 是 OMDb 客户端参数。
type ClientOptions struct {
	BaseURL string
	Breaker BreakerOptions
}

// Client 封装 OMDb 按片名查询。Client 本身不持有连接池，HTTP 客户端由调用方按批次传入。
type Client struct {
	base    *url.URL
	breaker *gobreaker.CircuitBreaker[*Record]
}

// NewClient 解析 BaseURL 并按需创建熔断器。
func NewClient(opts ClientOptions) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse omdb base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("omdb base url must be http(s), got %q", opts.BaseURL)
	}
	c := &Client{base: base}
	if opts.Breaker.FailureThreshold > 0 {
		c.breaker = newBreaker("omdb", opts.Breaker)
	}
	return c, nil
}

func newBreaker(name string, opts BreakerOptions) *gobreaker.CircuitBreaker[*Record] {
	threshold := opts.FailureThreshold
	metrics.BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[*Record](gobreaker.Settings{
		Name:        name,
		MaxRequests: opts.HalfOpenRequests,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// 调用方取消不算外部服务故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// BreakerState 返回熔断器状态（未启用时为 "disabled"）。
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Fetch 按片名查询一次 OMDb。片名不存在不是错误，返回 Found()==false 的 Record。
// 传输失败、非 200、响应无法解析、熔断打开时返回 ErrEnrichment。
func (c *Client) Fetch(ctx context.Context, hc *http.Client, title, apiKey string) (*Record, error) {
	if apiKey == "" {
		return nil, core.ErrEnrichment.Wrap(nil, "no api key configured")
	}
	if c.breaker == nil {
		return c.fetch(ctx, hc, title, apiKey)
	}
	rec, err := c.breaker.Execute(func() (*Record, error) {
		return c.fetch(ctx, hc, title, apiKey)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, core.ErrEnrichment.Wrap(err, "omdb breaker")
	}
	return rec, err
}

func (c *Client) fetch(ctx context.Context, hc *http.Client, title, apiKey string) (*Record, error) {
	u := *c.base
	q := u.Query()
	q.Set("t", title)
	q.Set("apikey", apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, core.ErrEnrichment.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, core.ErrEnrichment.Wrap(err, "request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, core.ErrEnrichment.Wrap(err, "read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.ErrEnrichment.Wrap(nil, "status=%d", resp.StatusCode)
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, core.ErrEnrichment.Wrap(err, "decode response")
	}
	return &rec, nil
}
