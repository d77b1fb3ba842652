package enrich

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/logging"
	"github.com/rushteam/cinesphere/metrics"
)

// Result 是单个片名的补全结果。空串表示缺省（页面上显示占位图/不带链接）。
type Result struct {
	Title     string `json:"title"`
	PosterURL string `json:"poster_url,omitempty"`
	DetailURL string `json:"detail_url,omitempty"`
}

// Options 是批量补全参数。
type Options struct {
	// PosterAPIKey 用于海报请求
	PosterAPIKey string
	// DetailAPIKey 用于详情请求，为空时使用 PosterAPIKey
	DetailAPIKey string
	// DetailBaseURL 详情页前缀，详情地址为 DetailBaseURL + imdbID + "/"
	DetailBaseURL string
	// CallTimeout 单次请求超时
	CallTimeout time.Duration
	// BatchTimeout 整个批次的截止时间
	BatchTimeout time.Duration
	// Transport 每个批次克隆一份作为独立连接池；为空时克隆 http.DefaultTransport
	Transport *http.Transport
}

// Enricher 并发补全一批片名。
type Enricher struct {
	client *Client
	opts   Options
}

// NewEnricher 创建 Enricher，未设置的选项使用默认值。
func NewEnricher(client *Client, opts Options) *Enricher {
	if opts.DetailAPIKey == "" {
		opts.DetailAPIKey = opts.PosterAPIKey
	}
	if opts.DetailBaseURL == "" {
		opts.DetailBaseURL = "https://www.imdb.com/title/"
	}
	defaults := &core.DefaultRecommendConfig{}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaults.DefaultCallTimeout()
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = defaults.DefaultBatchTimeout()
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport.(*http.Transport)
	}
	return &Enricher{client: client, opts: opts}
}

// field 是一个补全字段：用哪个 key 请求、如何从 Record 取值、写到 Result 的哪里。
type field struct {
	name    string
	apiKey  string
	extract func(*Record) string
	assign  func(*Result, string)
}

// Enrich 返回与 titles 一一对应、顺序一致的结果。
//
// 每个片名发出两次请求（海报、详情），整批 2*len(titles) 个请求同时发出，
// 等待全部完成或超时后返回。单个请求失败只会让对应字段为空。
// 批次内使用独立的连接池，返回前关闭空闲连接。
func (e *Enricher) Enrich(ctx context.Context, titles []string) []Result {
	results := make([]Result, len(titles))
	for i, t := range titles {
		results[i].Title = t
	}
	if len(titles) == 0 {
		return results
	}

	start := time.Now()
	batch := uuid.NewString()
	log := logging.Ctx(ctx).With().Str("batch", batch).Logger()

	ctx, cancel := context.WithTimeout(ctx, e.opts.BatchTimeout)
	defer cancel()

	hc := &http.Client{Transport: e.opts.Transport.Clone(), Timeout: e.opts.CallTimeout}
	defer hc.CloseIdleConnections()

	fields := []field{
		{
			name:    "poster",
			apiKey:  e.opts.PosterAPIKey,
			extract: (*Record).PosterURL,
			assign:  func(r *Result, v string) { r.PosterURL = v },
		},
		{
			name:    "detail",
			apiKey:  e.opts.DetailAPIKey,
			extract: e.detailURL,
			assign:  func(r *Result, v string) { r.DetailURL = v },
		},
	}

	// 各 goroutine 只写 results[i] 的一个字段，且永不返回错误，兄弟任务不会被取消
	var eg errgroup.Group
	for i := range titles {
		for _, f := range fields {
			eg.Go(func() error {
				rec, err := e.client.Fetch(ctx, hc, titles[i], f.apiKey)
				if err != nil {
					metrics.EnrichFetch.WithLabelValues(f.name, "error").Inc()
					log.Warn().Err(err).Str("title", titles[i]).Str("field", f.name).Msg("metadata fetch failed")
					return nil
				}
				v := f.extract(rec)
				if v == "" {
					metrics.EnrichFetch.WithLabelValues(f.name, "absent").Inc()
					return nil
				}
				metrics.EnrichFetch.WithLabelValues(f.name, "ok").Inc()
				f.assign(&results[i], v)
				return nil
			})
		}
	}
	_ = eg.Wait()

	elapsed := time.Since(start)
	metrics.EnrichBatchDuration.Observe(elapsed.Seconds())
	log.Debug().Int("titles", len(titles)).Dur("elapsed", elapsed).Msg("enrichment batch done")
	return results
}

func (e *Enricher) detailURL(r *Record) string {
	if !r.Found() || r.IMDbID == "" || r.IMDbID == notAvailable {
		return ""
	}
	return e.opts.DetailBaseURL + r.IMDbID + "/"
}
