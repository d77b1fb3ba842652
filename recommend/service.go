package recommend

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/enrich"
	"github.com/rushteam/cinesphere/logging"
	"github.com/rushteam/cinesphere/metrics"
)

// Enricher 为一批片名补全展示元数据，返回结果与输入一一对应。
type Enricher interface {
	Enrich(ctx context.Context, titles []string) []enrich.Result
}

// Recommendation 是最终返回给展示层的一条推荐。PosterURL/DetailURL 为空表示缺省。
type Recommendation struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Score     float64 `json:"score"`
	PosterURL string  `json:"poster_url,omitempty"`
	DetailURL string  `json:"detail_url,omitempty"`
}

// ServiceOptions 是 Service 的可选参数。
type ServiceOptions struct {
	// Memo 进程内记忆化存储；为空时不做记忆化
	Memo core.Store
	// MemoTTL 记忆化条目的过期时间，<= 0 表示不过期
	MemoTTL time.Duration
}

// Service = 记忆化的 Lookup + 元数据补全。
// Index 只读，排序结果只依赖片名，因此按片名记忆化是安全的。
type Service struct {
	lookup   *Lookup
	enricher Enricher
	memo     core.Store
	memoTTL  int
	group    singleflight.Group
}

func NewService(lookup *Lookup, enricher Enricher, opts ServiceOptions) *Service {
	ttl := 0
	if opts.MemoTTL > 0 {
		ttl = int(math.Ceil(opts.MemoTTL.Seconds()))
	}
	return &Service{
		lookup:   lookup,
		enricher: enricher,
		memo:     opts.Memo,
		memoTTL:  ttl,
	}
}

// Titles 返回可选片名（目录顺序）。
func (s *Service) Titles() []string {
	return s.lookup.Index().Titles()
}

func memoKey(title string) string {
	return "recommend:" + title
}

// Lookup 返回排序结果。命中记忆化时不重新计算；同一片名的并发请求只计算一次。
func (s *Service) Lookup(ctx context.Context, title string) ([]Scored, error) {
	start := time.Now()
	defer func() { metrics.RecommendDuration.Observe(time.Since(start).Seconds()) }()

	if cached, ok := s.fromMemo(ctx, title); ok {
		metrics.RecommendTotal.WithLabelValues("memo").Inc()
		return cached, nil
	}

	v, err, _ := s.group.Do(title, func() (any, error) {
		scored, err := s.lookup.Recommend(context.WithoutCancel(ctx), title)
		if err != nil {
			return nil, err
		}
		s.toMemo(ctx, title, scored)
		return scored, nil
	})
	if err != nil {
		metrics.RecommendTotal.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}
	metrics.RecommendTotal.WithLabelValues("ok").Inc()
	return v.([]Scored), nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, core.ErrTitleNotFound):
		return "not_found"
	case errors.Is(err, core.ErrEmptyResult):
		return "empty"
	default:
		return "error"
	}
}

func (s *Service) fromMemo(ctx context.Context, title string) ([]Scored, bool) {
	if s.memo == nil {
		return nil, false
	}
	data, err := s.memo.Get(ctx, memoKey(title))
	if err != nil {
		if !core.IsStoreNotFound(err) {
			logging.Ctx(ctx).Warn().Err(err).Str("store", s.memo.Name()).Msg("memo read failed")
		}
		return nil, false
	}
	var scored []Scored
	if err := json.Unmarshal(data, &scored); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("title", title).Msg("memo entry unreadable")
		return nil, false
	}
	return scored, true
}

func (s *Service) toMemo(ctx context.Context, title string, scored []Scored) {
	if s.memo == nil {
		return
	}
	data, err := json.Marshal(scored)
	if err != nil {
		return
	}
	if err := s.memo.Set(ctx, memoKey(title), data, s.memoTTL); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("store", s.memo.Name()).Msg("memo write failed")
	}
}

// Recommend 查询相似电影并补全海报/详情链接。
// 排序失败时返回错误（ErrTitleNotFound / ErrEmptyResult）；补全失败只会让对应字段为空。
func (s *Service) Recommend(ctx context.Context, title string) ([]Recommendation, error) {
	scored, err := s.Lookup(ctx, title)
	if err != nil {
		return nil, err
	}

	titles := make([]string, len(scored))
	for i, sc := range scored {
		titles[i] = sc.Title
	}

	var enriched []enrich.Result
	if s.enricher != nil {
		enriched = s.enricher.Enrich(ctx, titles)
	}

	out := make([]Recommendation, len(scored))
	for i, sc := range scored {
		out[i] = Recommendation{ID: sc.ID, Title: sc.Title, Score: sc.Score}
		if i < len(enriched) {
			out[i].PosterURL = enriched[i].PosterURL
			out[i].DetailURL = enriched[i].DetailURL
		}
	}
	return out, nil
}
