// Package server 暴露 HTTP 接口：选择页面、JSON API、健康检查与 Prometheus 指标。
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/recommend"
)

// Recommender 是 server 依赖的推荐服务，由 recommend.Service 实现。
type Recommender interface {
	Titles() []string
	Recommend(ctx context.Context, title string) ([]recommend.Recommendation, error)
}

// Options 是 Server 的参数。
type Options struct {
	// PlaceholderPoster 海报缺省时显示的图片
	PlaceholderPoster string
	// LoadErr 不为空表示数据加载失败，除 /healthz 与 /metrics 外一律返回 503
	LoadErr error
	// RateLimit 每个客户端 IP 在 RateWindow 内允许的页面/API 请求数，0 表示不限流
	RateLimit  int
	RateWindow time.Duration
	// CORSOrigins 允许跨域调用 /api 的来源，为空时不输出 CORS 头
	CORSOrigins []string
}

// Server 持有路由所需的依赖。
type Server struct {
	svc  Recommender
	opts Options
}

// New 创建 Server。svc 为 nil 时等同于加载失败。
func New(svc Recommender, opts Options) *Server {
	if svc == nil && opts.LoadErr == nil {
		opts.LoadErr = core.ErrCatalogNotFound.Wrap(nil, "no data loaded")
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	return &Server{svc: svc, opts: opts}
}

// Degraded 表示数据未加载，服务只能展示错误页。
func (s *Server) Degraded() bool { return s.opts.LoadErr != nil }

// Handler 返回完整的路由。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(instrument)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.opts.RateLimit > 0 {
			r.Use(httprate.Limit(s.opts.RateLimit, s.opts.RateWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(s.limited),
			))
		}
		if s.Degraded() {
			r.Use(s.unavailable)
		}
		r.Get("/", s.page)
		r.Route("/api", func(r chi.Router) {
			if len(s.opts.CORSOrigins) > 0 {
				r.Use(cors.Handler(cors.Options{
					AllowedOrigins: s.opts.CORSOrigins,
					AllowedMethods: []string{http.MethodGet, http.MethodOptions},
					AllowedHeaders: []string{"Accept", "Content-Type", chimiddleware.RequestIDHeader},
					ExposedHeaders: []string{chimiddleware.RequestIDHeader},
					MaxAge:         300,
				}))
			}
			r.Get("/movies", s.movies)
			r.Get("/recommendations", s.recommendations)
		})
	})

	return r
}

func (s *Server) limited(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		respondError(w, r, http.StatusTooManyRequests, core.ErrorCodeUnavailable, "too many requests", nil)
		return
	}
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

// unavailable 在数据加载失败时拦截请求：API 返回 JSON 错误，其余渲染错误页。
func (s *Server) unavailable(_ http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPI(r) {
			respondError(w, r, http.StatusServiceUnavailable, core.ErrorCodeUnavailable, "movie data could not be loaded", s.opts.LoadErr)
			return
		}
		s.render(w, r, http.StatusServiceUnavailable, pageData{LoadError: "Movie data could not be loaded. Please try again later."})
	})
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// statusFor 把领域错误映射为 HTTP 状态码。
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrTitleNotFound):
		return http.StatusNotFound, core.ErrorCodeNotFound
	case errors.Is(err, core.ErrEmptyResult):
		return http.StatusUnprocessableEntity, core.ErrorCodeEmptyResult
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, core.ErrorCodeUnavailable
	default:
		return http.StatusInternalServerError, core.ErrorCodeInternalError
	}
}
