package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesphere/catalog"
	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/enrich"
	"github.com/rushteam/cinesphere/recommend"
	"github.com/rushteam/cinesphere/store"
)

const placeholder = "https://via.placeholder.com/300x450.png?text=Poster+Not+Found"

// newStack 用六部电影的示例目录和一个假的 OMDb 组装完整的服务。
// 假 OMDb 只认识 E 和 B，其中 B 没有海报。
func newStack(t *testing.T) *Server {
	t.Helper()

	omdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("t") {
		case "E":
			_, _ = w.Write([]byte(`{"Response":"True","Title":"E","Poster":"https://img.example/e.jpg","imdbID":"tt0000005"}`))
		case "B":
			_, _ = w.Write([]byte(`{"Response":"True","Title":"B","Poster":"N/A","imdbID":"tt0000002"}`))
		default:
			_, _ = w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
		}
	}))
	t.Cleanup(omdb.Close)

	cat := catalog.Catalog{
		{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"},
		{ID: 4, Title: "D"}, {ID: 5, Title: "E"}, {ID: 6, Title: "F"},
	}
	m, err := catalog.MatrixFromRows([][]float64{
		{1.0, 0.9, 0.1, 0.8, 0.95, 0.2},
		{0.9, 1.0, 0.3, 0.4, 0.5, 0.6},
		{0.1, 0.3, 1.0, 0.2, 0.1, 0.7},
		{0.8, 0.4, 0.2, 1.0, 0.3, 0.1},
		{0.95, 0.5, 0.1, 0.3, 1.0, 0.2},
		{0.2, 0.6, 0.7, 0.1, 0.2, 1.0},
	})
	require.NoError(t, err)
	idx, err := catalog.NewIndex(cat, m)
	require.NoError(t, err)

	lookup, err := recommend.NewLookup(idx, recommend.LookupOptions{})
	require.NoError(t, err)
	client, err := enrich.NewClient(enrich.ClientOptions{BaseURL: omdb.URL + "/"})
	require.NoError(t, err)
	memo := store.NewMemoryStore()
	t.Cleanup(func() { _ = memo.Close() })

	svc := recommend.NewService(lookup, enrich.NewEnricher(client, enrich.Options{PosterAPIKey: "k"}), recommend.ServiceOptions{Memo: memo})
	return New(svc, Options{PlaceholderPoster: placeholder})
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestAPI_Recommendations(t *testing.T) {
	h := newStack(t).Handler()

	rec := get(t, h, "/api/recommendations?title=A")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var body recommendationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Recommendations, 5)

	titles := make([]string, len(body.Recommendations))
	for i, r := range body.Recommendations {
		titles[i] = r.Title
	}
	assert.Equal(t, []string{"E", "B", "D", "F", "C"}, titles)

	assert.Equal(t, "https://img.example/e.jpg", body.Recommendations[0].PosterURL)
	assert.Equal(t, "https://www.imdb.com/title/tt0000005/", body.Recommendations[0].DetailURL)
	assert.Empty(t, body.Recommendations[1].PosterURL)
	assert.Equal(t, "https://www.imdb.com/title/tt0000002/", body.Recommendations[1].DetailURL)
	assert.Empty(t, body.Recommendations[2].PosterURL)
	assert.Empty(t, body.Recommendations[2].DetailURL)
}

func TestAPI_RecommendationErrors(t *testing.T) {
	h := newStack(t).Handler()

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"missing title", "/api/recommendations", http.StatusBadRequest, core.ErrorCodeInvalidInput},
		{"blank title", "/api/recommendations?title=%20", http.StatusBadRequest, core.ErrorCodeInvalidInput},
		{"unknown title", "/api/recommendations?title=Nope", http.StatusNotFound, core.ErrorCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			assert.Equal(t, tt.status, rec.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestAPI_Movies(t *testing.T) {
	rec := get(t, newStack(t).Handler(), "/api/movies")
	require.Equal(t, http.StatusOK, rec.Code)

	var body moviesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, body.Titles)
}

func TestPage(t *testing.T) {
	h := newStack(t).Handler()

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<option value="F">F</option>`)
	assert.NotContains(t, rec.Body.String(), `class="card"`)

	rec = get(t, h, "/?title=A")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 5, strings.Count(body, `class="card"`))
	assert.Contains(t, body, `<option value="A" selected>A</option>`)
	assert.Contains(t, body, `href="https://www.imdb.com/title/tt0000005/"`)
	assert.Contains(t, body, `src="https://img.example/e.jpg"`)
	// 没有海报的卡片使用占位图
	assert.Equal(t, 4, strings.Count(body, `src="https://via.placeholder.com/300x450.png`))
}

func TestPage_UnknownTitle(t *testing.T) {
	rec := get(t, newStack(t).Handler(), "/?title=Nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="lookup-error"`)
	assert.Contains(t, rec.Body.String(), `<select`)
}

func TestHealthz(t *testing.T) {
	rec := get(t, newStack(t).Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newStack(t).Handler()
	_ = get(t, h, "/api/movies")

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cinesphere_http_requests_total{route="/api/movies",status="200"}`)
}

func TestDegraded(t *testing.T) {
	loadErr := core.ErrCatalogNotFound.Wrap(errors.New("open movie_dict.json: no such file"), "catalog")
	h := New(nil, Options{LoadErr: loadErr}).Handler()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="load-error"`)
	assert.NotContains(t, rec.Body.String(), `<select`)

	rec = get(t, h, "/?title=A")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), `class="card"`)

	for _, target := range []string{"/api/movies", "/api/recommendations?title=A"} {
		rec = get(t, h, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, core.ErrorCodeUnavailable, body.Error.Code)
	}

	rec = get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)

	assert.Equal(t, http.StatusOK, get(t, h, "/metrics").Code)
}

type stubRecommender struct {
	err error
}

func (s stubRecommender) Titles() []string { return []string{"A"} }

func (s stubRecommender) Recommend(context.Context, string) ([]recommend.Recommendation, error) {
	return nil, s.err
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.ErrEmptyResult.Wrap(nil, "1 row"), http.StatusUnprocessableEntity},
		{core.ErrTitleNotFound.Wrap(nil, "%q", "x"), http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := New(stubRecommender{err: tt.err}, Options{}).Handler()
		assert.Equal(t, tt.status, get(t, h, "/api/recommendations?title=A").Code, tt.err.Error())
		assert.Equal(t, tt.status, get(t, h, "/?title=A").Code, tt.err.Error())
	}
}

func TestRateLimit(t *testing.T) {
	h := New(stubRecommender{}, Options{RateLimit: 2}).Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/api/movies").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/").Code)

	rec := get(t, h, "/api/movies")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, core.ErrorCodeUnavailable, body.Error.Code)

	// 健康检查与指标不受限流影响
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
}

func TestCORS(t *testing.T) {
	h := New(stubRecommender{}, Options{CORSOrigins: []string{"https://app.example"}}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/movies", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/movies", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
