package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rushteam/cinesphere/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Titles    []string
	Selected  string
	Cards     []card
	Error     string
	LoadError string
}

type card struct {
	Title     string
	PosterURL string
	DetailURL string
}

// page 渲染选择页；带 title 参数时附上推荐卡片，排序错误在页面内提示。
func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Titles:   s.svc.Titles(),
		Selected: r.URL.Query().Get("title"),
	}
	if data.Selected == "" {
		s.render(w, r, http.StatusOK, data)
		return
	}

	status := http.StatusOK
	recs, err := s.svc.Recommend(r.Context(), data.Selected)
	if err != nil {
		status, _ = statusFor(err)
		data.Error = pageMessage(status)
		logging.Ctx(r.Context()).Warn().Err(err).Str("title", data.Selected).Msg("recommendation failed")
	}
	for _, rec := range recs {
		c := card{Title: rec.Title, PosterURL: rec.PosterURL, DetailURL: rec.DetailURL}
		if c.PosterURL == "" {
			c.PosterURL = s.opts.PlaceholderPoster
		}
		data.Cards = append(data.Cards, c)
	}
	s.render(w, r, status, data)
}

func pageMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "That movie is not in the catalog."
	case http.StatusUnprocessableEntity:
		return "The catalog is too small to recommend anything."
	default:
		return "Recommendations are unavailable right now."
	}
}

// render 先渲染到缓冲区，模板出错时不会写出半个页面。
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("failed to write page")
	}
}
