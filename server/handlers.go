package server

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rushteam/cinesphere/core"
	"github.com/rushteam/cinesphere/logging"
	"github.com/rushteam/cinesphere/recommend"
)

type errorBody struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type moviesResponse struct {
	Titles []string `json:"titles"`
}

type recommendationsResponse struct {
	Title           string                     `json:"title"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		ev := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			ev = logging.Ctx(r.Context()).Error()
		}
		ev.Err(err).Str("code", code).Int("status", status).Msg("request failed")
	}
	respondJSON(w, r, status, errorBody{Error: apiError{Code: code, Message: message}})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.Degraded() {
		respondJSON(w, r, http.StatusOK, healthResponse{Status: "degraded", Error: s.opts.LoadErr.Error()})
		return
	}
	respondJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) movies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, moviesResponse{Titles: s.svc.Titles()})
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if strings.TrimSpace(title) == "" {
		respondError(w, r, http.StatusBadRequest, core.ErrorCodeInvalidInput, "query parameter \"title\" is required", nil)
		return
	}

	recs, err := s.svc.Recommend(r.Context(), title)
	if err != nil {
		status, code := statusFor(err)
		respondError(w, r, status, code, err.Error(), err)
		return
	}
	respondJSON(w, r, http.StatusOK, recommendationsResponse{Title: title, Recommendations: recs})
}
