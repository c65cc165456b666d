package api

import (
	"net/http"
	"strings"
)

// getTrending returns GitHub trending repositories per language.
// GET /api/trending?languages=go,rust
func (s *Server) getTrending(w http.ResponseWriter, r *http.Request) {
	if s.trendingSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "trending not available")
		return
	}

	var languages []string
	if raw := r.URL.Query().Get("languages"); raw != "" {
		for _, lang := range strings.Split(raw, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				languages = append(languages, lang)
			}
		}
	}

	result, err := s.trendingSvc.Fetch(r.Context(), languages)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
