package server

import (
	"embed"
	"html/template"
	"net/http"
	"strings"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexData struct {
	Title string
	Icon  template.URL
	State string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Title: s.title,
		State: s.notifier.State().String(),
	}
	// Only inline icons are trusted as link targets
	if icon := s.hub.Current(); strings.HasPrefix(icon, "data:image/") {
		data.Icon = template.URL(icon)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Warn("failed to render page", "error", err)
	}
}
