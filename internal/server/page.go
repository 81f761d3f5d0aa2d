package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// page is everything the index template needs.
type page struct {
	Hostname      string
	RemoteAddr    string
	Message       *StatusMessage
	DefaultBucket string
	DefaultDriver string
	Drivers       []string
}

func (s *Server) newPage(r *http.Request) page {
	return page{
		Hostname:      s.cfg.Hostname,
		RemoteAddr:    remoteHost(r),
		DefaultBucket: s.cfg.DefaultBucket,
		DefaultDriver: s.cfg.DefaultDriver,
		Drivers:       []string{DriverMySQL, DriverPostgres, DriverSQLServer},
	}
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, p page) {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, p); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("render_failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
