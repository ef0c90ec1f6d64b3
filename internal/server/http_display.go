package server

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"resumetailor/internal/utils"
)

// displayServerInfo prints the startup banner to stderr, keeping stdout
// free for command output.
func (s *Server) displayServerInfo(httpServer *http.Server) {
	s.writeServerInfo(os.Stderr, httpServer)
}

func (s *Server) writeServerInfo(w io.Writer, httpServer *http.Server) {
	scheme := "http"
	if httpServer.TLSConfig != nil {
		scheme = "https"
	}
	_, _ = fmt.Fprintf(w, "Starting resumetailor %s on %s://%s\n", s.Version, scheme, httpServer.Addr)

	switch s.TLSConfig.Mode {
	case "server":
		_, _ = fmt.Fprintln(w, "TLS mode: Server-only (no client certificates required)")
	case "mutual":
		_, _ = fmt.Fprintln(w, "TLS mode: Mutual (client certificates required)")
	default:
		_, _ = fmt.Fprintln(w, "TLS mode: Disabled (HTTP only)")
	}
	if s.TLSConfig.Reload && s.certs != nil {
		_, _ = fmt.Fprintln(w, "TLS auto-reload: ENABLED")
	}

	_, _ = fmt.Fprintln(w, "Available endpoints:")
	_, _ = fmt.Fprintln(w, "  GET  /health     - Health check")
	_, _ = fmt.Fprintln(w, "  GET  /stats      - Server statistics")
	_, _ = fmt.Fprintln(w, "  POST /extract    - Extract text from a PDF")
	_, _ = fmt.Fprintln(w, "  POST /structure  - Structure resume text into JSON")
	_, _ = fmt.Fprintln(w, "  POST /tailor     - Tailor a resume to a job description")
	_, _ = fmt.Fprintln(w, "  POST /translate  - Translate a resume")
	_, _ = fmt.Fprintln(w, "  POST /render     - Render a resume as PDF")
	_, _ = fmt.Fprintln(w, "  POST /run        - Run the full pipeline")

	if len(s.APIKeys) > 0 {
		_, _ = fmt.Fprintf(w, "API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
	} else {
		_, _ = fmt.Fprintln(w, "API authentication: DISABLED (no API keys configured)")
		_, _ = fmt.Fprintln(w, "WARNING: API endpoints are publicly accessible!")
	}

	if s.MaxRequestSize > 0 {
		_, _ = fmt.Fprintf(w, "File size limit: %s\n", utils.FormatFileSize(s.MaxRequestSize))
	} else {
		_, _ = fmt.Fprintln(w, "File size limit: DISABLED")
	}

	if s.RateLimit != nil && s.RateLimit.Enabled {
		_, _ = fmt.Fprintf(w, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			_, _ = fmt.Fprintln(w, "  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			_, _ = fmt.Fprintln(w, "  - Per IP address rate limiting enabled")
		}
	} else {
		_, _ = fmt.Fprintln(w, "Rate limiting: DISABLED")
	}

	for _, wt := range s.watchers {
		status := wt.Status()
		_, _ = fmt.Fprintf(w, "Watcher %v: running=%v\n", status["name"], status["running"])
	}
}
