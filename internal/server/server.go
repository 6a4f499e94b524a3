package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dvcrn/authtoken-proxy/internal/auth"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-Id"

// HTTPClient is an interface for making HTTP requests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	// Upstream is the base URL every non-admin request is forwarded to.
	// Without it the proxy route answers 404.
	Upstream string
	// AdminKey guards the admin routes and, when set, the proxy route.
	AdminKey   string
	AdminRate  float64
	AdminBurst int
	Header     auth.Header
	// Base is the client used for upstream requests before the auth
	// transport is layered on. Defaults to NewHTTPClient().
	Base *http.Client
}

type Server struct {
	coord      *auth.Coordinator
	renew      auth.RenewFunc
	header     auth.Header
	upstream   *url.URL
	httpClient HTTPClient
	adminKey   string
	limiter    *rate.Limiter
	mux        *http.ServeMux
	logger     zerolog.Logger
}

func New(logger zerolog.Logger, coord *auth.Coordinator, renew auth.RenewFunc, opts Options) (*Server, error) {
	if coord == nil || renew == nil {
		return nil, errors.New("server requires a coordinator and a renew function")
	}

	base := opts.Base
	if base == nil {
		base = NewHTTPClient()
	}
	header := opts.Header.WithDefaults()
	client, err := auth.NewClient(base, coord, renew, header)
	if err != nil {
		return nil, err
	}

	s := &Server{
		coord:      coord,
		renew:      renew,
		header:     header,
		httpClient: client,
		adminKey:   opts.AdminKey,
		limiter:    newAdminLimiter(opts.AdminRate, opts.AdminBurst),
		mux:        http.NewServeMux(),
		logger:     logger,
	}

	if opts.Upstream != "" {
		u, err := url.Parse(opts.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid upstream URL %q", opts.Upstream)
		}
		s.upstream = u
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.HandleFunc("/admin/credentials", s.adminMiddleware(s.credentialsHandler))
	s.mux.HandleFunc("/admin/credentials/status", s.adminMiddleware(s.credentialsStatusHandler))
	s.mux.HandleFunc("/admin/credentials/refresh", s.adminMiddleware(s.credentialsRefreshHandler))

	if s.upstream == nil {
		s.mux.HandleFunc("/", s.notFoundHandler)
		return
	}
	if s.adminKey != "" {
		s.mux.HandleFunc("/", s.keyMiddleware(s.proxyHandler))
		return
	}
	s.mux.HandleFunc("/", s.proxyHandler)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.loggingMiddleware(s.mux).ServeHTTP(w, r)
}

// statusRecorder captures the response status for the access log while
// keeping the writer flushable for streamed responses.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		log := s.logger.With().Str("request_id", requestID).Logger()
		r = r.WithContext(log.WithContext(r.Context()))

		log.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("Incoming request")

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Finished request")
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn().
		Str("method", r.Method).
		Str("uri", r.RequestURI).
		Str("remote_addr", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Msg("Unhandled route")
	http.NotFound(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRenewalError maps a failed renewal to the response a client can act
// on: 401 when the session is gone, 502 otherwise.
func (s *Server) writeRenewalError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, auth.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, errorResponse{Status: "error", Error: err.Error()})
}
