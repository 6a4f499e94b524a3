package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/dvcrn/authtoken-proxy/internal/auth"
)

// hopHeaders are connection-level headers that are not forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// sseFlushWriter wraps a ResponseWriter to flush after each write.
type sseFlushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw sseFlushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err == nil {
		fw.f.Flush()
	}
	return n, err
}

func (s *Server) proxyHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error reading request body")
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	resp, err := s.forwardWithRetry(r, body)
	if err != nil {
		var renewalErr *auth.RenewalError
		if errors.As(err, &renewalErr) {
			s.logger.Error().Err(err).Msg("❌ Could not authorize upstream request")
			s.writeRenewalError(w, err)
			return
		}
		s.logger.Error().Err(err).Msg("Error making request to upstream")
		http.Error(w, "Failed to communicate with upstream API: "+err.Error(), http.StatusBadGateway)
		return
	}

	s.writeResponse(w, resp)
}

// forwardWithRetry forwards the request and, when the upstream rejects the
// access token with 401, forces one renewal and retries.
func (s *Server) forwardWithRetry(r *http.Request, body []byte) (*http.Response, error) {
	resp, err := s.forward(r, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	loggedIn, err := s.coord.Store().IsLoggedIn(r.Context())
	if err != nil || !loggedIn {
		return resp, nil
	}

	s.logger.Warn().Msg("Received 401 Unauthorized, attempting token refresh...")
	resp.Body.Close()

	if _, err := s.coord.Refresh(r.Context(), s.renew); err != nil {
		return nil, fmt.Errorf("token rejected and refresh failed: %w", err)
	}

	s.logger.Info().Msg("Successfully refreshed credentials, retrying request...")
	resp, err = s.forward(r, body)
	if err != nil {
		return nil, fmt.Errorf("retry request failed: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		s.logger.Error().Msg("Still received 401 after token refresh, giving up")
	}
	return resp, nil
}

func (s *Server) forward(r *http.Request, body []byte) (*http.Response, error) {
	target := s.upstream.JoinPath(r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	proxyReq, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy request: %w", err)
	}
	copyHeaders(proxyReq.Header, r.Header)
	for _, h := range hopHeaders {
		proxyReq.Header.Del(h)
	}
	// Inbound credentials are for this proxy, never for the upstream.
	proxyReq.Header.Del("Authorization")
	proxyReq.Header.Del("X-API-Key")
	proxyReq.Header.Del(s.header.Name)

	resp, err := s.httpClient.Do(proxyReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func (s *Server) writeResponse(w http.ResponseWriter, resp *http.Response) {
	defer resp.Body.Close()

	rawContentType := resp.Header.Get("Content-Type")
	mediaType := rawContentType
	if mt, _, err := mime.ParseMediaType(rawContentType); err == nil {
		mediaType = mt
	}

	ev := s.logger.Info()
	if resp.StatusCode >= 400 {
		ev = s.logger.Warn()
	}
	ev.Int("status_code", resp.StatusCode).
		Str("content_type", rawContentType).
		Str("content_length", resp.Header.Get("Content-Length")).
		Msg("Received response from upstream API")

	copyHeaders(w.Header(), resp.Header)
	for _, h := range hopHeaders {
		w.Header().Del(h)
	}

	isStreaming := mediaType == "text/event-stream"
	if isStreaming {
		w.Header().Del("Content-Length")
		w.Header().Set("Cache-Control", "no-cache")
	}
	w.WriteHeader(resp.StatusCode)

	var out io.Writer = w
	if flusher, ok := w.(http.Flusher); ok && isStreaming {
		flusher.Flush()
		out = sseFlushWriter{w: w, f: flusher}
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		s.logger.Error().Err(err).Msg("Error streaming upstream response")
	}
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}
