package server

import (
	"encoding/json"
	"net/http"

	"github.com/dvcrn/authtoken-proxy/internal/credentials"
	"github.com/dvcrn/authtoken-proxy/internal/token"
)

// credentialsHandler handles POST /admin/credentials (store a token pair)
// and DELETE /admin/credentials (log out).
func (s *Server) credentialsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.setCredentials(w, r)
	case http.MethodDelete:
		s.clearCredentials(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) setCredentials(w http.ResponseWriter, r *http.Request) {
	var reqBody credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		s.logger.Error().Err(err).Msg("Failed to parse request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if reqBody.AccessToken == "" || reqBody.RefreshToken == "" {
		http.Error(w, "Missing required fields: accessToken, refreshToken", http.StatusBadRequest)
		return
	}

	pair := credentials.Pair{AccessToken: reqBody.AccessToken, RefreshToken: reqBody.RefreshToken}
	if err := s.coord.Store().SetPair(r.Context(), pair); err != nil {
		s.logger.Error().Err(err).Msg("Failed to store auth tokens")
		http.Error(w, "Failed to update credentials", http.StatusInternalServerError)
		return
	}

	s.logger.Info().
		Str("access_token", token.Preview(pair.AccessToken)).
		Msg("🔑 Auth tokens updated")
	writeJSON(w, http.StatusOK, messageResponse{Status: "success", Message: "Credentials updated successfully"})
}

func (s *Server) clearCredentials(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Store().Clear(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear auth tokens")
		http.Error(w, "Failed to clear credentials", http.StatusInternalServerError)
		return
	}

	s.logger.Info().Msg("🗑️ Auth tokens cleared")
	writeJSON(w, http.StatusOK, messageResponse{Status: "success", Message: "Credentials cleared"})
}

// credentialsStatusHandler handles GET /admin/credentials/status
func (s *Server) credentialsStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	st, err := s.coord.Status(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read auth tokens")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:     st,
		StorageKey: s.coord.Store().Key(),
		Fudge:      s.coord.Fudge(),
	})
}

// credentialsRefreshHandler handles POST /admin/credentials/refresh
func (s *Server) credentialsRefreshHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	accessToken, err := s.coord.Refresh(r.Context(), s.renew)
	if err != nil {
		s.logger.Error().Err(err).Msg("❌ Forced refresh failed")
		s.writeRenewalError(w, err)
		return
	}

	resp := refreshResponse{Status: "success"}
	if exp, ok := token.ExpiresAt(accessToken); ok {
		resp.ExpiresAt = exp
	}
	writeJSON(w, http.StatusOK, resp)
}
