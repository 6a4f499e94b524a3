package server

import (
	"time"

	"github.com/dvcrn/authtoken-proxy/internal/auth"
)

type credentialsRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type statusResponse struct {
	auth.Status
	StorageKey string        `json:"storageKey"`
	Fudge      time.Duration `json:"fudge"`
}

type refreshResponse struct {
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}
