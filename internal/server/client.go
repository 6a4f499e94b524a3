package server

import (
	"net/http"
	"time"
)

// NewHTTPClient creates the base client for upstream requests
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
	}
}
