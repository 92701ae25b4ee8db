package httpserver

import (
	"net/http"
	"time"
)

// New builds the gateway's HTTP server. The read and write timeouts are
// generous because login and monitoring requests carry base64 webcam
// captures, often over slow campus wifi.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
