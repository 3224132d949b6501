// Package httpserver builds the process's HTTP server. The API is plain
// JSON request/response with no streaming endpoints, so every deadline can
// be tight.
package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	// The router's Timeout middleware cuts handlers off at 30s; the write
	// deadline sits above it so the 504 body still reaches the client.
	writeTimeout = 35 * time.Second
	idleTimeout  = 60 * time.Second
)

// New builds an HTTP server with the project's timeout policy applied.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
