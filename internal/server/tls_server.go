package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/loykin/recbridge/internal/config"
	itls "github.com/loykin/recbridge/internal/tls"
)

// NewTLSServer starts an HTTPS server using the TLS settings from cfg. The
// returned server can be shut down via Close or Shutdown.
func NewTLSServer(cfg config.ServerConfig, r *Router) (*http.Server, error) {
	tlsConfig, err := itls.Setup(cfg)
	if err != nil {
		return nil, err
	}
	if tlsConfig == nil {
		return nil, errors.New("TLS is not enabled in server configuration")
	}

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r.Handler(),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServeTLS("", "") }()
	return server, nil
}
