package recbridge

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/loykin/recbridge/internal/aggregate"
	"github.com/loykin/recbridge/internal/auth"
	"github.com/loykin/recbridge/internal/backend"
	cfg "github.com/loykin/recbridge/internal/config"
	"github.com/loykin/recbridge/internal/logger"
	"github.com/loykin/recbridge/internal/metrics"
	"github.com/loykin/recbridge/internal/registry"
	iapi "github.com/loykin/recbridge/internal/server"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Instance = backend.Instance

type Vendor = backend.Vendor

const (
	VendorAny     = backend.VendorAny
	VendorRecheme = backend.VendorRecheme
	VendorBLREC   = backend.VendorBLREC
)

type Room = backend.Room

type Outcome = backend.Outcome

type Filter = aggregate.Filter

type Result = aggregate.Result

type BatchResult = aggregate.BatchResult

type InstanceStatus = aggregate.InstanceStatus

type Config = cfg.Config

// Service is a thin facade over internal/aggregate.Service.
// It provides a stable public API for embedding.

type Service struct{ inner *aggregate.Service }

func New(instances []Instance, saver registry.Saver, log *slog.Logger) *Service {
	return &Service{inner: aggregate.NewService(registry.New(instances, saver), log)}
}

// NewFromConfig builds a service whose registry is seeded from the config
// file and persists instance changes back to it.
func NewFromConfig(c *Config, log *slog.Logger) *Service {
	saver := registry.SaverFunc(func(instances []Instance) error {
		return c.SaveInstances(instances)
	})
	return New(c.Instances, saver, log)
}

func (s *Service) ListRooms(ctx context.Context, vendor Vendor) []Room {
	return s.inner.ListRooms(ctx, vendor)
}
func (s *Service) LookupRoom(ctx context.Context, roomID int64, vendor Vendor) ([]Room, error) {
	return s.inner.LookupRoom(ctx, roomID, vendor)
}
func (s *Service) InstanceStatuses(ctx context.Context, f Filter) []InstanceStatus {
	return s.inner.InstanceStatuses(ctx, f)
}
func (s *Service) CreateRoom(ctx context.Context, caller string, f Filter, roomID int64, autoRecord bool) (*Result, error) {
	return s.inner.CreateRoom(ctx, caller, f, roomID, autoRecord)
}
func (s *Service) DeleteRoom(ctx context.Context, caller string, f Filter, roomID int64) (*Result, error) {
	return s.inner.DeleteRoom(ctx, caller, f, roomID)
}
func (s *Service) StartRecording(ctx context.Context, caller string, f Filter, roomID int64) (*Result, error) {
	return s.inner.StartRecording(ctx, caller, f, roomID)
}
func (s *Service) StopRecording(ctx context.Context, caller string, f Filter, roomID int64) (*Result, error) {
	return s.inner.StopRecording(ctx, caller, f, roomID)
}
func (s *Service) AddInstance(inst Instance) error { return s.inner.AddInstance(inst) }
func (s *Service) RemoveInstance(v Vendor, name string) error {
	return s.inner.RemoveInstance(v, name)
}
func (s *Service) Instances(v Vendor, name string) []Instance {
	return s.inner.Registry().List(v, name)
}

func LoadConfig(path string) (*Config, error) {
	return cfg.Load(path)
}

// NewLogger builds the shared slog logger from a loaded configuration.
func NewLogger(c *Config) *slog.Logger { return logger.New(c.Log) }

// ServerOptions tunes the HTTP surface beyond the API routes themselves.
type ServerOptions struct {
	BasePath string
	WebUIDir string // serve a static web UI from this directory when set
	Metrics  bool   // mount /metrics on the API listener
}

// NewHTTPServer starts an HTTP server exposing the aggregation API using the
// given service and auth settings.
func NewHTTPServer(addr string, opts ServerOptions, s *Service, authSvc *auth.Service) (*http.Server, error) {
	r := iapi.NewRouter(s.inner, authSvc, opts.BasePath)
	if opts.WebUIDir != "" {
		r.ServeWebUI(opts.WebUIDir)
	}
	if opts.Metrics {
		r.ServeMetrics()
	}
	return iapi.NewServer(addr, r)
}

// NewTLSServer starts an HTTPS server using the TLS settings carried in the
// server configuration section.
func NewTLSServer(sc cfg.ServerConfig, opts ServerOptions, s *Service, authSvc *auth.Service) (*http.Server, error) {
	r := iapi.NewRouter(s.inner, authSvc, opts.BasePath)
	if opts.WebUIDir != "" {
		r.ServeWebUI(opts.WebUIDir)
	}
	if opts.Metrics {
		r.ServeMetrics()
	}
	return iapi.NewTLSServer(sc, r)
}

// NewAuth builds the token service from a loaded configuration.
func NewAuth(c *Config) *auth.Service { return auth.New(c.Auth) }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
