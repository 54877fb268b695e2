package server

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/recbridge/internal/aggregate"
	"github.com/loykin/recbridge/internal/auth"
	"github.com/loykin/recbridge/internal/metrics"
)

// Router provides embeddable HTTP handlers for the aggregation API.
// Endpoints (under {basePath}/api):
//   POST /auth/login                  body: {username, password}
//   GET  /data                        all rooms across instances
//   GET  /data/:target                target = numeric room ID or vendor name
//   GET  /data/:target/:roomId        vendor-scoped room lookup
//   POST /rooms                       create; query: vendor=...&instance=...
//   DELETE /rooms/:roomId             delete
//   POST /rooms/:roomId/{start,stop,split,refresh}
//   GET/POST /rooms/:roomId/config    read / update config
//   GET /rooms/:roomId/{stats,status}
//   POST /batch/rooms/{create,delete}
//   GET/POST /instances, DELETE /instances/:vendor/:name
//   GET /instances/status             online/offline/error probe fan-out
//   POST /batch/instances/{add,remove}
// basePath may be empty or start with '/'; no trailing slash.

type Router struct {
	svc      *aggregate.Service
	auth     *auth.Service
	basePath string
	webUI    string
	metrics  bool
}

// NewRouter constructs a Router with configurable basePath.
func NewRouter(svc *aggregate.Service, authSvc *auth.Service, basePath string) *Router {
	return &Router{svc: svc, auth: authSvc, basePath: sanitizeBase(basePath)}
}

// ServeWebUI enables static serving of the web UI from dir.
func (r *Router) ServeWebUI(dir string) { r.webUI = dir }

// ServeMetrics mounts the Prometheus handler at {basePath}/metrics.
func (r *Router) ServeMetrics() { r.metrics = true }

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)

	if r.webUI != "" {
		group.StaticFile("/", filepath.Join(r.webUI, "index.html"))
		group.Static("/assets", filepath.Join(r.webUI, "assets"))
	}
	if r.metrics {
		group.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := group.Group("/api")
	api.POST("/auth/login", r.handleLogin)

	authed := api.Group("", r.auth.GinAuth())

	authed.GET("/data", r.handleListAll)
	authed.GET("/data/:target", r.handleDataTarget)
	authed.GET("/data/:target/:roomId", r.handleVendorRoom)

	rooms := authed.Group("/rooms")
	rooms.POST("", r.handleCreateRoom)
	rooms.DELETE("/:roomId", r.handleDeleteRoom)
	rooms.POST("/:roomId/start", r.handleStart)
	rooms.POST("/:roomId/stop", r.handleStop)
	rooms.POST("/:roomId/split", r.handleSplit)
	rooms.POST("/:roomId/refresh", r.handleRefresh)
	rooms.GET("/:roomId/config", r.handleGetConfig)
	rooms.POST("/:roomId/config", r.handleUpdateConfig)
	rooms.GET("/:roomId/stats", r.handleGetStats)
	rooms.GET("/:roomId/status", r.handleGetStatus)

	batch := authed.Group("/batch")
	batch.POST("/rooms/create", r.handleBatchCreateRooms)
	batch.POST("/rooms/delete", r.handleBatchDeleteRooms)
	batch.POST("/instances/add", r.handleBatchAddInstances)
	batch.POST("/instances/remove", r.handleBatchRemoveInstances)

	inst := authed.Group("/instances")
	inst.GET("", r.handleListInstances)
	inst.GET("/status", r.handleInstanceStatuses)
	inst.POST("", r.handleAddInstance)
	inst.DELETE("/:vendor/:name", r.handleRemoveInstance)

	return g
}

// NewServer starts a standalone HTTP server on addr using this router. The
// returned server can be shut down via Close.
func NewServer(addr string, r *Router) (*http.Server, error) {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Common response shapes ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type dataResp struct {
	Data any `json:"data"`
}
