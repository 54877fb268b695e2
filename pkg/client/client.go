package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Client provides HTTP client functionality to communicate with recbridge daemon
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

// Config holds client configuration
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Token    string       // Optional bearer token for authenticated endpoints
	Logger   *slog.Logger // Optional logger for client operations
	TLS      *TLSClientConfig
	Insecure bool // Skip TLS verification
}

// TLSClientConfig holds TLS configuration for client
type TLSClientConfig struct {
	Enabled    bool   // Enable TLS
	CACert     string // CA certificate file path
	ClientCert string // Client certificate file
	ClientKey  string // Client private key file
	ServerName string // Server name for verification
	SkipVerify bool   // Skip certificate verification
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:11111/api",
		Timeout: 10 * time.Second,
	}
}

// DefaultTLSConfig returns default TLS client configuration
func DefaultTLSConfig() Config {
	return Config{
		BaseURL: "https://localhost:11111/api",
		Timeout: 10 * time.Second,
		TLS: &TLSClientConfig{
			Enabled: true,
		},
	}
}

// InsecureConfig returns insecure client configuration (skip TLS verification)
func InsecureConfig() Config {
	return Config{
		BaseURL:  "https://localhost:11111/api",
		Timeout:  10 * time.Second,
		Insecure: true,
	}
}

// New creates a new recbridge API client with TLS support
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11111/api"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	// Setup HTTP transport with TLS configuration
	transport := &http.Transport{}

	// Configure TLS if needed
	if config.TLS != nil && config.TLS.Enabled || config.Insecure {
		tlsConfig, err := setupClientTLS(config)
		if err != nil {
			config.Logger.Error("TLS setup failed", "error", err)
		} else {
			transport.TLSClientConfig = tlsConfig
		}
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		token:   config.Token,
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}
}

// SetToken replaces the bearer token used for authenticated endpoints.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// IsReachable checks if the daemon is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/data", nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	isReachable := resp.StatusCode != http.StatusNotFound
	c.logger.Debug("Daemon reachability check", "reachable", isReachable, "status", resp.StatusCode)
	return isReachable
}

// Login exchanges credentials for a bearer token and stores it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenInfo, error) {
	body, err := json.Marshal(LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var resp LoginResponse
	if err := c.doJSON(ctx, "POST", c.baseURL+"/auth/login", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == nil {
		return nil, fmt.Errorf("login response missing token")
	}
	c.SetToken(resp.Token.Value)
	c.logger.Debug("Login completed", "user", username, "expires_at", resp.Token.ExpiresAt)
	return resp.Token, nil
}

// ListRooms returns the merged room listing, optionally restricted to one vendor.
func (c *Client) ListRooms(ctx context.Context, vendor string) ([]json.RawMessage, error) {
	u := c.baseURL + "/data"
	if vendor != "" {
		u += "/" + url.PathEscape(vendor)
	}
	var resp DataResponse
	if err := c.doJSON(ctx, "GET", u, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetRoom looks up roomID across all instances; vendor narrows the search.
func (c *Client) GetRoom(ctx context.Context, roomID int64, vendor string) ([]json.RawMessage, error) {
	u := fmt.Sprintf("%s/data/%d", c.baseURL, roomID)
	if vendor != "" {
		u = fmt.Sprintf("%s/data/%s/%d", c.baseURL, url.PathEscape(vendor), roomID)
	}
	var resp DataResponse
	if err := c.doJSON(ctx, "GET", u, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateRoom adds a recording task for roomID on matching instances.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest, f RoomFilter) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.doJSON(ctx, "POST", c.baseURL+"/rooms"+f.query(), body, nil)
}

// DeleteRoom removes the recording task for roomID from matching instances.
func (c *Client) DeleteRoom(ctx context.Context, roomID int64, f RoomFilter) error {
	u := fmt.Sprintf("%s/rooms/%d%s", c.baseURL, roomID, f.query())
	return c.doJSON(ctx, "DELETE", u, nil, nil)
}

// RoomAction triggers one of the per-room actions: start, stop, split, refresh.
func (c *Client) RoomAction(ctx context.Context, roomID int64, action string, f RoomFilter) error {
	u := fmt.Sprintf("%s/rooms/%d/%s%s", c.baseURL, roomID, url.PathEscape(action), f.query())
	return c.doJSON(ctx, "POST", u, nil, nil)
}

// RoomStats fetches per-room statistics from matching instances.
func (c *Client) RoomStats(ctx context.Context, roomID int64, f RoomFilter) ([]json.RawMessage, error) {
	u := fmt.Sprintf("%s/rooms/%d/stats%s", c.baseURL, roomID, f.query())
	var resp DataResponse
	if err := c.doJSON(ctx, "GET", u, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListInstances returns the registered backend instances.
func (c *Client) ListInstances(ctx context.Context, vendor string) ([]InstanceInfo, error) {
	u := c.baseURL + "/instances"
	if vendor != "" {
		u += "?vendor=" + url.QueryEscape(vendor)
	}
	var resp struct {
		Data []InstanceInfo `json:"data"`
	}
	if err := c.doJSON(ctx, "GET", u, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// InstanceStatuses probes each registered instance for reachability.
func (c *Client) InstanceStatuses(ctx context.Context, f RoomFilter) ([]InstanceStatusInfo, error) {
	var resp struct {
		Data []InstanceStatusInfo `json:"data"`
	}
	if err := c.doJSON(ctx, "GET", c.baseURL+"/instances/status"+f.query(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// AddInstance registers a new backend instance.
func (c *Client) AddInstance(ctx context.Context, req AddInstanceRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.doJSON(ctx, "POST", c.baseURL+"/instances", body, nil)
}

// RemoveInstance unregisters a backend instance by vendor and name.
func (c *Client) RemoveInstance(ctx context.Context, vendor, name string) error {
	u := fmt.Sprintf("%s/instances/%s/%s", c.baseURL, url.PathEscape(vendor), url.PathEscape(name))
	return c.doJSON(ctx, "DELETE", u, nil, nil)
}

// BatchCreateRooms creates many rooms in one call; per-room outcomes are
// reported independently.
func (c *Client) BatchCreateRooms(ctx context.Context, req BatchRoomsRequest, f RoomFilter) (*BatchResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var res BatchResult
	if err := c.doJSON(ctx, "POST", c.baseURL+"/batch/rooms/create"+f.query(), body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BatchDeleteRooms deletes many rooms in one call.
func (c *Client) BatchDeleteRooms(ctx context.Context, req BatchRoomsRequest, f RoomFilter) (*BatchResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var res BatchResult
	if err := c.doJSON(ctx, "POST", c.baseURL+"/batch/rooms/delete"+f.query(), body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// setupClientTLS configures TLS settings for HTTP client
func setupClientTLS(config Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	// Handle insecure mode (skip verification)
	if config.Insecure {
		tlsConfig.InsecureSkipVerify = true
		return tlsConfig, nil
	}

	// Configure TLS settings
	if config.TLS != nil {
		// Skip verification if requested
		if config.TLS.SkipVerify {
			tlsConfig.InsecureSkipVerify = true
		}

		// Set server name for verification
		if config.TLS.ServerName != "" {
			tlsConfig.ServerName = config.TLS.ServerName
		}

		// Load CA certificate if provided
		if config.TLS.CACert != "" {
			if err := loadCACert(tlsConfig, config.TLS.CACert); err != nil {
				return nil, fmt.Errorf("failed to load CA certificate: %w", err)
			}
		}

		// Load client certificate if provided
		if config.TLS.ClientCert != "" && config.TLS.ClientKey != "" {
			cert, err := tls.LoadX509KeyPair(config.TLS.ClientCert, config.TLS.ClientKey)
			if err != nil {
				return nil, fmt.Errorf("failed to load client certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
	}

	return tlsConfig, nil
}

// loadCACert loads CA certificate from file and adds it to TLS config
func loadCACert(tlsConfig *tls.Config, caCertPath string) error {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return fmt.Errorf("failed to read CA certificate file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return fmt.Errorf("failed to parse CA certificate")
	}

	tlsConfig.RootCAs = caCertPool
	return nil
}

// doJSON performs an HTTP request and optionally decodes the response body
// into out.
func (c *Client) doJSON(ctx context.Context, method, u string, body []byte, out any) error {
	var bodyReader *bytes.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	var req *http.Request
	var err error
	if bodyReader != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, bodyReader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", u)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Error("Failed to decode error response", "status", resp.StatusCode)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", errorResp.Error)
}
