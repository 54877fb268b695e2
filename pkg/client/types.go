package client

import (
	"encoding/json"
	"net/url"
	"time"
)

// LoginRequest carries credentials for token exchange
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenInfo is an issued bearer token
type TokenInfo struct {
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResponse wraps the issued token
type LoginResponse struct {
	Token *TokenInfo `json:"token"`
}

// RoomFilter narrows an operation to one vendor or one named instance
type RoomFilter struct {
	Vendor   string
	Instance string
}

func (f RoomFilter) query() string {
	q := url.Values{}
	if f.Vendor != "" {
		q.Set("vendor", f.Vendor)
	}
	if f.Instance != "" {
		q.Set("instance", f.Instance)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// CreateRoomRequest represents a request to add a recording task
type CreateRoomRequest struct {
	RoomID     int64 `json:"room_id"`
	AutoRecord *bool `json:"auto_record,omitempty"`
}

// BatchRoomsRequest represents a batch create or delete request
type BatchRoomsRequest struct {
	RoomIDs    []int64 `json:"room_ids"`
	AutoRecord *bool   `json:"auto_record,omitempty"`
}

// AddInstanceRequest registers one backend instance
type AddInstanceRequest struct {
	Name   string `json:"name"`
	Vendor string `json:"vendor"`
	URL    string `json:"url"`
	Manage *bool  `json:"manage,omitempty"`
	User   string `json:"user,omitempty"`
	Pass   string `json:"pass,omitempty"`
	Key    string `json:"key,omitempty"`
}

// InstanceInfo is the read representation of a registered instance
type InstanceInfo struct {
	Name   string `json:"name"`
	Vendor string `json:"vendor"`
	URL    string `json:"url"`
	Manage bool   `json:"manage"`
}

// SourceInfo identifies the instance a payload or probe came from
type SourceInfo struct {
	Name   string `json:"recName"`
	Vendor string `json:"recType"`
	Host   string `json:"recHost"`
	Manage bool   `json:"recManage"`
}

// InstanceStatusInfo reports one instance reachability probe
type InstanceStatusInfo struct {
	Instance SourceInfo `json:"instance"`
	Status   string     `json:"status"`
	Error    string     `json:"error,omitempty"`
}

// BatchError names one failed identifier in a batch operation
type BatchError struct {
	Identifier string `json:"identifier"`
	Error      string `json:"error"`
}

// BatchResult summarizes a batch operation
type BatchResult struct {
	Success   bool              `json:"success"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Data      []json.RawMessage `json:"data,omitempty"`
	Errors    []BatchError      `json:"errors,omitempty"`
}

// DataResponse wraps listing and lookup payloads
type DataResponse struct {
	Data []json.RawMessage `json:"data"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
