package backend

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
)

// Recheme talks to one 录播姬 (Recheme) server. Authentication is optional
// HTTP Basic; paths live under /api.
type Recheme struct {
	inst Instance
	rq   requester
}

func NewRecheme(inst Instance) *Recheme {
	headers := http.Header{}
	if inst.Username != "" && inst.Password != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(inst.Username + ":" + inst.Password))
		headers.Set("Authorization", "Basic "+cred)
	}
	return &Recheme{inst: inst, rq: newRequester(inst.BaseURL, headers)}
}

func (a *Recheme) Instance() Instance { return a.inst }

func (a *Recheme) room(payload map[string]any) *Room {
	return &Room{Vendor: VendorRecheme, Source: a.inst.Source(), Payload: payload}
}

// guard rejects mutating calls on manage=false instances before any network
// I/O happens.
func (a *Recheme) guard() error {
	if !a.inst.Manage {
		return fmt.Errorf("%w: %s", ErrManagementDisabled, a.inst.Name)
	}
	return nil
}

func (a *Recheme) Probe(ctx context.Context) error {
	_, err := a.rq.doList(ctx, http.MethodGet, "/api/room", nil)
	return err
}

func (a *Recheme) ListRooms(ctx context.Context) ([]Room, error) {
	items, err := a.rq.doList(ctx, http.MethodGet, "/api/room", nil)
	if err != nil {
		return nil, err
	}
	rooms := make([]Room, 0, len(items))
	for _, item := range items {
		rooms = append(rooms, *a.room(item))
	}
	return rooms, nil
}

func (a *Recheme) GetRoom(ctx context.Context, roomID int64) (*Room, error) {
	data, err := a.rq.doObject(ctx, http.MethodGet, fmt.Sprintf("/api/room/%d", roomID), nil, nil)
	if err != nil {
		return nil, err
	}
	return a.room(data), nil
}

func (a *Recheme) GetStats(ctx context.Context, roomID int64) (map[string]any, error) {
	return a.rq.doObject(ctx, http.MethodGet, fmt.Sprintf("/api/room/%d/stats", roomID), nil, nil)
}

// GetStatus maps to the Recheme IO statistics endpoint, the closest this
// vendor offers to a per-room runtime status.
func (a *Recheme) GetStatus(ctx context.Context, roomID int64) (map[string]any, error) {
	return a.rq.doObject(ctx, http.MethodGet, fmt.Sprintf("/api/room/%d/iostats", roomID), nil, nil)
}

func (a *Recheme) GetConfig(ctx context.Context, roomID int64) (map[string]any, error) {
	return a.rq.doObject(ctx, http.MethodGet, fmt.Sprintf("/api/room/%d/config", roomID), nil, nil)
}

func (a *Recheme) UpdateConfig(ctx context.Context, roomID int64, cfg map[string]any) (map[string]any, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	return a.rq.doObject(ctx, http.MethodPost, fmt.Sprintf("/api/room/%d/config", roomID), nil, cfg)
}

func (a *Recheme) Start(ctx context.Context, roomID int64) (map[string]any, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	return a.rq.doObject(ctx, http.MethodPost, fmt.Sprintf("/api/room/%d/start", roomID), nil, nil)
}

func (a *Recheme) Stop(ctx context.Context, roomID int64) (map[string]any, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	return a.rq.doObject(ctx, http.MethodPost, fmt.Sprintf("/api/room/%d/stop", roomID), nil, nil)
}

func (a *Recheme) CreateRoom(ctx context.Context, roomID int64, autoRecord bool) (*Room, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	body := map[string]any{"roomId": roomID, "autoRecord": autoRecord}
	data, err := a.rq.doObject(ctx, http.MethodPost, "/api/room", nil, body)
	if err != nil {
		return nil, err
	}
	return a.room(data), nil
}

func (a *Recheme) DeleteRoom(ctx context.Context, roomID int64) (map[string]any, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	return a.rq.doObject(ctx, http.MethodDelete, fmt.Sprintf("/api/room/%d", roomID), nil, nil)
}

func (a *Recheme) Split(ctx context.Context, roomID int64) (map[string]any, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	return a.rq.doObject(ctx, http.MethodPost, fmt.Sprintf("/api/room/%d/split", roomID), nil, nil)
}

func (a *Recheme) Refresh(ctx context.Context, roomID int64) (map[string]any, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	return a.rq.doObject(ctx, http.MethodPost, fmt.Sprintf("/api/room/%d/refresh", roomID), nil, nil)
}
