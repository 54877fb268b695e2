package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// blrecMinSize and blrecMaxSize bound the listing page size accepted by the
// BLREC API; out-of-range values are clamped before the call goes out.
const (
	blrecMinSize = 10
	blrecMaxSize = 100
)

// BLREC talks to one BLREC server. Authentication is an x-api-key header;
// paths live under /api/v1.
type BLREC struct {
	inst Instance
	rq   requester
}

func NewBLREC(inst Instance) *BLREC {
	headers := http.Header{}
	if inst.APIKey != "" {
		headers.Set("x-api-key", inst.APIKey)
	}
	return &BLREC{inst: inst, rq: newRequester(inst.BaseURL, headers)}
}

func (a *BLREC) Instance() Instance { return a.inst }

func (a *BLREC) room(payload map[string]any) *Room {
	return &Room{Vendor: VendorBLREC, Source: a.inst.Source(), Payload: payload}
}

func (a *BLREC) guard() error {
	if !a.inst.Manage {
		return fmt.Errorf("%w: %s", ErrManagementDisabled, a.inst.Name)
	}
	return nil
}

func clampSize(size int) int {
	if size < blrecMinSize {
		return blrecMinSize
	}
	if size > blrecMaxSize {
		return blrecMaxSize
	}
	return size
}

// Probe requests the smallest listing page the API accepts.
func (a *BLREC) Probe(ctx context.Context) error {
	_, err := a.ListRoomsPage(ctx, 1, blrecMinSize, "all")
	return err
}

func (a *BLREC) ListRooms(ctx context.Context) ([]Room, error) {
	return a.ListRoomsPage(ctx, 1, blrecMaxSize, "all")
}

// ListRoomsPage lists tasks with explicit pagination. size is clamped into
// [10, 100] before the request is issued.
func (a *BLREC) ListRoomsPage(ctx context.Context, page, size int, selectFilter string) ([]Room, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(clampSize(size)))
	params.Set("select", selectFilter)

	items, err := a.rq.doList(ctx, http.MethodGet, "/api/v1/tasks/data", params)
	if err != nil {
		return nil, err
	}
	rooms := make([]Room, 0, len(items))
	for _, item := range items {
		rooms = append(rooms, *a.room(item))
	}
	return rooms, nil
}

func (a *BLREC) GetRoom(ctx context.Context, roomID int64) (*Room, error) {
	data, err := a.rq.doObject(ctx, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d/data", roomID), nil, nil)
	if err != nil {
		return nil, err
	}
	return a.room(data), nil
}

func (a *BLREC) GetStats(ctx context.Context, roomID int64) (map[string]any, error) {
	return a.rq.doObject(ctx, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d/stats", roomID), nil, nil)
}

func (a *BLREC) GetStatus(ctx context.Context, roomID int64) (map[string]any, error) {
	return a.rq.doObject(ctx, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d/status", roomID), nil, nil)
}

func (a *BLREC) GetConfig(ctx context.Context, roomID int64) (map[string]any, error) {
	return a.rq.doObject(ctx, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d/config", roomID), nil, nil)
}

func (a *BLREC) UpdateConfig(ctx context.Context, roomID int64, cfg map[string]any) (map[string]any, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	return a.rq.doObject(ctx, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/config", roomID), nil, cfg)
}

func (a *BLREC) Start(ctx context.Context, roomID int64) (map[string]any, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	return a.rq.doObject(ctx, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/start", roomID), nil, nil)
}

func (a *BLREC) Stop(ctx context.Context, roomID int64) (map[string]any, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	return a.rq.doObject(ctx, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d/stop", roomID), nil, nil)
}

func (a *BLREC) CreateRoom(ctx context.Context, roomID int64, _ bool) (*Room, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	data, err := a.rq.doObject(ctx, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%d", roomID), nil, nil)
	if err != nil {
		return nil, err
	}
	return a.room(data), nil
}

func (a *BLREC) DeleteRoom(ctx context.Context, roomID int64) (map[string]any, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	return a.rq.doObject(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/tasks/%d", roomID), nil, nil)
}

func (a *BLREC) Split(context.Context, int64) (map[string]any, error) {
	return nil, fmt.Errorf("%w: split (blrec)", ErrUnsupported)
}

func (a *BLREC) Refresh(context.Context, int64) (map[string]any, error) {
	return nil, fmt.Errorf("%w: refresh (blrec)", ErrUnsupported)
}
