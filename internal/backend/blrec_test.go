package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestBLRECListRoomsPageClampsSize(t *testing.T) {
	tests := []struct {
		name string
		size int
		want string
	}{
		{"below minimum", 0, "10"},
		{"just below minimum", 5, "10"},
		{"in range", 42, "42"},
		{"above maximum", 150, "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSize string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSize = r.URL.Query().Get("size")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`[]`))
			}))
			defer srv.Close()

			a := NewBLREC(Instance{Name: "b1", Vendor: VendorBLREC, BaseURL: srv.URL, Manage: true})
			if _, err := a.ListRoomsPage(context.Background(), 1, tt.size, "all"); err != nil {
				t.Fatalf("ListRoomsPage: %v", err)
			}
			if gotSize != tt.want {
				t.Fatalf("size=%d: expected query size %s, got %s", tt.size, tt.want, gotSize)
			}
		})
	}
}

func TestBLRECAPIKeyHeader(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := NewBLREC(Instance{Name: "b1", Vendor: VendorBLREC, BaseURL: srv.URL, Manage: true, APIKey: "bili2233"})
	if _, err := a.ListRooms(context.Background()); err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if gotKey != "bili2233" {
		t.Fatalf("unexpected x-api-key %q", gotKey)
	}
}

func TestBLRECNestedRoomID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tasks/23058/data" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"room_info": {"room_id": 23058, "live_status": 1}}`))
	}))
	defer srv.Close()

	a := NewBLREC(Instance{Name: "b1", Vendor: VendorBLREC, BaseURL: srv.URL, Manage: true})
	room, err := a.GetRoom(context.Background(), 23058)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	id, ok := room.ID()
	if !ok || id != 23058 {
		t.Fatalf("expected nested room ID 23058, got %d (ok=%v)", id, ok)
	}
}

func TestBLRECSplitRefreshUnsupported(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	a := NewBLREC(Instance{Name: "b1", Vendor: VendorBLREC, BaseURL: srv.URL, Manage: true})
	if _, err := a.Split(context.Background(), 1); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Split: expected ErrUnsupported, got %v", err)
	}
	if _, err := a.Refresh(context.Background(), 1); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Refresh: expected ErrUnsupported, got %v", err)
	}
	if n := calls.Load(); n != 0 {
		t.Fatalf("expected zero HTTP calls, saw %d", n)
	}
}

func TestBLRECManageGate(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	a := NewBLREC(Instance{Name: "viewer", Vendor: VendorBLREC, BaseURL: srv.URL, Manage: false})
	if _, err := a.CreateRoom(context.Background(), 1, true); !errors.Is(err, ErrManagementDisabled) {
		t.Fatalf("CreateRoom: expected ErrManagementDisabled, got %v", err)
	}
	if _, err := a.DeleteRoom(context.Background(), 1); !errors.Is(err, ErrManagementDisabled) {
		t.Fatalf("DeleteRoom: expected ErrManagementDisabled, got %v", err)
	}
	if n := calls.Load(); n != 0 {
		t.Fatalf("expected zero HTTP calls, saw %d", n)
	}
}

func TestBLRECUpdateConfigUsesPut(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	a := NewBLREC(Instance{Name: "b1", Vendor: VendorBLREC, BaseURL: srv.URL, Manage: true})
	if _, err := a.UpdateConfig(context.Background(), 1, map[string]any{"quality": "best"}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Fatalf("expected PUT, got %s", gotMethod)
	}
}

func TestBLRECProbeUsesMinimumPage(t *testing.T) {
	var gotSize, gotSelect string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSize = r.URL.Query().Get("size")
		gotSelect = r.URL.Query().Get("select")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := NewBLREC(Instance{Name: "b1", Vendor: VendorBLREC, BaseURL: srv.URL, Manage: true})
	if err := a.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if gotSize != "10" || gotSelect != "all" {
		t.Fatalf("expected size=10 select=all, got size=%s select=%s", gotSize, gotSelect)
	}
}
