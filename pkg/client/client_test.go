package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// apiStub records the requests the client issues and serves canned JSON.
type apiStub struct {
	mu   sync.Mutex
	reqs []*http.Request

	status int
	body   string
}

func (s *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.reqs = append(s.reqs, r.Clone(r.Context()))
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if s.status != 0 {
		w.WriteHeader(s.status)
	}
	_, _ = w.Write([]byte(s.body))
}

func (s *apiStub) last(t *testing.T) *http.Request {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reqs) == 0 {
		t.Fatal("no request recorded")
	}
	return s.reqs[len(s.reqs)-1]
}

func newStubClient(t *testing.T, stub *apiStub) *Client {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/api"})
}

func TestListRoomsPaths(t *testing.T) {
	stub := &apiStub{body: `{"data":[{"roomId":1},{"roomId":2}]}`}
	c := newStubClient(t, stub)

	rooms, err := c.ListRooms(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(rooms))
	}
	if got := stub.last(t).URL.Path; got != "/api/data" {
		t.Fatalf("path = %q, want /api/data", got)
	}

	if _, err := c.ListRooms(context.Background(), "blrec"); err != nil {
		t.Fatalf("vendor list: %v", err)
	}
	if got := stub.last(t).URL.Path; got != "/api/data/blrec" {
		t.Fatalf("path = %q, want /api/data/blrec", got)
	}
}

func TestGetRoomPaths(t *testing.T) {
	stub := &apiStub{body: `{"data":[{"roomId":123}]}`}
	c := newStubClient(t, stub)

	if _, err := c.GetRoom(context.Background(), 123, ""); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := stub.last(t).URL.Path; got != "/api/data/123" {
		t.Fatalf("path = %q, want /api/data/123", got)
	}

	if _, err := c.GetRoom(context.Background(), 123, "recheme"); err != nil {
		t.Fatalf("vendor get: %v", err)
	}
	if got := stub.last(t).URL.Path; got != "/api/data/recheme/123" {
		t.Fatalf("path = %q, want /api/data/recheme/123", got)
	}
}

func TestRoomActionCarriesFilter(t *testing.T) {
	stub := &apiStub{body: `{"data":[]}`}
	c := newStubClient(t, stub)

	f := RoomFilter{Vendor: "blrec", Instance: "blrec-a"}
	if err := c.RoomAction(context.Background(), 42, "start", f); err != nil {
		t.Fatalf("action: %v", err)
	}
	req := stub.last(t)
	if req.Method != http.MethodPost {
		t.Fatalf("method = %s, want POST", req.Method)
	}
	if req.URL.Path != "/api/rooms/42/start" {
		t.Fatalf("path = %q", req.URL.Path)
	}
	q := req.URL.Query()
	if q.Get("vendor") != "blrec" || q.Get("instance") != "blrec-a" {
		t.Fatalf("query = %q", req.URL.RawQuery)
	}
}

func TestLoginStoresToken(t *testing.T) {
	stub := &apiStub{body: `{"token":{"type":"Bearer","value":"tok-123","expires_at":"2030-01-01T00:00:00Z"}}`}
	c := newStubClient(t, stub)

	tok, err := c.Login(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok.Value != "tok-123" {
		t.Fatalf("token = %q", tok.Value)
	}

	stub.body = `{"data":[]}`
	if _, err := c.ListRooms(context.Background(), ""); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := stub.last(t).Header.Get("Authorization"); got != "Bearer tok-123" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestSetTokenAttachesHeader(t *testing.T) {
	stub := &apiStub{body: `{"data":[]}`}
	c := newStubClient(t, stub)
	c.SetToken("manual-token")

	if _, err := c.ListRooms(context.Background(), ""); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := stub.last(t).Header.Get("Authorization"); got != "Bearer manual-token" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestErrorResponseSurfaced(t *testing.T) {
	stub := &apiStub{status: http.StatusNotFound, body: `{"error":"room 55 not found"}`}
	c := newStubClient(t, stub)

	_, err := c.GetRoom(context.Background(), 55, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "room 55 not found") {
		t.Fatalf("error = %v", err)
	}
}

func TestIsReachable(t *testing.T) {
	stub := &apiStub{body: `{"data":[]}`}
	c := newStubClient(t, stub)
	if !c.IsReachable(context.Background()) {
		t.Fatal("expected reachable")
	}

	nf := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(nf.Close)
	notFound := New(Config{BaseURL: nf.URL + "/api"})
	if notFound.IsReachable(context.Background()) {
		t.Fatal("404 endpoint should be unreachable")
	}

	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()
	dead := New(Config{BaseURL: deadURL + "/api"})
	if dead.IsReachable(context.Background()) {
		t.Fatal("closed server should be unreachable")
	}
}

func TestBatchCreateRooms(t *testing.T) {
	stub := &apiStub{body: `{"success":true,"total":2,"succeeded":1,"failed":1,"errors":[{"identifier":"99","error":"rejected"}]}`}
	c := newStubClient(t, stub)

	res, err := c.BatchCreateRooms(context.Background(), BatchRoomsRequest{RoomIDs: []int64{1, 99}}, RoomFilter{})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if !res.Success || res.Succeeded != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0].Identifier != "99" {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}

	req := stub.last(t)
	if req.URL.Path != "/api/batch/rooms/create" {
		t.Fatalf("path = %q", req.URL.Path)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
}
