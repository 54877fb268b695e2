package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/loykin/recbridge/internal/aggregate"
	"github.com/loykin/recbridge/internal/auth"
	"github.com/loykin/recbridge/internal/backend"
	"github.com/loykin/recbridge/internal/config"
	"github.com/loykin/recbridge/internal/registry"
)

func init() { gin.SetMode(gin.TestMode) }

// stubRecheme emulates one Recheme server with rooms 101 and 202.
func stubRecheme(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/room", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"roomId":101,"recording":true},{"roomId":202,"recording":false}]`))
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			_, _ = w.Write(body)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/room/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		rest := strings.TrimPrefix(r.URL.Path, "/api/room/")
		id := strings.SplitN(rest, "/", 2)[0]
		if id != "101" && id != "202" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"room not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"roomId":` + id + `,"ok":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// stubBLREC emulates one BLREC server with task 303.
func stubBLREC(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tasks/data", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"room_info":{"room_id":303,"live_status":1}}]`))
	})
	mux.HandleFunc("/api/v1/tasks/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/")
		id := strings.SplitN(rest, "/", 2)[0]
		if r.Method == http.MethodPost && rest == id {
			// Task creation accepts any room ID.
			_, _ = w.Write([]byte(`{"room_info":{"room_id":` + id + `}}`))
			return
		}
		if id != "303" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"task not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"room_info":{"room_id":303},"code":0}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newHandler(t *testing.T, insts []backend.Instance, authSvc *auth.Service) http.Handler {
	t.Helper()
	if authSvc == nil {
		authSvc = auth.New(config.AuthConfig{})
	}
	reg := registry.New(insts, nil)
	svc := aggregate.NewService(reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewRouter(svc, authSvc, "").Handler()
}

// newRig backs the router with one live stub per vendor.
func newRig(t *testing.T) http.Handler {
	t.Helper()
	rec := stubRecheme(t)
	bl := stubBLREC(t)
	return newHandler(t, []backend.Instance{
		{Name: "rec-a", Vendor: backend.VendorRecheme, BaseURL: rec.URL, Manage: true},
		{Name: "blrec-a", Vendor: backend.VendorBLREC, BaseURL: bl.URL, Manage: true},
	}, nil)
}

func doReq(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return resp.Data
}

func TestListData(t *testing.T) {
	h := newRig(t)

	w := doReq(h, http.MethodGet, "/api/data", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	rooms := decodeData(t, w)
	if len(rooms) != 3 {
		t.Fatalf("got %d rooms, want 3", len(rooms))
	}
	for _, room := range rooms {
		src, ok := room["recServer"].(map[string]any)
		if !ok {
			t.Fatalf("room missing recServer stamp: %v", room)
		}
		if src["recName"] == "" || src["recType"] == "" {
			t.Fatalf("incomplete recServer stamp: %v", src)
		}
	}
}

func TestListDataByVendor(t *testing.T) {
	h := newRig(t)

	w := doReq(h, http.MethodGet, "/api/data/recheme", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if rooms := decodeData(t, w); len(rooms) != 2 {
		t.Fatalf("recheme rooms = %d, want 2", len(rooms))
	}

	w = doReq(h, http.MethodGet, "/api/data/blrec", "")
	if rooms := decodeData(t, w); len(rooms) != 1 {
		t.Fatalf("blrec rooms = %d, want 1", len(rooms))
	}

	w = doReq(h, http.MethodGet, "/api/data/bogus", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bogus vendor: status = %d, want 400", w.Code)
	}
}

func TestDataNumericTarget(t *testing.T) {
	h := newRig(t)

	w := doReq(h, http.MethodGet, "/api/data/303", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	rooms := decodeData(t, w)
	if len(rooms) != 1 {
		t.Fatalf("got %d rooms, want 1", len(rooms))
	}
	src := rooms[0]["recServer"].(map[string]any)
	if src["recType"] != "blrec" {
		t.Fatalf("recType = %v, want blrec", src["recType"])
	}

	w = doReq(h, http.MethodGet, "/api/data/999", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown room: status = %d, want 404", w.Code)
	}
}

func TestDataVendorRoom(t *testing.T) {
	h := newRig(t)

	w := doReq(h, http.MethodGet, "/api/data/recheme/101", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if rooms := decodeData(t, w); len(rooms) != 1 {
		t.Fatalf("got %d rooms, want 1", len(rooms))
	}

	// A room held only by the other vendor is not found under this one.
	w = doReq(h, http.MethodGet, "/api/data/recheme/303", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("cross-vendor: status = %d, want 404", w.Code)
	}

	w = doReq(h, http.MethodGet, "/api/data/recheme/0", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("zero room ID: status = %d, want 400", w.Code)
	}
}

func TestCreateRoom(t *testing.T) {
	h := newRig(t)

	w := doReq(h, http.MethodPost, "/api/rooms", `{"room_id":404}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if rooms := decodeData(t, w); len(rooms) != 2 {
		t.Fatalf("created on %d instances, want 2", len(rooms))
	}

	// room_id is required.
	w = doReq(h, http.MethodPost, "/api/rooms", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing room_id: status = %d, want 400", w.Code)
	}

	w = doReq(h, http.MethodPost, "/api/rooms", `{bad json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad JSON: status = %d, want 400", w.Code)
	}
}

func TestRoomActions(t *testing.T) {
	h := newRig(t)

	for _, action := range []string{"start", "stop"} {
		w := doReq(h, http.MethodPost, "/api/rooms/303/"+action+"?vendor=blrec", "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body %s", action, w.Code, w.Body.String())
		}
	}

	// Split is not supported by BLREC; with the fan-out pinned to that
	// vendor every attempt fails.
	w := doReq(h, http.MethodPost, "/api/rooms/303/split?vendor=blrec", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("blrec split: status = %d, want 502", w.Code)
	}

	// An instance filter matching nothing is an all-failed fan-out too.
	w = doReq(h, http.MethodPost, "/api/rooms/101/start?instance=no-such", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("empty match: status = %d, want 502", w.Code)
	}

	w = doReq(h, http.MethodPost, "/api/rooms/abc/start", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric room: status = %d, want 400", w.Code)
	}
}

func TestRoomConfigAndStats(t *testing.T) {
	h := newRig(t)

	w := doReq(h, http.MethodGet, "/api/rooms/101/config?vendor=recheme", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get config: status = %d", w.Code)
	}
	w = doReq(h, http.MethodPost, "/api/rooms/101/config?vendor=recheme", `{"danmaku":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update config: status = %d, body %s", w.Code, w.Body.String())
	}
	w = doReq(h, http.MethodGet, "/api/rooms/303/stats?vendor=blrec", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats: status = %d", w.Code)
	}
	w = doReq(h, http.MethodGet, "/api/rooms/303/status?vendor=blrec", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: status = %d", w.Code)
	}
}

func TestVendorOutageDoesNotBreakReads(t *testing.T) {
	rec := stubRecheme(t)
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	h := newHandler(t, []backend.Instance{
		{Name: "rec-a", Vendor: backend.VendorRecheme, BaseURL: rec.URL, Manage: true},
		{Name: "blrec-down", Vendor: backend.VendorBLREC, BaseURL: deadURL, Manage: true},
	}, nil)

	// The unreachable vendor contributes zero rooms, not an error.
	w := doReq(h, http.MethodGet, "/api/data", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if rooms := decodeData(t, w); len(rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(rooms))
	}

	// One successful instance carries a mutation.
	w = doReq(h, http.MethodPost, "/api/rooms/101/stop", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stop: status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestBatchRooms(t *testing.T) {
	h := newRig(t)

	w := doReq(h, http.MethodPost, "/api/batch/rooms/create", `{"room_ids":[404,505]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res aggregate.BatchResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.Total != 2 || res.Succeeded != 2 {
		t.Fatalf("unexpected batch result: %+v", res)
	}

	w = doReq(h, http.MethodPost, "/api/batch/rooms/delete", `{"room_ids":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty room_ids: status = %d, want 400", w.Code)
	}
}

func TestInstanceEndpoints(t *testing.T) {
	rec := stubRecheme(t)
	bl := stubBLREC(t)
	h := newHandler(t, []backend.Instance{
		{Name: "rec-a", Vendor: backend.VendorRecheme, BaseURL: rec.URL, Manage: true, Username: "u", Password: "p"},
	}, nil)

	// Listing exposes identity only, never credentials.
	w := doReq(h, http.MethodGet, "/api/instances", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: status = %d", w.Code)
	}
	if body := w.Body.String(); strings.Contains(body, `"u"`) || strings.Contains(body, `"p"`) {
		t.Fatalf("credentials leaked: %s", body)
	}
	if views := decodeData(t, w); len(views) != 1 || views[0]["name"] != "rec-a" {
		t.Fatalf("unexpected views: %s", w.Body.String())
	}

	// Register the BLREC stub at runtime.
	w = doReq(h, http.MethodPost, "/api/instances", `{"name":"blrec-a","vendor":"blrec","url":"`+bl.URL+`","key":"k"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("add: status = %d, body %s", w.Code, w.Body.String())
	}

	// The new instance participates in the very next listing.
	w = doReq(h, http.MethodGet, "/api/data/303", "")
	if w.Code != http.StatusOK {
		t.Fatalf("lookup after add: status = %d, body %s", w.Code, w.Body.String())
	}

	// Duplicate identity conflicts.
	w = doReq(h, http.MethodPost, "/api/instances", `{"name":"blrec-a","vendor":"blrec","url":"`+bl.URL+`"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate add: status = %d, want 409", w.Code)
	}

	// Unknown vendor in the payload.
	w = doReq(h, http.MethodPost, "/api/instances", `{"name":"x","vendor":"nope","url":"http://localhost"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad vendor: status = %d, want 400", w.Code)
	}

	w = doReq(h, http.MethodGet, "/api/instances/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: status = %d", w.Code)
	}
	var statusResp struct {
		Data []aggregate.InstanceStatus `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &statusResp); err != nil {
		t.Fatalf("decode statuses: %v", err)
	}
	if len(statusResp.Data) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statusResp.Data))
	}
	for _, st := range statusResp.Data {
		if st.Status != "online" {
			t.Fatalf("instance %s status = %q, want online", st.Instance.Name, st.Status)
		}
	}

	w = doReq(h, http.MethodDelete, "/api/instances/recheme/rec-a", "")
	if w.Code != http.StatusOK {
		t.Fatalf("remove: status = %d", w.Code)
	}
	w = doReq(h, http.MethodDelete, "/api/instances/recheme/rec-a", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("remove twice: status = %d, want 404", w.Code)
	}
	w = doReq(h, http.MethodDelete, "/api/instances/all/rec-a", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("vendor all: status = %d, want 400", w.Code)
	}
}

func TestBatchInstances(t *testing.T) {
	bl := stubBLREC(t)
	h := newHandler(t, nil, nil)

	body := `{"instances":[
		{"name":"blrec-a","vendor":"blrec","url":"` + bl.URL + `"},
		{"name":"broken","vendor":"nope","url":"http://localhost"}
	]}`
	w := doReq(h, http.MethodPost, "/api/batch/instances/add", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res aggregate.BatchResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.Succeeded != 1 || res.Failed != 1 {
		t.Fatalf("unexpected batch result: %+v", res)
	}

	w = doReq(h, http.MethodPost, "/api/batch/instances/remove",
		`{"instances":[{"vendor":"blrec","name":"blrec-a"},{"vendor":"blrec","name":"ghost"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("remove: status = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Succeeded != 1 || res.Failed != 1 {
		t.Fatalf("unexpected remove result: %+v", res)
	}
}

func TestAuthFlow(t *testing.T) {
	authSvc := auth.New(config.AuthConfig{
		Enable:        true,
		Secret:        "router-test",
		ExpireMinutes: 5,
		Users:         []config.UserConfig{{Username: "admin", Password: "secret"}},
	})
	rec := stubRecheme(t)
	h := newHandler(t, []backend.Instance{
		{Name: "rec-a", Vendor: backend.VendorRecheme, BaseURL: rec.URL, Manage: true},
	}, authSvc)

	// Data endpoints demand a token once auth is on.
	w := doReq(h, http.MethodGet, "/api/data", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}

	w = doReq(h, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status = %d, want 401", w.Code)
	}

	w = doReq(h, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body %s", w.Code, w.Body.String())
	}
	var lr struct {
		Token *auth.Token `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &lr); err != nil || lr.Token == nil {
		t.Fatalf("decode login response %q: %v", w.Body.String(), err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.Header.Set("Authorization", "Bearer "+lr.Token.Value)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("authed data: status = %d, body %s", rec2.Code, rec2.Body.String())
	}
}

func TestLoginWhenAuthDisabled(t *testing.T) {
	h := newHandler(t, nil, nil)
	w := doReq(h, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"secret"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestBasePathMounting(t *testing.T) {
	rec := stubRecheme(t)
	reg := registry.New([]backend.Instance{
		{Name: "rec-a", Vendor: backend.VendorRecheme, BaseURL: rec.URL, Manage: true},
	}, nil)
	svc := aggregate.NewService(reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := NewRouter(svc, auth.New(config.AuthConfig{}), "bridge/").Handler()

	w := doReq(h, http.MethodGet, "/bridge/api/data", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	w = doReq(h, http.MethodGet, "/api/data", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unprefixed path: status = %d, want 404", w.Code)
	}
}
