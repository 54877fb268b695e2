package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Vendor identifies the backend API dialect an instance speaks.
type Vendor string

const (
	// VendorAny matches every vendor when used as a filter.
	VendorAny     Vendor = ""
	VendorRecheme Vendor = "recheme"
	VendorBLREC   Vendor = "blrec"
)

// ParseVendor converts a user-supplied vendor string into a Vendor.
// Empty string and "any" both mean no vendor filter.
func ParseVendor(s string) (Vendor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return VendorAny, nil
	case string(VendorRecheme):
		return VendorRecheme, nil
	case string(VendorBLREC):
		return VendorBLREC, nil
	default:
		return VendorAny, fmt.Errorf("unknown vendor %q", s)
	}
}

// Instance is one configured backend server endpoint.
// Username/Password apply to Recheme (HTTP Basic); APIKey applies to BLREC.
type Instance struct {
	Name    string `json:"name" mapstructure:"name"`
	Vendor  Vendor `json:"vendor" mapstructure:"vendor"`
	BaseURL string `json:"url" mapstructure:"url"`
	Manage  bool   `json:"manage" mapstructure:"manage"`

	Username string `json:"-" mapstructure:"user"`
	Password string `json:"-" mapstructure:"pass"`
	APIKey   string `json:"-" mapstructure:"key"`
}

// Source returns the instance identity stamped onto every room record.
func (i Instance) Source() SourceInfo {
	return SourceInfo{
		Name:   i.Name,
		Vendor: i.Vendor,
		Host:   strings.TrimRight(i.BaseURL, "/"),
		Manage: i.Manage,
	}
}

// SourceInfo tells downstream consumers which instance a room record came
// from. The JSON field names match the original aggregator's wire format.
type SourceInfo struct {
	Name   string `json:"recName"`
	Vendor Vendor `json:"recType"`
	Host   string `json:"recHost"`
	Manage bool   `json:"recManage"`
}

// Room is a live view of one recording task as reported by one instance.
// Payload holds the vendor response untouched; Source records where it came
// from. The same room ID may appear on several instances at once.
type Room struct {
	Vendor  Vendor
	Source  SourceInfo
	Payload map[string]any
}

// ID returns the normalized room identifier. Recheme exposes it top-level
// as "roomId"; BLREC nests it at "room_info.room_id".
func (r Room) ID() (int64, bool) {
	switch r.Vendor {
	case VendorRecheme:
		return toInt64(r.Payload["roomId"])
	case VendorBLREC:
		info, ok := r.Payload["room_info"].(map[string]any)
		if !ok {
			return 0, false
		}
		return toInt64(info["room_id"])
	}
	return 0, false
}

// MarshalJSON flattens the vendor payload and attaches the source stamp
// under "recServer", matching the representation API consumers expect.
func (r Room) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Payload)+1)
	for k, v := range r.Payload {
		out[k] = v
	}
	out["recServer"] = r.Source
	return json.Marshal(out)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// OutcomeStatus classifies one instance-scoped attempt within a fan-out.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
	OutcomeOffline OutcomeStatus = "offline"
)

// Outcome is the result of one instance-scoped attempt. Outcomes are never
// discarded: batch results carry them so a caller can see which instance
// failed and why.
type Outcome struct {
	Instance SourceInfo    `json:"instance"`
	Status   OutcomeStatus `json:"status"`
	Data     any           `json:"data,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// ErrManagementDisabled is returned for any mutating call against an
// instance configured with manage=false. No network request is made.
var ErrManagementDisabled = errors.New("management disabled for instance")

// ErrUnsupported is returned for vendor-extra operations (split, refresh)
// on vendors that do not provide them.
var ErrUnsupported = errors.New("operation not supported by vendor")

// FailureKind separates the two ways a backend call can fail. Consumers
// collapse both to "no data"; only logs and the instance status probe look
// at the kind.
type FailureKind string

const (
	// FailureTransport covers timeouts and connection errors.
	FailureTransport FailureKind = "transport"
	// FailureRejected covers non-2xx statuses and malformed bodies.
	FailureRejected FailureKind = "rejected"
)

// RequestError is the adapter-level failure. It never escapes past the
// aggregation layer; there it becomes a failed Outcome.
type RequestError struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s error for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// FailureKindOf reports the failure kind of err, or "" if err is not a
// RequestError.
func FailureKindOf(err error) FailureKind {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// Adapter is the uniform capability set both vendors implement. Every call
// issues at most one HTTP request bounded by a fixed 3-second timeout.
type Adapter interface {
	Instance() Instance

	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, roomID int64) (*Room, error)
	GetStats(ctx context.Context, roomID int64) (map[string]any, error)
	GetStatus(ctx context.Context, roomID int64) (map[string]any, error)
	GetConfig(ctx context.Context, roomID int64) (map[string]any, error)

	UpdateConfig(ctx context.Context, roomID int64, cfg map[string]any) (map[string]any, error)
	Start(ctx context.Context, roomID int64) (map[string]any, error)
	Stop(ctx context.Context, roomID int64) (map[string]any, error)
	CreateRoom(ctx context.Context, roomID int64, autoRecord bool) (*Room, error)
	DeleteRoom(ctx context.Context, roomID int64) (map[string]any, error)

	// Recheme-only; BLREC returns ErrUnsupported without network I/O.
	Split(ctx context.Context, roomID int64) (map[string]any, error)
	Refresh(ctx context.Context, roomID int64) (map[string]any, error)

	// Probe issues the cheapest room-bearing request the vendor offers,
	// used by the instance status fan-out to tell online from offline.
	Probe(ctx context.Context) error
}

// New returns the vendor-appropriate adapter for inst.
func New(inst Instance) Adapter {
	if inst.Vendor == VendorBLREC {
		return NewBLREC(inst)
	}
	return NewRecheme(inst)
}
