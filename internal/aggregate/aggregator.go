package aggregate

import (
	"context"
	"fmt"
	"sync"

	"github.com/loykin/recbridge/internal/backend"
	"github.com/loykin/recbridge/internal/metrics"
	"github.com/loykin/recbridge/internal/registry"
)

// Operation names a logical room or instance operation for error messages,
// logs and metrics.
type Operation string

const (
	OpListRooms      Operation = "list_rooms"
	OpGetRoom        Operation = "get_room"
	OpGetStats       Operation = "get_stats"
	OpGetStatus      Operation = "get_status"
	OpGetConfig      Operation = "get_config"
	OpUpdateConfig   Operation = "update_config"
	OpStart          Operation = "start_recording"
	OpStop           Operation = "stop_recording"
	OpSplit          Operation = "split_recording"
	OpRefresh        Operation = "refresh_room"
	OpCreateRoom     Operation = "create_room"
	OpDeleteRoom     Operation = "delete_room"
	OpInstanceStatus Operation = "instance_status"
)

// Filter selects which registered instances a fan-out touches.
type Filter struct {
	Vendor   backend.Vendor
	Instance string
}

func (f Filter) String() string {
	v := "any"
	if f.Vendor != backend.VendorAny {
		v = string(f.Vendor)
	}
	n := "any"
	if f.Instance != "" {
		n = f.Instance
	}
	return fmt.Sprintf("vendor=%s instance=%s", v, n)
}

// AllAttemptsFailedError reports an at-least-one-success fan-out in which
// every attempt failed. It names the operation, the filter scope and the
// acting caller so batch reports stay actionable.
type AllAttemptsFailedError struct {
	Op       Operation
	Filter   Filter
	Caller   string
	Outcomes []backend.Outcome
}

func (e *AllAttemptsFailedError) Error() string {
	return fmt.Sprintf("operation %s failed on all %d instance(s) (%s, caller=%s)",
		e.Op, len(e.Outcomes), e.Filter, e.Caller)
}

// RoomNotFoundError reports a room-ID lookup that matched no instance,
// scoped to the vendor filter that was requested.
type RoomNotFoundError struct {
	RoomID int64
	Vendor backend.Vendor
}

func (e *RoomNotFoundError) Error() string {
	if e.Vendor == backend.VendorAny {
		return fmt.Sprintf("room %d not found on any instance", e.RoomID)
	}
	return fmt.Sprintf("room %d not found on any %s instance", e.RoomID, e.Vendor)
}

// Result is the merged outcome of one at-least-one-success fan-out: the
// union of successful payloads plus every per-instance outcome.
type Result struct {
	Data     []any             `json:"data"`
	Outcomes []backend.Outcome `json:"outcomes"`
}

// Aggregator fans logical operations out across registered instances and
// merges the per-instance outcomes. It owns no request state; every call is
// independent.
type Aggregator struct {
	reg *registry.Registry

	// NewAdapter builds the vendor adapter for an instance. Overridable in
	// tests; defaults to backend.New.
	NewAdapter func(backend.Instance) backend.Adapter
}

func NewAggregator(reg *registry.Registry) *Aggregator {
	return &Aggregator{reg: reg, NewAdapter: backend.New}
}

func (a *Aggregator) adapters(f Filter) []backend.Adapter {
	insts := a.reg.List(f.Vendor, f.Instance)
	out := make([]backend.Adapter, 0, len(insts))
	for _, inst := range insts {
		out = append(out, a.NewAdapter(inst))
	}
	return out
}

// ListRooms queries every matching instance independently and merges the
// room lists. Union-read policy: a failing or offline instance contributes
// zero rows, never an error. Cross-instance ordering is not guaranteed.
func (a *Aggregator) ListRooms(ctx context.Context, f Filter) []backend.Room {
	metrics.IncFanout(string(OpListRooms), string(f.Vendor))
	ads := a.adapters(f)

	var mu sync.Mutex
	var all []backend.Room
	var wg sync.WaitGroup
	for _, ad := range ads {
		wg.Add(1)
		go func(ad backend.Adapter) {
			defer wg.Done()
			rooms, err := ad.ListRooms(ctx)
			if err != nil {
				metrics.IncOutcome(string(OpListRooms), string(outcomeStatus(err)))
				return
			}
			metrics.IncOutcome(string(OpListRooms), string(backend.OutcomeSuccess))
			mu.Lock()
			all = append(all, rooms...)
			mu.Unlock()
		}(ad)
	}
	wg.Wait()
	return all
}

// Apply runs fn against every matching instance. At-least-one-success
// policy: the fan-out succeeds if any attempt succeeds, returning the union
// of successful payloads; if every attempt fails (or nothing matched) it
// returns an AllAttemptsFailedError naming the operation, scope and caller.
func (a *Aggregator) Apply(ctx context.Context, op Operation, f Filter, caller string, fn func(context.Context, backend.Adapter) (any, error)) (*Result, error) {
	metrics.IncFanout(string(op), string(f.Vendor))
	ads := a.adapters(f)

	outcomes := make([]backend.Outcome, len(ads))
	var wg sync.WaitGroup
	for i, ad := range ads {
		wg.Add(1)
		go func(i int, ad backend.Adapter) {
			defer wg.Done()
			oc := backend.Outcome{Instance: ad.Instance().Source()}
			data, err := fn(ctx, ad)
			if err != nil {
				oc.Status = outcomeStatus(err)
				oc.Error = err.Error()
			} else {
				oc.Status = backend.OutcomeSuccess
				oc.Data = data
			}
			metrics.IncOutcome(string(op), string(oc.Status))
			outcomes[i] = oc
		}(i, ad)
	}
	wg.Wait()

	res := &Result{Outcomes: outcomes, Data: make([]any, 0, len(outcomes))}
	for _, oc := range outcomes {
		if oc.Status == backend.OutcomeSuccess {
			res.Data = append(res.Data, oc.Data)
		}
	}
	if len(res.Data) == 0 {
		return nil, &AllAttemptsFailedError{Op: op, Filter: f, Caller: caller, Outcomes: outcomes}
	}
	return res, nil
}

// InstanceStatus classifies one instance after a probe request.
type InstanceStatus struct {
	Instance backend.SourceInfo `json:"instance"`
	Status   string             `json:"status"` // online | offline | error
	Error    string             `json:"error,omitempty"`
}

// InstanceStatuses issues one lightweight probe per matching instance, in
// parallel. A parseable response is online, a rejected one (reachable but
// unusable) is offline, a transport failure is error.
func (a *Aggregator) InstanceStatuses(ctx context.Context, f Filter) []InstanceStatus {
	metrics.IncFanout(string(OpInstanceStatus), string(f.Vendor))
	ads := a.adapters(f)

	statuses := make([]InstanceStatus, len(ads))
	var wg sync.WaitGroup
	for i, ad := range ads {
		wg.Add(1)
		go func(i int, ad backend.Adapter) {
			defer wg.Done()
			st := InstanceStatus{Instance: ad.Instance().Source()}
			if err := ad.Probe(ctx); err != nil {
				if backend.FailureKindOf(err) == backend.FailureTransport {
					st.Status = "error"
				} else {
					st.Status = "offline"
				}
				st.Error = err.Error()
			} else {
				st.Status = "online"
			}
			metrics.SetInstanceUp(string(ad.Instance().Vendor), ad.Instance().Name, st.Status == "online")
			statuses[i] = st
		}(i, ad)
	}
	wg.Wait()
	return statuses
}

// outcomeStatus maps an adapter error to an outcome classification:
// transport failures read as offline, everything else as failure.
func outcomeStatus(err error) backend.OutcomeStatus {
	if backend.FailureKindOf(err) == backend.FailureTransport {
		return backend.OutcomeOffline
	}
	return backend.OutcomeFailure
}
