package aggregate

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/loykin/recbridge/internal/backend"
	"github.com/loykin/recbridge/internal/metrics"
	"github.com/loykin/recbridge/internal/registry"
)

// Service is the context object owning the aggregation state: the instance
// registry, the fan-out engine and the room resolver cache. Handlers receive
// it explicitly; there is no package-level state.
type Service struct {
	reg    *registry.Registry
	agg    *Aggregator
	res    *Resolver
	logger *slog.Logger
}

func NewService(reg *registry.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	agg := NewAggregator(reg)
	return &Service{
		reg:    reg,
		agg:    agg,
		res:    NewResolver(agg, reg, logger),
		logger: logger,
	}
}

// Registry exposes the instance registry for read paths.
func (s *Service) Registry() *registry.Registry { return s.reg }

// Aggregator exposes the fan-out engine, mainly so tests can swap the
// adapter factory.
func (s *Service) Aggregator() *Aggregator { return s.agg }

// ListRooms performs a full union-read fan-out, refreshes the resolver
// cache, and returns the rooms filtered by vendor. The fan-out always
// covers every instance so the cache stays complete even for filtered
// reads, matching the original aggregator's behavior.
func (s *Service) ListRooms(ctx context.Context, vendor backend.Vendor) []backend.Room {
	all := s.agg.ListRooms(ctx, Filter{})
	s.res.SetListing(all)
	if vendor == backend.VendorAny {
		return all
	}
	out := make([]backend.Room, 0, len(all))
	for _, room := range all {
		if room.Vendor == vendor {
			out = append(out, room)
		}
	}
	return out
}

// LookupRoom resolves a room ID to fresh per-instance detail.
func (s *Service) LookupRoom(ctx context.Context, roomID int64, vendor backend.Vendor) ([]backend.Room, error) {
	return s.res.Lookup(ctx, roomID, vendor)
}

// InstanceStatuses probes every matching instance in parallel.
func (s *Service) InstanceStatuses(ctx context.Context, f Filter) []InstanceStatus {
	return s.agg.InstanceStatuses(ctx, f)
}

// roomOp runs one at-least-one-success fan-out. Mutating operations
// invalidate the resolver cache whether or not they succeed; a partial
// success on one instance is enough to make the cached listing stale.
func (s *Service) roomOp(ctx context.Context, op Operation, f Filter, caller string, mutating bool, fn func(context.Context, backend.Adapter) (any, error)) (*Result, error) {
	if mutating {
		defer s.res.Invalidate()
	}
	res, err := s.agg.Apply(ctx, op, f, caller, fn)
	if err != nil {
		s.logger.Error("aggregate operation failed", "operation", op, "filter", f.String(), "caller", caller)
		return nil, err
	}
	return res, nil
}

func (s *Service) CreateRoom(ctx context.Context, caller string, f Filter, roomID int64, autoRecord bool) (*Result, error) {
	return s.roomOp(ctx, OpCreateRoom, f, caller, true, func(ctx context.Context, ad backend.Adapter) (any, error) {
		return ad.CreateRoom(ctx, roomID, autoRecord)
	})
}

func (s *Service) DeleteRoom(ctx context.Context, caller string, f Filter, roomID int64) (*Result, error) {
	return s.roomOp(ctx, OpDeleteRoom, f, caller, true, func(ctx context.Context, ad backend.Adapter) (any, error) {
		return ad.DeleteRoom(ctx, roomID)
	})
}

func (s *Service) StartRecording(ctx context.Context, caller string, f Filter, roomID int64) (*Result, error) {
	return s.roomOp(ctx, OpStart, f, caller, true, func(ctx context.Context, ad backend.Adapter) (any, error) {
		return ad.Start(ctx, roomID)
	})
}

func (s *Service) StopRecording(ctx context.Context, caller string, f Filter, roomID int64) (*Result, error) {
	return s.roomOp(ctx, OpStop, f, caller, true, func(ctx context.Context, ad backend.Adapter) (any, error) {
		return ad.Stop(ctx, roomID)
	})
}

func (s *Service) SplitRecording(ctx context.Context, caller string, f Filter, roomID int64) (*Result, error) {
	return s.roomOp(ctx, OpSplit, f, caller, true, func(ctx context.Context, ad backend.Adapter) (any, error) {
		return ad.Split(ctx, roomID)
	})
}

func (s *Service) RefreshRoom(ctx context.Context, caller string, f Filter, roomID int64) (*Result, error) {
	return s.roomOp(ctx, OpRefresh, f, caller, true, func(ctx context.Context, ad backend.Adapter) (any, error) {
		return ad.Refresh(ctx, roomID)
	})
}

func (s *Service) GetRoomConfig(ctx context.Context, caller string, f Filter, roomID int64) (*Result, error) {
	return s.roomOp(ctx, OpGetConfig, f, caller, false, func(ctx context.Context, ad backend.Adapter) (any, error) {
		return ad.GetConfig(ctx, roomID)
	})
}

func (s *Service) UpdateRoomConfig(ctx context.Context, caller string, f Filter, roomID int64, cfg map[string]any) (*Result, error) {
	return s.roomOp(ctx, OpUpdateConfig, f, caller, true, func(ctx context.Context, ad backend.Adapter) (any, error) {
		return ad.UpdateConfig(ctx, roomID, cfg)
	})
}

func (s *Service) GetRoomStats(ctx context.Context, caller string, f Filter, roomID int64) (*Result, error) {
	return s.roomOp(ctx, OpGetStats, f, caller, false, func(ctx context.Context, ad backend.Adapter) (any, error) {
		return ad.GetStats(ctx, roomID)
	})
}

func (s *Service) GetRoomStatus(ctx context.Context, caller string, f Filter, roomID int64) (*Result, error) {
	return s.roomOp(ctx, OpGetStatus, f, caller, false, func(ctx context.Context, ad backend.Adapter) (any, error) {
		return ad.GetStatus(ctx, roomID)
	})
}

// BatchCreateRooms creates each room independently; one failing room never
// aborts its siblings.
func (s *Service) BatchCreateRooms(ctx context.Context, caller string, f Filter, roomIDs []int64, autoRecord bool) *BatchResult {
	idents := roomIdents(roomIDs)
	return runBatch(idents, func(i int) ([]any, error) {
		res, err := s.CreateRoom(ctx, caller, f, roomIDs[i], autoRecord)
		if err != nil {
			return nil, err
		}
		return res.Data, nil
	})
}

// BatchDeleteRooms deletes each room independently.
func (s *Service) BatchDeleteRooms(ctx context.Context, caller string, f Filter, roomIDs []int64) *BatchResult {
	idents := roomIdents(roomIDs)
	return runBatch(idents, func(i int) ([]any, error) {
		res, err := s.DeleteRoom(ctx, caller, f, roomIDs[i])
		if err != nil {
			return nil, err
		}
		return res.Data, nil
	})
}

// AddInstance registers and persists a new instance. The resolver cache is
// invalidated so the next listing covers it.
func (s *Service) AddInstance(inst backend.Instance) error {
	if err := s.reg.Add(inst); err != nil {
		return err
	}
	s.afterRegistryChange()
	return nil
}

// RemoveInstance unregisters and persists.
func (s *Service) RemoveInstance(vendor backend.Vendor, name string) error {
	if err := s.reg.Remove(vendor, name); err != nil {
		return err
	}
	s.afterRegistryChange()
	return nil
}

// BatchAddInstances applies each entry independently with one persistence
// write at the end.
func (s *Service) BatchAddInstances(insts []backend.Instance) *BatchResult {
	outcomes := s.reg.AddBatch(insts)
	s.afterRegistryChange()
	return BatchFromOutcomes(outcomes)
}

// BatchRemoveInstances is the removal counterpart.
func (s *Service) BatchRemoveInstances(idents []registry.Identity) *BatchResult {
	outcomes := s.reg.RemoveBatch(idents)
	s.afterRegistryChange()
	return BatchFromOutcomes(outcomes)
}

func (s *Service) afterRegistryChange() {
	s.res.Invalidate()
	for _, v := range []backend.Vendor{backend.VendorRecheme, backend.VendorBLREC} {
		metrics.SetRegisteredInstances(string(v), len(s.reg.List(v, "")))
	}
}

func roomIdents(roomIDs []int64) []string {
	idents := make([]string, len(roomIDs))
	for i, id := range roomIDs {
		idents[i] = strconv.FormatInt(id, 10)
	}
	return idents
}
