package aggregate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/loykin/recbridge/internal/backend"
	"github.com/loykin/recbridge/internal/registry"
)

// Resolver locates which instance(s) currently hold a given room ID. It
// keeps the last full listing fan-out as a cache; the cache is populated
// lazily and invalidated explicitly whenever a listing or mutating
// aggregate operation runs. Staleness is bounded only by request frequency.
type Resolver struct {
	mu    sync.Mutex
	cache []backend.Room
	valid bool

	agg    *Aggregator
	reg    *registry.Registry
	logger *slog.Logger
}

func NewResolver(agg *Aggregator, reg *registry.Registry, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{agg: agg, reg: reg, logger: logger}
}

// SetListing replaces the cache with the result of a full listing fan-out.
func (r *Resolver) SetListing(rooms []backend.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = rooms
	r.valid = true
}

// Invalidate forces the next lookup to re-fan-out. Called after any
// mutating aggregate operation.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = nil
	r.valid = false
}

// Lookup finds every instance whose cached listing carries roomID (filtered
// by vendor), then fetches fresh detail from each owning instance rather
// than returning the possibly stale cached summary. An empty cache triggers
// one full union-read fan-out first.
func (r *Resolver) Lookup(ctx context.Context, roomID int64, vendor backend.Vendor) ([]backend.Room, error) {
	listing := r.snapshot()
	if listing == nil {
		listing = r.agg.ListRooms(ctx, Filter{})
		r.SetListing(listing)
	}

	var out []backend.Room
	for _, room := range listing {
		if vendor != backend.VendorAny && room.Vendor != vendor {
			continue
		}
		id, ok := room.ID()
		if !ok || id != roomID {
			continue
		}
		inst, err := r.reg.Get(room.Vendor, room.Source.Name)
		if err != nil {
			// Instance was removed since the listing was cached.
			r.logger.Debug("cached room points at unregistered instance",
				"room", roomID, "instance", room.Source.Name)
			continue
		}
		fresh, err := r.agg.NewAdapter(inst).GetRoom(ctx, roomID)
		if err != nil {
			r.logger.Error("live room fetch failed",
				"room", roomID, "instance", inst.Name, "error", err)
			continue
		}
		out = append(out, *fresh)
	}
	if len(out) == 0 {
		return nil, &RoomNotFoundError{RoomID: roomID, Vendor: vendor}
	}
	return out, nil
}

// snapshot returns the cached listing, or nil when the cache is invalid.
func (r *Resolver) snapshot() []backend.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.valid {
		return nil
	}
	out := make([]backend.Room, len(r.cache))
	copy(out, r.cache)
	return out
}
