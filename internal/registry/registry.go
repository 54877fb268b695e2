package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/loykin/recbridge/internal/backend"
)

var (
	ErrDuplicateInstance  = errors.New("instance already registered")
	ErrInvalidInstance    = errors.New("invalid instance")
	ErrInstanceNotFound   = errors.New("instance not found")
	ErrPersistenceFailure = errors.New("failed to persist configuration")
)

// Saver persists the full instance set. Save must be atomic: either the
// configuration is fully rewritten or left unchanged.
type Saver interface {
	Save(instances []backend.Instance) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(instances []backend.Instance) error

func (f SaverFunc) Save(instances []backend.Instance) error { return f(instances) }

// Registry is the authoritative in-memory set of configured instances.
// Mutations are serialized and persisted before they are acknowledged; a
// persistence failure rolls the in-memory change back so registry and
// configuration never diverge.
type Registry struct {
	mu        sync.RWMutex
	instances []backend.Instance
	saver     Saver
}

func New(instances []backend.Instance, saver Saver) *Registry {
	snapshot := make([]backend.Instance, len(instances))
	copy(snapshot, instances)
	return &Registry{instances: snapshot, saver: saver}
}

// List returns instances matching the vendor and name filters, in
// configuration order. VendorAny matches every vendor; an empty name
// matches every name.
func (r *Registry) List(vendor backend.Vendor, name string) []backend.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]backend.Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		if vendor != backend.VendorAny && inst.Vendor != vendor {
			continue
		}
		if name != "" && inst.Name != name {
			continue
		}
		out = append(out, inst)
	}
	return out
}

// Get returns the instance with the given (vendor, name) identity.
func (r *Registry) Get(vendor backend.Vendor, name string) (backend.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(vendor, name); i >= 0 {
		return r.instances[i], nil
	}
	return backend.Instance{}, fmt.Errorf("%w: %s/%s", ErrInstanceNotFound, vendor, name)
}

// Add registers a new instance and persists the updated set.
func (r *Registry) Add(inst backend.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := validate(inst); err != nil {
		return err
	}
	if r.index(inst.Vendor, inst.Name) >= 0 {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateInstance, inst.Vendor, inst.Name)
	}
	r.instances = append(r.instances, inst)
	if err := r.persist(); err != nil {
		r.instances = r.instances[:len(r.instances)-1]
		return err
	}
	return nil
}

// Remove unregisters the instance with the given identity and persists the
// updated set.
func (r *Registry) Remove(vendor backend.Vendor, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(vendor, name)
	if i < 0 {
		return fmt.Errorf("%w: %s/%s", ErrInstanceNotFound, vendor, name)
	}
	removed := r.instances[i]
	r.instances = append(r.instances[:i], r.instances[i+1:]...)
	if err := r.persist(); err != nil {
		r.instances = append(r.instances[:i], append([]backend.Instance{removed}, r.instances[i:]...)...)
		return err
	}
	return nil
}

// AddBatch applies each entry independently and persists once at the end.
// A persistence failure fails every entry retroactively and rolls back all
// in-memory changes, since the backing store is written all-or-nothing.
func (r *Registry) AddBatch(insts []backend.Instance) []backend.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := make([]backend.Instance, len(r.instances))
	copy(before, r.instances)

	outcomes := make([]backend.Outcome, 0, len(insts))
	applied := 0
	for _, inst := range insts {
		oc := backend.Outcome{Instance: inst.Source(), Status: backend.OutcomeSuccess}
		if err := validate(inst); err != nil {
			oc.Status = backend.OutcomeFailure
			oc.Error = err.Error()
		} else if r.index(inst.Vendor, inst.Name) >= 0 {
			oc.Status = backend.OutcomeFailure
			oc.Error = fmt.Sprintf("%v: %s/%s", ErrDuplicateInstance, inst.Vendor, inst.Name)
		} else {
			r.instances = append(r.instances, inst)
			applied++
		}
		outcomes = append(outcomes, oc)
	}

	if applied > 0 {
		if err := r.persist(); err != nil {
			r.instances = before
			for i := range outcomes {
				outcomes[i].Status = backend.OutcomeFailure
				outcomes[i].Error = err.Error()
			}
		}
	}
	return outcomes
}

// RemoveBatch is the removal counterpart of AddBatch.
func (r *Registry) RemoveBatch(idents []Identity) []backend.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := make([]backend.Instance, len(r.instances))
	copy(before, r.instances)

	outcomes := make([]backend.Outcome, 0, len(idents))
	applied := 0
	for _, id := range idents {
		oc := backend.Outcome{
			Instance: backend.SourceInfo{Name: id.Name, Vendor: id.Vendor},
			Status:   backend.OutcomeSuccess,
		}
		if i := r.index(id.Vendor, id.Name); i >= 0 {
			oc.Instance = r.instances[i].Source()
			r.instances = append(r.instances[:i], r.instances[i+1:]...)
			applied++
		} else {
			oc.Status = backend.OutcomeFailure
			oc.Error = fmt.Sprintf("%v: %s/%s", ErrInstanceNotFound, id.Vendor, id.Name)
		}
		outcomes = append(outcomes, oc)
	}

	if applied > 0 {
		if err := r.persist(); err != nil {
			r.instances = before
			for i := range outcomes {
				outcomes[i].Status = backend.OutcomeFailure
				outcomes[i].Error = err.Error()
			}
		}
	}
	return outcomes
}

// Identity names one instance for removal.
type Identity struct {
	Vendor backend.Vendor `json:"vendor"`
	Name   string         `json:"name"`
}

// index must be called with the lock held.
func (r *Registry) index(vendor backend.Vendor, name string) int {
	for i, inst := range r.instances {
		if inst.Vendor == vendor && inst.Name == name {
			return i
		}
	}
	return -1
}

// persist must be called with the write lock held.
func (r *Registry) persist() error {
	if r.saver == nil {
		return nil
	}
	snapshot := make([]backend.Instance, len(r.instances))
	copy(snapshot, r.instances)
	if err := r.saver.Save(snapshot); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return nil
}

func validate(inst backend.Instance) error {
	if inst.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidInstance)
	}
	if inst.Vendor != backend.VendorRecheme && inst.Vendor != backend.VendorBLREC {
		return fmt.Errorf("%w: unknown vendor %q", ErrInvalidInstance, inst.Vendor)
	}
	if !strings.HasPrefix(inst.BaseURL, "http://") && !strings.HasPrefix(inst.BaseURL, "https://") {
		return fmt.Errorf("%w: url must start with http:// or https://", ErrInvalidInstance)
	}
	return nil
}
