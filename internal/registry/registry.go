package registry

import (
	"fmt"
	"strings"

	"github.com/threadcrawl/threadcrawl/internal/sites"
)

// Descriptor describes one registered marketplace: its identifier, the
// adapter that extracts listings from it, and the fetch capability it needs.
type Descriptor struct {
	// ID is the unique site identifier, e.g. "grailed". Matched case-insensitively.
	ID string
	// Name is the human-readable site name.
	Name string
	// RequiresBrowser selects the rendering fetch strategy for sites whose
	// listings only appear after script execution.
	RequiresBrowser bool
	// ReadySelector is the CSS selector the rendering strategy waits for
	// before handing the document to the adapter. Empty means a fixed
	// settle delay is used instead.
	ReadySelector string
	Adapter       sites.Adapter
}

// DuplicateSiteError is returned when registering an identifier twice.
type DuplicateSiteError struct {
	ID string
}

func (e *DuplicateSiteError) Error() string {
	return fmt.Sprintf("site %q is already registered", e.ID)
}

// UnknownSiteError is returned when resolving an identifier that was never registered.
type UnknownSiteError struct {
	ID string
}

func (e *UnknownSiteError) Error() string {
	return fmt.Sprintf("unknown site %q", e.ID)
}

// Registry maps site identifiers to descriptors. It is populated at startup
// and read-only afterward, so lookups need no locking.
type Registry struct {
	order []Descriptor
	index map[string]int
}

func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a descriptor. Identifiers are unique case-insensitively.
func (r *Registry) Register(d Descriptor) error {
	key := strings.ToLower(d.ID)
	if key == "" {
		return fmt.Errorf("descriptor has empty site identifier")
	}
	if _, exists := r.index[key]; exists {
		return &DuplicateSiteError{ID: d.ID}
	}
	r.index[key] = len(r.order)
	r.order = append(r.order, d)
	return nil
}

// All returns every registered descriptor in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Resolve turns enable/disable identifier lists into the final enabled set,
// in registration order. An empty enable list means all registered sites.
// Disable always overrides enable. Both lists are validated: the first
// identifier that matches no registered site fails the whole resolution,
// before any network activity happens.
func (r *Registry) Resolve(enable, disable []string) ([]Descriptor, error) {
	enabled := make(map[string]bool, len(r.order))

	if len(enable) == 0 {
		for key := range r.index {
			enabled[key] = true
		}
	} else {
		for _, id := range enable {
			key := strings.ToLower(strings.TrimSpace(id))
			if key == "" {
				continue
			}
			if _, ok := r.index[key]; !ok {
				return nil, &UnknownSiteError{ID: id}
			}
			enabled[key] = true
		}
	}

	for _, id := range disable {
		key := strings.ToLower(strings.TrimSpace(id))
		if key == "" {
			continue
		}
		if _, ok := r.index[key]; !ok {
			return nil, &UnknownSiteError{ID: id}
		}
		delete(enabled, key)
	}

	var out []Descriptor
	for _, d := range r.order {
		if enabled[strings.ToLower(d.ID)] {
			out = append(out, d)
		}
	}
	return out, nil
}
