package protocols

import (
	"errors"
	"fmt"
	"slices"

	"github.com/defistate/swapchain-go/engine"
)

// Registry maps venue tags to their adapters.
type Registry struct {
	adapters map[Tag]Adapter
}

// NewRegistry builds a registry, rejecting nil adapters and duplicate tags.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[Tag]Adapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			return nil, errors.New("registry: adapter cannot be nil")
		}
		if _, exists := r.adapters[a.Tag()]; exists {
			return nil, fmt.Errorf("registry: duplicate adapter for %s", a.Tag())
		}
		r.adapters[a.Tag()] = a
	}
	return r, nil
}

// Get returns the adapter for tag.
func (r *Registry) Get(tag Tag) (Adapter, error) {
	a, ok := r.adapters[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownVenue, tag)
	}
	return a, nil
}

// Tags lists the registered venues in ascending order.
func (r *Registry) Tags() []Tag {
	tags := make([]Tag, 0, len(r.adapters))
	for tag := range r.adapters {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}
