package codeinventory

import (
	"sync"

	"github.com/agentstation/codeinventory/pkg/differ"
	"github.com/agentstation/codeinventory/pkg/inventory"
)

// Hook function types for release events
type (
	// ReleaseAddedHook is called when a release is added to the catalog
	ReleaseAddedHook func(release inventory.Release)

	// ReleaseUpdatedHook is called when a release is updated in the catalog
	ReleaseUpdatedHook func(old, new inventory.Release)

	// ReleaseRemovedHook is called when a release is removed from the catalog
	ReleaseRemovedHook func(release inventory.Release)
)

// hooks manages event callbacks for catalog changes
type hooks struct {
	mu               sync.RWMutex
	onReleaseAdded   []ReleaseAddedHook
	onReleaseUpdated []ReleaseUpdatedHook
	onReleaseRemoved []ReleaseRemovedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnReleaseAdded registers a callback for when releases are added
func (h *hooks) OnReleaseAdded(fn ReleaseAddedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReleaseAdded = append(h.onReleaseAdded, fn)
}

// OnReleaseUpdated registers a callback for when releases are updated
func (h *hooks) OnReleaseUpdated(fn ReleaseUpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReleaseUpdated = append(h.onReleaseUpdated, fn)
}

// OnReleaseRemoved registers a callback for when releases are removed
func (h *hooks) OnReleaseRemoved(fn ReleaseRemovedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReleaseRemoved = append(h.onReleaseRemoved, fn)
}

// trigger fires hooks for every change in a changeset.
func (h *hooks) trigger(cs *differ.Changeset) {
	if cs == nil || cs.Releases == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, release := range cs.Releases.Added {
		for _, hook := range h.onReleaseAdded {
			hook(release)
		}
	}
	for _, update := range cs.Releases.Updated {
		for _, hook := range h.onReleaseUpdated {
			hook(update.Existing, update.New)
		}
	}
	for _, release := range cs.Releases.Removed {
		for _, hook := range h.onReleaseRemoved {
			hook(release)
		}
	}
}
