// Package health tracks the status of service components.
package health

import (
	"sort"
	"sync"
	"time"
)

// Status represents the health of a component.
type Status struct {
	Healthy     bool      `json:"healthy"`
	LastCheck   time.Time `json:"lastCheck"`
	LastSuccess time.Time `json:"lastSuccess,omitzero"`
	LastError   error     `json:"-"`
	Message     string    `json:"message,omitempty"`
}

// Health tracks the health of various components.
type Health struct {
	mu         sync.RWMutex
	components map[string]*Status
	now        func() time.Time
}

// New creates a new health tracker.
func New() *Health {
	return &Health{
		components: make(map[string]*Status),
		now:        time.Now,
	}
}

func (h *Health) component(name string) *Status {
	if _, exists := h.components[name]; !exists {
		h.components[name] = &Status{}
	}
	return h.components[name]
}

// SetHealthy marks a component as healthy.
func (h *Health) SetHealthy(name, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	s := h.component(name)
	s.Healthy = true
	s.LastCheck = now
	s.LastSuccess = now
	s.LastError = nil
	s.Message = message
}

// SetUnhealthy marks a component as unhealthy.
func (h *Health) SetUnhealthy(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.component(name)
	s.Healthy = false
	s.LastCheck = h.now()
	s.LastError = err
	s.Message = err.Error()
}

// Record marks a component healthy when err is nil and unhealthy otherwise.
func (h *Health) Record(name string, err error, message string) {
	if err != nil {
		h.SetUnhealthy(name, err)
		return
	}
	h.SetHealthy(name, message)
}

// Get returns a copy of a component's status, or nil.
func (h *Health) Get(name string) *Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if s, exists := h.components[name]; exists {
		c := *s
		return &c
	}
	return nil
}

// All returns copies of every component status.
func (h *Health) All() map[string]Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]Status, len(h.components))
	for name, s := range h.components {
		result[name] = *s
	}
	return result
}

// Names returns the tracked component names in order.
func (h *Health) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsOverallHealthy returns true if all components are healthy.
func (h *Health) IsOverallHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.components {
		if !s.Healthy {
			return false
		}
	}
	return true
}
