// Package live pushes refreshed series to dashboard clients over WebSocket.
package live

import (
	"sync"

	"chainscope/internal/dashboard"
)

// State tracks where a subscription is in its fetch lifecycle. There is no
// terminal state: every filter change re-enters StateLoadingData.
type State string

const (
	StateIdle           State = "idle"
	StateLoadingFilters State = "loading_filters"
	StateFiltersReady   State = "filters_ready"
	StateLoadingData    State = "loading_data"
	StateDataReady      State = "data_ready"
	StateError          State = "error"
)

// subscription holds one client's filter selection. Every filter change bumps
// the generation; a fetch result is only applied if its generation is still
// current when it resolves, so a slow response can never clobber a newer one.
type subscription struct {
	mu     sync.Mutex
	state  State
	gen    uint64
	filter dashboard.SeriesRequest
}

func newSubscription() *subscription {
	return &subscription{state: StateIdle}
}

// Set installs a new filter selection and returns the generation token the
// resulting fetch must present on delivery.
func (s *subscription) Set(filter dashboard.SeriesRequest) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.filter = filter
	s.state = StateLoadingData
	return s.gen
}

// Current returns the active filter and its generation, for periodic refresh.
func (s *subscription) Current() (dashboard.SeriesRequest, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == 0 {
		return dashboard.SeriesRequest{}, 0, false
	}
	return s.filter, s.gen, true
}

// Deliver applies a fetch outcome. It reports false, without touching state,
// when the token is stale.
func (s *subscription) Deliver(gen uint64, failed bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	if failed {
		s.state = StateError
	} else {
		s.state = StateDataReady
	}
	return true
}

// FiltersLoading marks the option-list fetch that precedes the first data
// fetch.
func (s *subscription) FiltersLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		s.state = StateLoadingFilters
	}
}

// FiltersReady completes the option-list fetch.
func (s *subscription) FiltersReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLoadingFilters {
		s.state = StateFiltersReady
	}
}

// State returns the current lifecycle state.
func (s *subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
