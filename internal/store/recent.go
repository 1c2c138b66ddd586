package store

import (
	"strings"
	"sync"
)

// RecentCities is a concurrency-safe ring of the most recently answered
// cities. The assistant appends to it after each successful answer and the
// digest scheduler reads it back; it is in-memory only.
type RecentCities struct {
	mu     sync.RWMutex
	cities []string
	max    int
}

// NewRecentCities creates the ring. If max is <= 0 a default cap is used.
func NewRecentCities(max int) *RecentCities {
	if max <= 0 {
		max = 20
	}
	return &RecentCities{max: max}
}

// LogAnsweredCity records a city, moving it to the back if already present
// (case-insensitive) and evicting the oldest entry past the cap.
func (r *RecentCities) LogAnsweredCity(city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.cities {
		if strings.EqualFold(existing, city) {
			r.cities = append(r.cities[:i], r.cities[i+1:]...)
			break
		}
	}
	r.cities = append(r.cities, city)

	if len(r.cities) > r.max {
		over := len(r.cities) - r.max
		r.cities = r.cities[over:]
	}
	return nil
}

// AllCities adapts the ring to the digest scheduler's city source contract.
func (r *RecentCities) AllCities() ([]string, error) {
	return r.List(), nil
}

// List returns a copy of the recorded cities, oldest first.
func (r *RecentCities) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.cities))
	copy(out, r.cities)
	return out
}
