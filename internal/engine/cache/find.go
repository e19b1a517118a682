package cache

// Price band used by Find, as fractions of the target price.
const (
	bandLow  = 0.9
	bandHigh = 1.1
)

// Find returns a non-expired listing priced strictly inside
// (0.9*target, 1.1*target), picked uniformly at random among candidates.
//
// Expired candidates drawn along the way are removed from the Store, so a
// single call may evict several listings. ok is false on a miss.
func (s *Store) Find(target float64) (Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	low, high := target*bandLow, target*bandHigh
	var candidates []Listing
	for _, l := range s.listings {
		if l.Price > low && l.Price < high {
			candidates = append(candidates, l)
		}
	}

	now := s.now()
	for len(candidates) > 0 {
		i := s.rnd.IntN(len(candidates))
		picked := candidates[i]
		if !picked.IsExpired(now) {
			s.metrics.Hit()
			return picked, true
		}

		s.removeLocked(picked)
		s.metrics.Evict(EvictLazy)
		candidates[i] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]
	}

	s.metrics.Miss()
	return Listing{}, false
}
