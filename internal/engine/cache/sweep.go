package cache

// Sweep removes every listing that has expired and returns how many were
// removed. Each listing is visited exactly once.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	kept := s.listings[:0]
	removed := 0
	for _, l := range s.listings {
		if l.IsExpired(now) {
			removed++
			s.metrics.Evict(EvictSweep)
			continue
		}
		kept = append(kept, l)
	}
	// Clear the tail so dropped listings are not retained by the backing array.
	for i := len(kept); i < len(s.listings); i++ {
		s.listings[i] = Listing{}
	}
	s.listings = kept
	s.metrics.Size(len(s.listings))
	return removed
}
