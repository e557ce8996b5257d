package viewmodel

// sequencer issues request tokens from a monotonically increasing sequence.
// It is not synchronized; callers hold their view-model's mutex.
type sequencer struct {
	issued  uint64
	applied uint64
}

func (s *sequencer) next() uint64 {
	s.issued++
	return s.issued
}

// latest reports whether tok is the most recently issued token.
func (s *sequencer) latest(tok uint64) bool { return tok == s.issued }

// stale reports whether a token newer than tok has already been applied.
func (s *sequencer) stale(tok uint64) bool { return tok <= s.applied }

// apply reports whether tok is newer than the last applied token and, if
// so, records it as applied.
func (s *sequencer) apply(tok uint64) bool {
	if tok <= s.applied {
		return false
	}
	s.applied = tok
	return true
}
