package usecase

// Ladder is a token's ordered sequence of strictly increasing price
// levels. All lookups are pure; callers must treat "not found" and
// "out of range" as distinct outcomes and never clamp.
type Ladder []float64

// IndexOf returns the position of level in the ladder.
func (l Ladder) IndexOf(level float64) (int, bool) {
	for i, v := range l {
		if v == level {
			return i, true
		}
	}
	return -1, false
}

// StepUp returns the level one band above index i.
func (l Ladder) StepUp(i int) (float64, bool) {
	if i < 0 || i+1 >= len(l) {
		return 0, false
	}
	return l[i+1], true
}

// StepDown returns the level one band below index i.
func (l Ladder) StepDown(i int) (float64, bool) {
	if i <= 0 || i >= len(l) {
		return 0, false
	}
	return l[i-1], true
}
