package scheduling

// DefaultGranularity is the slot step in minutes when none is configured.
const DefaultGranularity = 15

// WalkSlots steps through an open window at the given granularity and returns
// every candidate [t, t+duration) that ends inside the window, starts at or
// after notBefore and overlaps none of the busy intervals.
func WalkSlots(w Window, duration, step int, busy []Interval, notBefore int) []Interval {
	if !w.Open || duration <= 0 {
		return nil
	}
	if step <= 0 {
		step = DefaultGranularity
	}

	var slots []Interval
	for t := w.Start; t+duration <= w.End; t += step {
		if t < notBefore {
			continue
		}
		candidate := Interval{Start: t, End: t + duration}
		if overlapsAny(candidate, busy) {
			continue
		}
		slots = append(slots, candidate)
	}
	return slots
}

func overlapsAny(iv Interval, busy []Interval) bool {
	for _, b := range busy {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}
