package scheduling

// DayHours is a business calendar entry for one day index.
type DayHours struct {
	Open  bool
	Start int
	End   int
}

// OverrideHours is a per-resource replacement for one day index.
type OverrideHours struct {
	Available bool
	Start     int
	End       int
}

// WindowSource names the rule that produced a Window.
type WindowSource string

const (
	SourceBusiness WindowSource = "business"
	SourceOverride WindowSource = "override"
	SourceClosed   WindowSource = "closed"
	SourceDayOff   WindowSource = "day_off"
)

// Window is the resolved working window of a day.
type Window struct {
	Open   bool
	Start  int
	End    int
	Source WindowSource
}

// Interval returns the window bounds; meaningless when the window is closed.
func (w Window) Interval() Interval {
	return Interval{Start: w.Start, End: w.End}
}

// Contains reports whether iv fits fully inside an open window.
func (w Window) Contains(iv Interval) bool {
	return w.Open && iv.Within(w.Interval())
}

// ResolveWindow combines the business calendar entry of a day with an optional
// resource override. A closed business day wins over any override; an
// available override is clipped to business hours and an empty clip is closed.
func ResolveWindow(business DayHours, override *OverrideHours) Window {
	if !business.Open || business.Start >= business.End {
		return Window{Source: SourceClosed}
	}
	if override == nil {
		return Window{Open: true, Start: business.Start, End: business.End, Source: SourceBusiness}
	}
	if !override.Available {
		return Window{Source: SourceDayOff}
	}

	start := max(business.Start, override.Start)
	end := min(business.End, override.End)
	if start >= end {
		return Window{Source: SourceDayOff}
	}
	return Window{Open: true, Start: start, End: end, Source: SourceOverride}
}
