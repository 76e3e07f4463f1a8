package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
)

// DayPlan is a snapshot of everything that shapes one date: the business
// entry for its day index and every resource override on that index.
type DayPlan struct {
	Date      time.Time
	DayIndex  int
	Business  scheduling.DayHours
	overrides map[uuid.UUID]scheduling.OverrideHours
}

// Plan loads the business hours and overrides for date. It reads the
// calendar once so a caller resolving many resources does not query per
// resource.
func (s *Service) Plan(ctx context.Context, tenantID uuid.UUID, date time.Time) (*DayPlan, error) {
	date = scheduling.DateOf(date)
	idx := s.week.Index(date)

	days, err := s.BusinessCalendar(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	plan := &DayPlan{
		Date:      date,
		DayIndex:  idx,
		overrides: make(map[uuid.UUID]scheduling.OverrideHours),
	}
	for _, d := range days {
		if d.DayIndex != idx {
			continue
		}
		hours, err := d.Hours()
		if err != nil {
			return nil, fmt.Errorf("business hours for day %d: %w", idx, err)
		}
		plan.Business = hours
	}

	overrides, err := s.repo.ListOverridesForDay(ctx, tenantID, idx)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	for _, o := range overrides {
		hours, err := o.Hours()
		if err != nil {
			s.logger.Warn("skipping malformed override", "resource_id", o.ResourceID.String(), "day_index", idx)
			continue
		}
		plan.overrides[o.ResourceID] = hours
	}
	return plan, nil
}

// BusinessOpen reports whether the business itself is open that day.
func (p *DayPlan) BusinessOpen() bool {
	return scheduling.ResolveWindow(p.Business, nil).Open
}

// Window resolves the working window for resourceID, or for the business as
// a whole when resourceID is nil.
func (p *DayPlan) Window(resourceID *uuid.UUID) scheduling.Window {
	if resourceID == nil {
		return scheduling.ResolveWindow(p.Business, nil)
	}
	if o, ok := p.overrides[*resourceID]; ok {
		return scheduling.ResolveWindow(p.Business, &o)
	}
	return scheduling.ResolveWindow(p.Business, nil)
}

func (p *DayPlan) DayWindow(resourceID *uuid.UUID) *model.DayWindow {
	return model.NewDayWindow(model.NewDate(p.Date), p.DayIndex, resourceID, p.Window(resourceID))
}
