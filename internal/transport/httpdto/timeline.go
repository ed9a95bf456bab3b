package httpdto

import (
	"time"

	"fizzy/internal/services/timeline"
)

// TimelineResponse is the day view: three semantic columns, each split
// into hour groups in chronological order.
type TimelineResponse struct {
	Date    string              `json:"date"`
	Added   []TimelineHourGroup `json:"added"`
	Updated []TimelineHourGroup `json:"updated"`
	Done    []TimelineHourGroup `json:"done"`
}

type TimelineHourGroup struct {
	Hour   int             `json:"hour"`
	Events []EventResponse `json:"events"`
}

func NewTimelineResponse(day timeline.Day) TimelineResponse {
	return TimelineResponse{
		Date:    day.Date.UTC().Format(time.DateOnly),
		Added:   newHourGroups(day.Added),
		Updated: newHourGroups(day.Updated),
		Done:    newHourGroups(day.Done),
	}
}

func newHourGroups(groups []timeline.HourGroup) []TimelineHourGroup {
	out := make([]TimelineHourGroup, 0, len(groups))
	for _, g := range groups {
		hg := TimelineHourGroup{Hour: g.Hour}
		for i := range g.Events {
			hg.Events = append(hg.Events, NewEventResponse(&g.Events[i]))
		}
		out = append(out, hg)
	}
	return out
}
