package timeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fizzy/internal/domain/event"
	"fizzy/internal/repository"
)

// trackedActions is the allow-list of timeline-worthy tags. Noisy or
// redundant actions (description edits, comments) stay off the timeline.
var trackedActions = []string{
	string(event.ActionCardPublished),
	string(event.ActionCardReopened),
	string(event.ActionCardClosed),
	string(event.ActionCardMoved),
	string(event.ActionCardAssigned),
	string(event.ActionCardUnassigned),
	string(event.ActionCardTitleChanged),
}

// Column is a semantic bucket in the day view.
type Column string

const (
	ColumnAdded   Column = "added"
	ColumnUpdated Column = "updated"
	ColumnDone    Column = "done"
)

// HourGroup is one hour's slice of a column, for rendering.
type HourGroup struct {
	Hour   int
	Events []event.Event
}

// Day is the projection of one day's events for one user.
type Day struct {
	Date    time.Time
	Added   []HourGroup
	Updated []HourGroup
	Done    []HourGroup
}

// Filter narrows the projection.
type Filter struct {
	ActorID uuid.NullUUID
}

// Projector is a pure read-side query over the event store; it has no
// side effects and tolerates events whose underlying entity is gone.
type Projector struct {
	events repository.EventRepository
	users  repository.UserRepository
}

func NewProjector(repos *repository.Repositories) *Projector {
	return &Projector{events: repos.Events, users: repos.Users}
}

// EventsFor buckets one day's allow-listed events on the user's
// accessible boards into Added / Updated / Done columns, each sub-grouped
// by hour of day.
func (p *Projector) EventsFor(ctx context.Context, userID uuid.UUID, day time.Time, filter Filter) (Day, error) {
	boardIDs, err := p.users.AccessibleBoardIDs(ctx, userID)
	if err != nil {
		return Day{}, err
	}

	from := day.Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	events, err := p.events.ListTimeline(ctx, boardIDs, from, to, trackedActions, filter.ActorID)
	if err != nil {
		return Day{}, err
	}

	result := Day{Date: from}
	var added, updated, done []event.Event
	for _, e := range events {
		switch Bucket(e.Action) {
		case ColumnAdded:
			added = append(added, e)
		case ColumnDone:
			done = append(done, e)
		default:
			updated = append(updated, e)
		}
	}
	result.Added = groupByHour(added)
	result.Updated = groupByHour(updated)
	result.Done = groupByHour(done)
	return result, nil
}

// Bucket maps an action to exactly one column: publish and reopen count
// as Added, close as Done, everything else tracked as Updated.
func Bucket(action event.Action) Column {
	switch action {
	case event.ActionCardPublished, event.ActionCardReopened:
		return ColumnAdded
	case event.ActionCardClosed:
		return ColumnDone
	}
	return ColumnUpdated
}

func groupByHour(events []event.Event) []HourGroup {
	var groups []HourGroup
	for _, e := range events {
		hour := e.CreatedAt.Hour()
		if len(groups) == 0 || groups[len(groups)-1].Hour != hour {
			groups = append(groups, HourGroup{Hour: hour})
		}
		groups[len(groups)-1].Events = append(groups[len(groups)-1].Events, e)
	}
	return groups
}
