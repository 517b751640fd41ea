package dummydb

import (
	"sort"
	"strings"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/event"
)

type eventRepository struct {
	db *eventTable
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db.event}
}

func (repo *eventRepository) queryEvents() []event.Event {
	events := make([]event.Event, 0, len(repo.db.events))
	for _, evt := range repo.db.events {
		events = append(events, *evt)
	}
	return events
}

func sortEvents(events []event.Event, orderings []core.DBOrdering) {
	ord := core.DBOrdering{Field: "starts_at", Ascending: true}
	if len(orderings) > 0 {
		ord = orderings[0]
	}
	sort.SliceStable(events, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "name":
			less = events[i].Name < events[j].Name
		case "created_at":
			less = events[i].CreatedAt.Before(events[j].CreatedAt)
		default:
			less = events[i].StartsAt.Before(events[j].StartsAt)
		}
		if !ord.Ascending {
			return !less
		}
		return less
	})
}

func (repo *eventRepository) CreateEvent(evt event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) QueryAllEvents(orderings ...core.DBOrdering) ([]event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := repo.queryEvents()
	sortEvents(events, orderings)
	return events, nil
}

func (repo *eventRepository) GetEventByID(id string) (event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if evt, ok := repo.db.events[id]; ok {
		return *evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) FilterEvents(filter event.QueryFilter, orderings ...core.DBOrdering) ([]event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := repo.queryEvents()

	if filter.Search != "" {
		var filtered []event.Event
		search := strings.ToLower(filter.Search)
		for _, evt := range events {
			if strings.Contains(strings.ToLower(evt.Name), search) ||
				strings.Contains(strings.ToLower(evt.Venue), search) {
				filtered = append(filtered, evt)
			}
		}
		events = filtered
	}
	if events != nil && filter.Published != nil {
		var filtered []event.Event
		for _, evt := range events {
			if evt.Published == *filter.Published {
				filtered = append(filtered, evt)
			}
		}
		events = filtered
	}
	if events != nil && !filter.StartFrom.IsZero() {
		var filtered []event.Event
		timeUTC := filter.StartFrom.UTC()
		for _, evt := range events {
			if evt.StartsAt.Equal(timeUTC) || evt.StartsAt.After(timeUTC) {
				filtered = append(filtered, evt)
			}
		}
		events = filtered
	}
	if events != nil && !filter.StartTo.IsZero() {
		var filtered []event.Event
		timeUTC := filter.StartTo.UTC()
		for _, evt := range events {
			if evt.StartsAt.Before(timeUTC) || evt.StartsAt.Equal(timeUTC) {
				filtered = append(filtered, evt)
			}
		}
		events = filtered
	}

	sortEvents(events, orderings)
	return events, nil
}

func (repo *eventRepository) UpdateEvent(evt event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.events[evt.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) DeleteEventsByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.events, id)
		for clsID, cls := range repo.db.classes {
			if cls.EventID == id {
				delete(repo.db.classes, clsID)
			}
		}
	}
	return nil
}

// Classes

func (repo *eventRepository) queryClasses(match func(*event.Class) bool) []event.Class {
	classes := make([]event.Class, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		if match(cls) {
			classes = append(classes, *cls)
		}
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].CreatedAt.Before(classes[j].CreatedAt) })
	return classes
}

func (repo *eventRepository) CreateClass(cls event.Class) (event.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *eventRepository) GetClassByID(id string) (event.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return event.Class{}, event.ErrClassNotFound
}

func (repo *eventRepository) QueryClassesByEventID(eventID string) ([]event.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryClasses(func(cls *event.Class) bool { return cls.EventID == eventID }), nil
}

func (repo *eventRepository) QueryClassesByTeacherID(teacherID string) ([]event.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryClasses(func(cls *event.Class) bool { return cls.TeacherID == teacherID }), nil
}

func (repo *eventRepository) QueryClassesByParentID(parentID string) ([]event.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryClasses(func(cls *event.Class) bool {
		for _, entry := range cls.Roster {
			if entry.ParentID == parentID {
				return true
			}
		}
		return false
	}), nil
}

func (repo *eventRepository) UpdateClass(cls event.Class) (event.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[cls.ID]; !ok {
		return event.Class{}, event.ErrClassNotFound
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *eventRepository) DeleteClassesByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.classes, id)
	}
	return nil
}
