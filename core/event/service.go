package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
)

var (
	// errors
	ErrNotFound      = errors.New("event not found")
	ErrClassNotFound = errors.New("class not found")
	ErrClassFull     = errors.New("class is full")
	ErrAlreadyOnList = errors.New("student is already on the roster")
	ErrNotOnList     = errors.New("student is not on the roster")
)

type (
	Repository interface {
		CreateEvent(evt Event) (Event, error)
		QueryAllEvents(orderings ...core.DBOrdering) ([]Event, error)
		GetEventByID(id string) (Event, error)
		// FilterEvents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Event.Name or Event.Venue.
		FilterEvents(filter QueryFilter, orderings ...core.DBOrdering) ([]Event, error)
		UpdateEvent(evt Event) (Event, error)
		DeleteEventsByID(ids ...string) error

		CreateClass(cls Class) (Class, error)
		GetClassByID(id string) (Class, error)
		QueryClassesByEventID(eventID string) ([]Class, error)
		QueryClassesByTeacherID(teacherID string) ([]Class, error)
		QueryClassesByParentID(parentID string) ([]Class, error)
		UpdateClass(cls Class) (Class, error)
		DeleteClassesByID(ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Events

func (svc *Service) CreateEvent(ne NewEvent) (Event, error) {
	now := time.Now().UTC()
	evt := Event{
		ID:        uuid.New().String(),
		Name:      ne.Name,
		Venue:     ne.Venue,
		StartsAt:  ne.StartsAt.UTC(),
		EndsAt:    ne.EndsAt.UTC(),
		Capacity:  ne.Capacity,
		Notes:     ne.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateEvent(evt)
}

func (svc *Service) QueryEvents(filter *QueryFilter, orderings ...core.DBOrdering) ([]Event, error) {
	if filter == nil || filter.IsEmpty() {
		return svc.repo.QueryAllEvents(orderings...)
	}
	return svc.repo.FilterEvents(*filter, orderings...)
}

func (svc *Service) GetEventByID(id string) (Event, error) {
	return svc.repo.GetEventByID(id)
}

func (svc *Service) UpdateEvent(id string, ue UpdateEvent) (Event, error) {
	evt, err := svc.repo.GetEventByID(id)
	if err != nil {
		return Event{}, err
	}
	if ue.Name != "" {
		evt.Name = ue.Name
	}
	if ue.Venue != "" {
		evt.Venue = ue.Venue
	}
	if ue.StartsAt != nil {
		evt.StartsAt = ue.StartsAt.UTC()
	}
	if ue.EndsAt != nil {
		evt.EndsAt = ue.EndsAt.UTC()
	}
	if ue.Capacity != nil {
		// capacity can never drop below the slots of an existing class
		if *ue.Capacity < evt.Capacity {
			classes, err := svc.repo.QueryClassesByEventID(evt.ID)
			if err != nil {
				return Event{}, errors.Wrap(err, "querying classes")
			}
			for _, cls := range classes {
				if cls.Slots > *ue.Capacity {
					return Event{}, core.NewValidationError(nil, core.FieldError{
						Field: "capacity", Error: "cannot shrink below existing class slots",
					})
				}
			}
		}
		evt.Capacity = *ue.Capacity
	}
	if ue.Published != nil {
		evt.Published = *ue.Published
	}
	if ue.Notes != nil {
		evt.Notes = core.CleanString(*ue.Notes)
	}
	evt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEvent(evt)
}

func (svc *Service) DeleteEvents(ids ...string) error {
	return svc.repo.DeleteEventsByID(ids...)
}

// Classes

func (svc *Service) CreateClass(eventID string, nc NewClass) (Class, error) {
	if _, err := svc.repo.GetEventByID(eventID); err != nil {
		return Class{}, err
	}
	now := time.Now().UTC()
	cls := Class{
		ID:         uuid.New().String(),
		EventID:    eventID,
		Name:       nc.Name,
		TeacherID:  nc.TeacherID,
		Instrument: nc.Instrument,
		Slots:      nc.Slots,
		Roster:     []RosterEntry{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateClass(cls)
}

func (svc *Service) GetClassByID(id string) (Class, error) {
	return svc.repo.GetClassByID(id)
}

func (svc *Service) QueryClassesByEvent(eventID string) ([]Class, error) {
	return svc.repo.QueryClassesByEventID(eventID)
}

func (svc *Service) QueryClassesByTeacher(teacherID string) ([]Class, error) {
	return svc.repo.QueryClassesByTeacherID(teacherID)
}

func (svc *Service) QueryClassesByParent(parentID string) ([]Class, error) {
	return svc.repo.QueryClassesByParentID(parentID)
}

func (svc *Service) UpdateClass(id string, uc UpdateClass) (Class, error) {
	cls, err := svc.repo.GetClassByID(id)
	if err != nil {
		return Class{}, err
	}
	if uc.Name != "" {
		cls.Name = uc.Name
	}
	if uc.TeacherID != "" {
		cls.TeacherID = uc.TeacherID
	}
	if uc.Instrument != "" {
		cls.Instrument = uc.Instrument
	}
	if uc.Slots != nil {
		cls.Slots = *uc.Slots
	}
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(cls)
}

func (svc *Service) DeleteClasses(ids ...string) error {
	return svc.repo.DeleteClassesByID(ids...)
}

// Roster

// AddToRoster signs a child up for a class. The roster never grows beyond the
// class slots.
func (svc *Service) AddToRoster(classID string, nr NewRosterEntry) (Class, error) {
	cls, err := svc.repo.GetClassByID(classID)
	if err != nil {
		return Class{}, err
	}
	if len(cls.Roster) >= cls.Slots {
		return Class{}, core.NewValidationError(ErrClassFull)
	}
	if cls.HasStudent(nr.StudentName, nr.ParentID) {
		return Class{}, core.NewValidationError(ErrAlreadyOnList)
	}
	cls.Roster = append(cls.Roster, RosterEntry{
		StudentName: nr.StudentName,
		ParentID:    nr.ParentID,
		AddedAt:     time.Now().UTC(),
	})
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(cls)
}

// RemoveFromRoster takes a child off a class roster.
func (svc *Service) RemoveFromRoster(classID, studentName, parentID string) (Class, error) {
	cls, err := svc.repo.GetClassByID(classID)
	if err != nil {
		return Class{}, err
	}
	for i, entry := range cls.Roster {
		if entry.StudentName == studentName && entry.ParentID == parentID {
			cls.Roster = append(cls.Roster[:i], cls.Roster[i+1:]...)
			cls.UpdatedAt = time.Now().UTC()
			return svc.repo.UpdateClass(cls)
		}
	}
	return Class{}, core.NewValidationError(ErrNotOnList)
}
