package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/cadenza-app/cadenza/core/event"
	"github.com/cadenza-app/cadenza/core/user"
)

func createEvent(t *testing.T, name string, capacity int, published bool) event.Event {
	t.Helper()

	now := time.Now().UTC()
	evt, err := evtSvc.CreateEvent(event.NewEvent{
		Name:     name,
		Venue:    "Main Hall",
		StartsAt: now.Add(30 * 24 * time.Hour),
		EndsAt:   now.Add(30*24*time.Hour + 3*time.Hour),
		Capacity: capacity,
	})
	if err != nil {
		t.Fatalf("createEvent() failed: %v", err)
	}
	if published {
		evt, err = evtSvc.UpdateEvent(evt.ID, event.UpdateEvent{Published: &published})
		if err != nil {
			t.Fatalf("createEvent() failed: %v", err)
		}
	}
	return evt
}

func createClass(t *testing.T, eventID, name, teacherID string, slots int) event.Class {
	t.Helper()

	cls, err := evtSvc.CreateClass(eventID, event.NewClass{Name: name, TeacherID: teacherID, Instrument: "violin", Slots: slots})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return cls
}

func Test_eventApi_query(t *testing.T) {
	setup(t)

	published := createEvent(t, "Spring Recital", 40, true)
	draft := createEvent(t, "Winter Concert", 60, false)

	staff := createUser(t, "Staff", "staffer", "staff@test.cd", "", []string{user.RoleStaff}, true)
	parent := createUser(t, "Parent", "parent1", "parent@test.cd", "", []string{user.RoleParent}, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/events", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNotAuthenticated)},
		{
			name: "staff sees all", path: "/v1/events", token: getToken(t, staff),
			wantCode: http.StatusOK, wantData: marchallList(t, published, draft),
		},
		{
			name: "parent only sees published", path: "/v1/events", token: getToken(t, parent),
			wantCode: http.StatusOK, wantData: marchallList(t, published),
		},
		{
			name: "parent cannot peek at a draft", path: "/v1/events/" + draft.ID, token: getToken(t, parent),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "parent retrieves a published event", path: "/v1/events/" + published.ID, token: getToken(t, parent),
			wantCode: http.StatusOK, wantData: marchallObj(t, published),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_eventApi_create(t *testing.T) {
	setup(t)

	parent := createUser(t, "Parent", "parent1", "parent@test.cd", "", []string{user.RoleParent}, true)
	staff := createUser(t, "Staff", "staffer", "staff@test.cd", "", []string{user.RoleStaff}, true)

	now := time.Now().UTC()
	body := marchallObj(t, event.NewEvent{
		Name: "Spring Recital", Venue: "Main Hall",
		StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(27 * time.Hour), Capacity: 40,
	})

	tests := []httpTest{
		{
			name: "Staff required", token: getToken(t, parent), body: body,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "ends_at must be after starts_at", token: getToken(t, staff), wantCode: http.StatusBadRequest,
			body: marchallObj(t, event.NewEvent{
				Name: "Backwards", Venue: "Main Hall",
				StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(23 * time.Hour), Capacity: 40,
			}),
		},
		{name: "created", token: getToken(t, staff), body: body, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/events"

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
			if tt.wantCode == http.StatusCreated {
				var created event.Event
				if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if created.Published {
					t.Error("failed! new events must start unpublished")
				}
			}
		})
	}
}

func Test_eventApi_roster(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	parent := createUser(t, "Parent", "parent1", "parent@test.cd", "", []string{user.RoleParent}, true)
	otherParent := createUser(t, "Other", "parent2", "other@test.cd", "", []string{user.RoleParent}, true)
	staff := createUser(t, "Staff", "staffer", "staff@test.cd", "", []string{user.RoleStaff}, true)

	evt := createEvent(t, "Spring Recital", 40, true)
	cls := createClass(t, evt.ID, "Strings", teacher.ID, 2)

	parentToken := getToken(t, parent)
	path := "/v1/classes/" + cls.ID + "/roster"

	// parent signs their child up; parent_id in the body is ignored
	rec := serve(t, httpTest{
		method: http.MethodPost, path: path, token: parentToken,
		body: marchallObj(t, event.NewRosterEntry{StudentName: "Didi", ParentID: "someone-else"}),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var updated event.Class
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(updated.Roster) != 1 || updated.Roster[0].ParentID != parent.ID {
		t.Fatalf("failed! roster = %+v", updated.Roster)
	}

	// same child twice is rejected
	rec = serve(t, httpTest{
		method: http.MethodPost, path: path, token: parentToken,
		body: marchallObj(t, event.NewRosterEntry{StudentName: "Didi"}),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// second slot taken by another family
	rec = serve(t, httpTest{
		method: http.MethodPost, path: path, token: getToken(t, otherParent),
		body: marchallObj(t, event.NewRosterEntry{StudentName: "Bibi"}),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	// class is now full
	rec = serve(t, httpTest{
		method: http.MethodPost, path: path, token: parentToken,
		body: marchallObj(t, event.NewRosterEntry{StudentName: "Fifi"}),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// parent takes their child off
	rec = serve(t, httpTest{
		method: http.MethodDelete, path: path, token: parentToken,
		body: marchallObj(t, event.NewRosterEntry{StudentName: "Didi"}),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	// staff may act for any family
	rec = serve(t, httpTest{
		method: http.MethodDelete, path: path, token: getToken(t, staff),
		body: marchallObj(t, event.NewRosterEntry{StudentName: "Bibi", ParentID: otherParent.ID}),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(updated.Roster) != 0 {
		t.Errorf("failed! roster = %+v", updated.Roster)
	}
}

func Test_eventApi_rosterPDF(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	otherTeacher := createUser(t, "Other", "teacher2", "other@test.cd", "", []string{user.RoleTeacher}, true)
	parent := createUser(t, "Parent", "parent1", "parent@test.cd", "", []string{user.RoleParent}, true)

	evt := createEvent(t, "Spring Recital", 40, true)
	cls := createClass(t, evt.ID, "Strings", teacher.ID, 5)
	if _, err := evtSvc.AddToRoster(cls.ID, event.NewRosterEntry{StudentName: "Didi", ParentID: parent.ID}); err != nil {
		t.Fatalf("AddToRoster() failed: %v", err)
	}

	path := "/v1/classes/" + cls.ID + "/roster.pdf"

	// parents have no business printing rosters
	rec := serve(t, httpTest{method: http.MethodGet, path: path, token: getToken(t, parent)})
	if rec.Code != http.StatusForbidden {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	// a teacher may only print their own classes
	rec = serve(t, httpTest{method: http.MethodGet, path: path, token: getToken(t, otherTeacher)})
	if rec.Code != http.StatusForbidden {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	rec = serve(t, httpTest{method: http.MethodGet, path: path, token: getToken(t, teacher)})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("failed! Content-Type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("failed! empty pdf")
	}
}
