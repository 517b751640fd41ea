package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/cadenza-app/cadenza/core/task"
	"github.com/cadenza-app/cadenza/core/user"
)

func createTask(t *testing.T, createdBy, title string, audience []string, visibleFrom, dueAt time.Time, graceMinutes int) task.Task {
	t.Helper()

	tsk, err := taskSvc.Create(createdBy, task.NewTask{
		Title:        title,
		Audience:     audience,
		VisibleFrom:  visibleFrom,
		DueAt:        dueAt,
		GraceMinutes: graceMinutes,
	})
	if err != nil {
		t.Fatalf("createTask() failed: %v", err)
	}
	return tsk
}

func Test_taskApi_create(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := createUser(t, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdminOwner}, true)

	now := time.Now().UTC()

	tests := []httpTest{
		{
			name: "Admin required", token: getToken(t, teacher),
			body:     marchallObj(t, task.NewTask{Title: "Collect forms", VisibleFrom: now, DueAt: now.Add(time.Hour)}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "required fields", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"title":        "this field is required",
				"visible_from": "this field is required",
				"due_at":       "this field is required",
			}),
		},
		{
			name: "due before visible rejected", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body: marchallObj(t, task.NewTask{Title: "Backwards", VisibleFrom: now, DueAt: now.Add(-time.Hour)}),
		},
		{
			name: "created", token: getToken(t, admin), wantCode: http.StatusCreated,
			body: marchallObj(t, task.NewTask{
				Title: "Collect forms", Audience: []string{user.RoleTeacher},
				VisibleFrom: now, DueAt: now.Add(24 * time.Hour), GraceMinutes: 60,
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/tasks"

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var created task.Task
				if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if created.CreatedBy != admin.ID {
					t.Errorf("failed! created_by = %q; want %q", created.CreatedBy, admin.ID)
				}
				if created.Grace != time.Hour {
					t.Errorf("failed! grace = %v; want %v", created.Grace, time.Hour)
				}
				return
			}
			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_taskApi_visibility(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	parent := createUser(t, "Parent", "parent1", "parent@test.cd", "", []string{user.RoleParent}, true)
	admin := createUser(t, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdminOwner}, true)

	now := time.Now().UTC()
	current := createTask(t, admin.ID, "Collect forms", []string{user.RoleTeacher}, now.Add(-time.Hour), now.Add(time.Hour), 0)
	everyone := createTask(t, admin.ID, "Read the newsletter", nil, now.Add(-time.Hour), now.Add(2*time.Hour), 0)
	upcoming := createTask(t, admin.ID, "Next term prep", []string{user.RoleTeacher}, now.Add(time.Hour), now.Add(3*time.Hour), 0)
	expired := createTask(t, admin.ID, "Last term wrap-up", []string{user.RoleTeacher}, now.Add(-3*time.Hour), now.Add(-2*time.Hour), 30)

	tests := []httpTest{
		{
			name: "teacher sees current tasks only", path: "/v1/tasks/me", token: getToken(t, teacher),
			wantCode: http.StatusOK, wantData: marchallList(t, current, everyone),
		},
		{
			name: "parent only sees the broadcast", path: "/v1/tasks/me", token: getToken(t, parent),
			wantCode: http.StatusOK, wantData: marchallList(t, everyone),
		},
		{
			name: "admin list has everything", path: "/v1/tasks", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, current, everyone, upcoming, expired),
		},
		{
			name: "full list is admin-only", path: "/v1/tasks", token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "invisible task does not exist for a teacher", path: "/v1/tasks/" + upcoming.ID, token: getToken(t, teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "visible task can be retrieved", path: "/v1/tasks/" + current.ID, token: getToken(t, teacher),
			wantCode: http.StatusOK, wantData: marchallObj(t, current),
		},
		{
			name: "admin retrieves an invisible task", path: "/v1/tasks/" + upcoming.ID, token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, upcoming),
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

func Test_taskApi_complete(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := createUser(t, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdminOwner}, true)
	teacherToken := getToken(t, teacher)

	now := time.Now().UTC()
	current := createTask(t, admin.ID, "Collect forms", []string{user.RoleTeacher}, now.Add(-time.Hour), now.Add(time.Hour), 0)
	// past due but inside the grace window
	overdue := createTask(t, admin.ID, "Grade exams", []string{user.RoleTeacher}, now.Add(-3*time.Hour), now.Add(-time.Minute), 120)
	upcoming := createTask(t, admin.ID, "Next term prep", []string{user.RoleTeacher}, now.Add(time.Hour), now.Add(3*time.Hour), 0)

	checkCounts := func(t *testing.T, want task.Counts) {
		t.Helper()
		tt := httpTest{
			method: http.MethodGet, path: "/v1/tasks/me/counts", token: teacherToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, want),
		}
		rec := serve(t, tt)
		checkCodeAndData(t, tt, rec)
	}

	checkCounts(t, task.Counts{Visible: 2, Pending: 2, Overdue: 1})

	// completing a task that is not visible is rejected
	rec := serve(t, httpTest{method: http.MethodPost, path: "/v1/tasks/" + upcoming.ID + "/complete", token: teacherToken})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	rec = serve(t, httpTest{method: http.MethodPost, path: "/v1/tasks/" + current.ID + "/complete", token: teacherToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var done task.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &done); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if !done.DoneByUser(teacher.ID) {
		t.Fatalf("failed! done_by = %v", done.DoneBy)
	}

	checkCounts(t, task.Counts{Visible: 2, Pending: 1, Overdue: 1})

	// only the overdue one is left pending
	rec = serve(t, httpTest{method: http.MethodGet, path: "/v1/tasks/me/pending", token: teacherToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var pending []task.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(pending) != 1 || pending[0].ID != overdue.ID {
		t.Fatalf("failed! pending = %+v", pending)
	}

	// changed their mind
	rec = serve(t, httpTest{method: http.MethodPost, path: "/v1/tasks/" + current.ID + "/uncomplete", token: teacherToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	checkCounts(t, task.Counts{Visible: 2, Pending: 2, Overdue: 1})
}
