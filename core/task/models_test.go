package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cadenza-app/cadenza/core/user"
)

func TestTaskVisibleAt(t *testing.T) {
	base := time.Date(2021, 5, 10, 9, 0, 0, 0, time.UTC)
	tsk := Task{
		Audience:    []string{user.RoleTeacher},
		VisibleFrom: base,
		DueAt:       base.Add(48 * time.Hour),
		Grace:       2 * time.Hour,
	}

	teacher := []string{user.RoleTeacher}
	parent := []string{user.RoleParent}
	admin := []string{user.RoleAdminOwner}

	tests := []struct {
		name  string
		now   time.Time
		roles []string
		want  bool
	}{
		{"before window", base.Add(-time.Minute), teacher, false},
		{"at visible_from", base, teacher, true},
		{"inside window", base.Add(24 * time.Hour), teacher, true},
		{"at due_at still visible", base.Add(48 * time.Hour), teacher, true},
		{"inside grace", base.Add(49 * time.Hour), teacher, true},
		{"at end of grace", base.Add(50 * time.Hour), teacher, false},
		{"past grace", base.Add(72 * time.Hour), teacher, false},
		{"wrong audience", base.Add(24 * time.Hour), parent, false},
		{"admin not in audience", base.Add(24 * time.Hour), admin, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tsk.VisibleAt(tt.now, tt.roles))
		})
	}
}

func TestTaskAudienceMatches(t *testing.T) {
	tests := []struct {
		name     string
		audience []string
		roles    []string
		want     bool
	}{
		{"empty audience matches everyone", nil, []string{user.RoleParent}, true},
		{"exact role", []string{user.RoleTeacher}, []string{user.RoleTeacher}, true},
		{"admin prefix covers owner", []string{user.RoleAdmin}, []string{user.RoleAdminOwner}, true},
		{"owner does not cover plain admin audience reversed", []string{user.RoleAdminOwner}, []string{user.RoleAdmin}, false},
		{"one of several roles", []string{user.RoleStaff}, []string{user.RoleTeacher, user.RoleStaff}, true},
		{"no overlap", []string{user.RoleStaff}, []string{user.RoleParent}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tsk := Task{Audience: tt.audience}
			assert.Equal(t, tt.want, tsk.AudienceMatches(tt.roles))
		})
	}
}

func TestTaskPendingAndOverdue(t *testing.T) {
	base := time.Date(2021, 5, 10, 9, 0, 0, 0, time.UTC)
	tsk := Task{
		Audience:    []string{user.RoleTeacher},
		VisibleFrom: base,
		DueAt:       base.Add(24 * time.Hour),
		Grace:       6 * time.Hour,
		DoneBy:      map[string]time.Time{"u1": base.Add(time.Hour)},
	}
	roles := []string{user.RoleTeacher}

	t.Run("done user is never pending", func(t *testing.T) {
		assert.False(t, tsk.PendingFor(base.Add(2*time.Hour), "u1", roles))
	})
	t.Run("other user is pending", func(t *testing.T) {
		assert.True(t, tsk.PendingFor(base.Add(2*time.Hour), "u2", roles))
	})
	t.Run("not pending outside window", func(t *testing.T) {
		assert.False(t, tsk.PendingFor(base.Add(31*time.Hour), "u2", roles))
	})
	t.Run("overdue inside grace", func(t *testing.T) {
		assert.True(t, tsk.OverdueFor(base.Add(25*time.Hour), "u2"))
	})
	t.Run("done user not overdue", func(t *testing.T) {
		assert.False(t, tsk.OverdueFor(base.Add(25*time.Hour), "u1"))
	})
	t.Run("not overdue before due", func(t *testing.T) {
		assert.False(t, tsk.OverdueFor(base.Add(23*time.Hour), "u2"))
	})
	t.Run("not overdue past grace", func(t *testing.T) {
		assert.False(t, tsk.OverdueFor(base.Add(31*time.Hour), "u2"))
	})
}
