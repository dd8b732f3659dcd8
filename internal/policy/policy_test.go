package policy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/taskhub/taskhub-api/internal/domain"
)

func taskFor(assignee uuid.UUID) *domain.Task {
	return &domain.Task{
		ID:         uuid.New(),
		Title:      "Write report",
		AssignedTo: assignee,
		Status:     domain.TaskStatusPending,
		Deadline:   time.Now().Add(time.Hour),
	}
}

func TestAllowStandardScheme(t *testing.T) {
	t.Parallel()

	engine := New(domain.SchemeStandard)

	admin := Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	manager := Actor{ID: uuid.New(), Role: domain.RoleManager}
	member := Actor{ID: uuid.New(), Role: domain.RoleMember}

	ownTask := taskFor(member.ID)
	otherTask := taskFor(uuid.New())
	managerRecord := &domain.User{ID: manager.ID, Role: domain.RoleManager}
	memberRecord := &domain.User{ID: member.ID, Role: domain.RoleMember}

	tests := []struct {
		name     string
		actor    Actor
		action   Action
		resource any
		want     bool
	}{
		{name: "admin creates", actor: admin, action: ActionCreate, resource: nil, want: true},
		{name: "admin deletes any task", actor: admin, action: ActionDelete, resource: otherTask, want: true},
		{name: "admin changes roles", actor: admin, action: ActionChangeRole, resource: otherTask, want: true},

		{name: "manager reads any task", actor: manager, action: ActionRead, resource: otherTask, want: true},
		{name: "manager cannot create", actor: manager, action: ActionCreate, resource: nil, want: false},
		{name: "manager cannot start", actor: manager, action: ActionStart, resource: otherTask, want: false},
		{name: "manager cannot delete", actor: manager, action: ActionDelete, resource: otherTask, want: false},
		{name: "manager updates own record", actor: manager, action: ActionUpdate, resource: managerRecord, want: true},
		{name: "manager cannot update others", actor: manager, action: ActionUpdate, resource: memberRecord, want: false},
		{name: "manager cannot update tasks", actor: manager, action: ActionUpdate, resource: otherTask, want: false},

		{name: "member reads own task", actor: member, action: ActionRead, resource: ownTask, want: true},
		{name: "member cannot read others", actor: member, action: ActionRead, resource: otherTask, want: false},
		{name: "member starts own task", actor: member, action: ActionStart, resource: ownTask, want: true},
		{name: "member completes own task", actor: member, action: ActionComplete, resource: ownTask, want: true},
		{name: "member updates own status", actor: member, action: ActionUpdateStatus, resource: ownTask, want: true},
		{name: "member cannot start others", actor: member, action: ActionStart, resource: otherTask, want: false},
		{name: "member cannot create", actor: member, action: ActionCreate, resource: nil, want: false},
		{name: "member cannot delete own task", actor: member, action: ActionDelete, resource: ownTask, want: false},
		{name: "member cannot change roles", actor: member, action: ActionChangeRole, resource: ownTask, want: false},

		{name: "unknown role denied", actor: Actor{ID: uuid.New(), Role: "owner"}, action: ActionRead, resource: otherTask, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, engine.Allow(tc.actor, tc.action, tc.resource))
		})
	}
}

func TestAllowCompactScheme(t *testing.T) {
	t.Parallel()

	engine := New(domain.SchemeCompact)

	admin := Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	user := Actor{ID: uuid.New(), Role: domain.RoleUser}

	ownTask := taskFor(user.ID)
	otherTask := taskFor(uuid.New())

	assert.True(t, engine.Allow(admin, ActionDelete, otherTask))
	assert.True(t, engine.Allow(user, ActionStart, ownTask))
	assert.False(t, engine.Allow(user, ActionStart, otherTask))

	// "manager" is not a role in the compact scheme.
	manager := Actor{ID: uuid.New(), Role: domain.RoleManager}
	assert.False(t, engine.Allow(manager, ActionRead, otherTask))
}

func TestCanSeeAll(t *testing.T) {
	t.Parallel()

	engine := New(domain.SchemeStandard)

	assert.True(t, engine.CanSeeAll(Actor{Role: domain.RoleAdmin}))
	assert.True(t, engine.CanSeeAll(Actor{Role: domain.RoleManager}))
	assert.False(t, engine.CanSeeAll(Actor{Role: domain.RoleMember}))
	assert.False(t, engine.CanSeeAll(Actor{Role: "owner"}))
}

func TestIsAdmin(t *testing.T) {
	t.Parallel()

	engine := New(domain.SchemeCompact)

	assert.True(t, engine.IsAdmin(Actor{Role: domain.RoleAdmin}))
	assert.False(t, engine.IsAdmin(Actor{Role: domain.RoleUser}))
}

func TestOwnershipRequiresOwnedResource(t *testing.T) {
	t.Parallel()

	engine := New(domain.SchemeStandard)
	member := Actor{ID: uuid.New(), Role: domain.RoleMember}

	// Resources without a declared owner are denied to owned-scoped roles.
	assert.False(t, engine.Allow(member, ActionRead, struct{}{}))
	assert.False(t, engine.Allow(member, ActionRead, nil))
}
