package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func newTestService() (*Service, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	return NewService(store, notifier), store, notifier
}

func addAdmin(store *fakeStore, name string) *domain.User {
	return store.addUser(&domain.User{
		FullName: name,
		Email:    name + "@example.com",
		Role:     domain.RoleAdmin,
	})
}

func addMember(store *fakeStore, name string) *domain.User {
	return store.addUser(&domain.User{
		FullName: name,
		Email:    name + "@example.com",
		Role:     domain.RoleTeam,
	})
}

func TestReconcileAssignmentParentNotFound(t *testing.T) {
	service, store, _ := newTestService()
	admin := addAdmin(store, "admin")
	member := addMember(store, "member")

	affected, err := service.ReconcileAssignment(domain.ParentProject, 999, []int64{member.ID}, time.Now().Add(time.Hour), admin)
	require.ErrorIs(t, err, ErrParentNotFound)
	assert.Zero(t, affected)
	assert.Empty(t, store.assignments)
}

func TestReconcileAssignmentFiltersNonTeamUsers(t *testing.T) {
	service, store, notifier := newTestService()
	admin := addAdmin(store, "admin")
	otherAdmin := addAdmin(store, "otherAdmin")
	member := addMember(store, "member")
	parent := store.addParent(&domain.Parent{Kind: domain.ParentProject, Name: "Launch"})

	deadline := time.Now().Add(24 * time.Hour)

	// 入参中混入了管理员和不存在的用户，只有团队成员会被分配
	affected, err := service.ReconcileAssignment(domain.ParentProject, parent.ID, []int64{member.ID, otherAdmin.ID, 12345}, deadline, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	require.Len(t, store.assignmentsFor(domain.ParentProject, parent.ID, member.ID), 1)
	assert.Empty(t, store.assignmentsFor(domain.ParentProject, parent.ID, otherAdmin.ID))

	notifications := store.notificationsFor(member.ID)
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.NotificationAssignedToProject, notifications[0].Type)
	assert.Contains(t, notifications[0].Message, "Launch")

	require.Len(t, notifier.pushes, 1)
	require.Len(t, notifier.emails, 1)
	assert.Equal(t, member.Email, notifier.emails[0].To)
}

func TestReconcileAssignmentNoValidAssignees(t *testing.T) {
	service, store, notifier := newTestService()
	admin := addAdmin(store, "admin")
	otherAdmin := addAdmin(store, "otherAdmin")
	parent := store.addParent(&domain.Parent{Kind: domain.ParentTask, Name: "Cleanup"})

	affected, err := service.ReconcileAssignment(domain.ParentTask, parent.ID, []int64{otherAdmin.ID, 777}, time.Now().Add(time.Hour), admin)
	require.ErrorIs(t, err, ErrNoValidAssignees)
	assert.Zero(t, affected)
	assert.Empty(t, store.assignments)
	assert.Empty(t, notifier.pushes)
	assert.Empty(t, notifier.emails)
}

func TestReconcileAssignmentIsIdempotent(t *testing.T) {
	service, store, _ := newTestService()
	admin := addAdmin(store, "admin")
	member := addMember(store, "member")
	parent := store.addParent(&domain.Parent{Kind: domain.ParentProject, Name: "Launch"})

	deadline := time.Now().Add(24 * time.Hour)

	for i := 0; i < 2; i++ {
		affected, err := service.ReconcileAssignment(domain.ParentProject, parent.ID, []int64{member.ID}, deadline, admin)
		require.NoError(t, err)
		assert.Equal(t, 1, affected)

		// 每次调用之后都恰好只有一条分配记录和一条分配通知，不会累积
		assert.Len(t, store.assignmentsFor(domain.ParentProject, parent.ID, member.ID), 1)
		assert.Len(t, store.notificationsFor(member.ID), 1)
	}
}

func TestReconcileAssignmentReplacesDeadline(t *testing.T) {
	service, store, _ := newTestService()
	admin := addAdmin(store, "admin")
	member := addMember(store, "member")
	parent := store.addParent(&domain.Parent{Kind: domain.ParentProject, Name: "Launch"})

	first := time.Now().Add(24 * time.Hour)
	_, err := service.ReconcileAssignment(domain.ParentProject, parent.ID, []int64{member.ID}, first, admin)
	require.NoError(t, err)

	oldAssignment := store.assignmentsFor(domain.ParentProject, parent.ID, member.ID)[0]
	oldNotification := store.notificationsFor(member.ID)[0]

	second := time.Now().Add(48 * time.Hour)
	_, err = service.ReconcileAssignment(domain.ParentProject, parent.ID, []int64{member.ID}, second, admin)
	require.NoError(t, err)

	assignments := store.assignmentsFor(domain.ParentProject, parent.ID, member.ID)
	require.Len(t, assignments, 1)
	assert.True(t, assignments[0].Deadline.Equal(second))
	// 重新分配会重建记录，而不是原地更新
	assert.NotEqual(t, oldAssignment.ID, assignments[0].ID)

	notifications := store.notificationsFor(member.ID)
	require.Len(t, notifications, 1)
	assert.NotEqual(t, oldNotification.ID, notifications[0].ID)
}

func TestReconcileAssignmentKeepsUntouchedAssignments(t *testing.T) {
	service, store, _ := newTestService()
	admin := addAdmin(store, "admin")
	first := addMember(store, "first")
	second := addMember(store, "second")
	parent := store.addParent(&domain.Parent{Kind: domain.ParentProject, Name: "Launch"})

	_, err := service.ReconcileAssignment(domain.ParentProject, parent.ID, []int64{first.ID}, time.Now().Add(time.Hour), admin)
	require.NoError(t, err)

	existing := store.assignmentsFor(domain.ParentProject, parent.ID, first.ID)[0]

	_, err = service.ReconcileAssignment(domain.ParentProject, parent.ID, []int64{second.ID}, time.Now().Add(2*time.Hour), admin)
	require.NoError(t, err)

	// 没有出现在入参中的既有分配保持原样
	unchanged := store.assignmentsFor(domain.ParentProject, parent.ID, first.ID)
	require.Len(t, unchanged, 1)
	assert.Equal(t, existing.ID, unchanged[0].ID)
	assert.Len(t, store.assignmentsFor(domain.ParentProject, parent.ID, second.ID), 1)
}

func TestReconcileAssignmentSurvivesNotifierFailure(t *testing.T) {
	service, store, notifier := newTestService()
	notifier.failing = true

	admin := addAdmin(store, "admin")
	member := addMember(store, "member")
	parent := store.addParent(&domain.Parent{Kind: domain.ParentTask, Name: "Cleanup"})

	affected, err := service.ReconcileAssignment(domain.ParentTask, parent.ID, []int64{member.ID}, time.Now().Add(time.Hour), admin)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
	assert.Len(t, store.assignmentsFor(domain.ParentTask, parent.ID, member.ID), 1)
}

func TestReconcileAssignmentStoreFailure(t *testing.T) {
	service, store, notifier := newTestService()
	store.replaceErr = errors.New("connection reset")

	admin := addAdmin(store, "admin")
	member := addMember(store, "member")
	parent := store.addParent(&domain.Parent{Kind: domain.ParentProject, Name: "Launch"})

	_, err := service.ReconcileAssignment(domain.ParentProject, parent.ID, []int64{member.ID}, time.Now().Add(time.Hour), admin)
	require.Error(t, err)

	// 持久化失败时不派发任何通知
	assert.Empty(t, notifier.pushes)
	assert.Empty(t, notifier.emails)
}

func TestReconcileAssignmentDeduplicatesInput(t *testing.T) {
	service, store, notifier := newTestService()
	admin := addAdmin(store, "admin")
	member := addMember(store, "member")
	parent := store.addParent(&domain.Parent{Kind: domain.ParentProject, Name: "Launch"})

	affected, err := service.ReconcileAssignment(domain.ParentProject, parent.ID, []int64{member.ID, member.ID, member.ID}, time.Now().Add(time.Hour), admin)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
	assert.Len(t, store.assignmentsFor(domain.ParentProject, parent.ID, member.ID), 1)
	assert.Len(t, notifier.emails, 1)
}
