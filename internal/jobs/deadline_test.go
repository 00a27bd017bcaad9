package jobs

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

type fakeStore struct {
	expiring      []*domain.Assignment
	parents       map[string]*domain.Parent
	users         map[int64]*domain.User
	notifications []*domain.Notification

	expiringErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		parents: make(map[string]*domain.Parent),
		users:   make(map[int64]*domain.User),
	}
}

func parentKey(kind domain.ParentKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func (s *fakeStore) GetExpiringAssignments(from time.Time, to time.Time) ([]*domain.Assignment, error) {
	if s.expiringErr != nil {
		return nil, s.expiringErr
	}

	matched := make([]*domain.Assignment, 0)
	for _, assignment := range s.expiring {
		if assignment.Deadline.After(from) && assignment.Deadline.Before(to) {
			matched = append(matched, assignment)
		}
	}
	return matched, nil
}

func (s *fakeStore) GetParentByID(kind domain.ParentKind, id int64) (*domain.Parent, error) {
	parent, ok := s.parents[parentKey(kind, id)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return parent, nil
}

func (s *fakeStore) GetUserByID(id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *fakeStore) CreateNotification(notification *domain.Notification) error {
	notification.ID = int64(len(s.notifications) + 1)
	s.notifications = append(s.notifications, notification)
	return nil
}

type fakeNotifier struct {
	failing bool

	pushes []*domain.Notification
	emails []domain.MailMessage
}

func (n *fakeNotifier) PushIfConnected(user *domain.User, notification *domain.Notification) error {
	if n.failing {
		return errors.New("push unavailable")
	}
	n.pushes = append(n.pushes, notification)
	return nil
}

func (n *fakeNotifier) SendEmail(message domain.MailMessage) error {
	if n.failing {
		return errors.New("email unavailable")
	}
	n.emails = append(n.emails, message)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.DeadlineScanner.Interval = 300
	cfg.DeadlineScanner.LookAhead = 24
	return cfg
}

func TestScanNotifiesExpiringAssignments(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	scanner := NewDeadlineScanner(testConfig(), store, notifier)

	user := &domain.User{ID: 1, FullName: "张三", Email: "zhangsan@example.com", Role: domain.RoleTeam}
	store.users[user.ID] = user
	parent := &domain.Parent{ID: 10, Kind: domain.ParentProject, Name: "Launch"}
	store.parents[parentKey(parent.Kind, parent.ID)] = parent

	now := time.Now()
	store.expiring = []*domain.Assignment{
		{ID: 100, ParentKind: domain.ParentProject, ParentID: 10, UserID: 1, Deadline: now.Add(6 * time.Hour)},
		// 超出提前量窗口的分配不会被提醒
		{ID: 101, ParentKind: domain.ParentProject, ParentID: 10, UserID: 1, Deadline: now.Add(72 * time.Hour)},
	}

	scanner.Scan(now)

	require.Len(t, store.notifications, 1)
	assert.Equal(t, domain.NotificationDeadlineApproaching, store.notifications[0].Type)
	assert.Contains(t, store.notifications[0].Message, "Launch")

	require.Len(t, notifier.emails, 1)
	assert.Equal(t, "deadline", notifier.emails[0].Type)
	assert.Equal(t, user.Email, notifier.emails[0].To)
	assert.Len(t, notifier.pushes, 1)
}

func TestScanSkipsBrokenAssignments(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	scanner := NewDeadlineScanner(testConfig(), store, notifier)

	user := &domain.User{ID: 1, FullName: "张三", Email: "zhangsan@example.com"}
	store.users[user.ID] = user
	parent := &domain.Parent{ID: 10, Kind: domain.ParentTask, Name: "Cleanup"}
	store.parents[parentKey(parent.Kind, parent.ID)] = parent

	now := time.Now()
	store.expiring = []*domain.Assignment{
		// 父实体已被删除的分配会被跳过，不会影响后面的分配
		{ID: 100, ParentKind: domain.ParentTask, ParentID: 999, UserID: 1, Deadline: now.Add(time.Hour)},
		{ID: 101, ParentKind: domain.ParentTask, ParentID: 10, UserID: 1, Deadline: now.Add(2 * time.Hour)},
	}

	scanner.Scan(now)

	require.Len(t, store.notifications, 1)
	assert.Contains(t, store.notifications[0].Message, "Cleanup")
}

func TestScanToleratesNotifierFailure(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{failing: true}
	scanner := NewDeadlineScanner(testConfig(), store, notifier)

	user := &domain.User{ID: 1, FullName: "张三", Email: "zhangsan@example.com"}
	store.users[user.ID] = user
	parent := &domain.Parent{ID: 10, Kind: domain.ParentProject, Name: "Launch"}
	store.parents[parentKey(parent.Kind, parent.ID)] = parent

	now := time.Now()
	store.expiring = []*domain.Assignment{
		{ID: 100, ParentKind: domain.ParentProject, ParentID: 10, UserID: 1, Deadline: now.Add(time.Hour)},
	}

	scanner.Scan(now)

	// 派发失败不影响提醒通知的落库
	assert.Len(t, store.notifications, 1)
}

func TestScanStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.expiringErr = errors.New("connection reset")
	notifier := &fakeNotifier{}
	scanner := NewDeadlineScanner(testConfig(), store, notifier)

	scanner.Scan(time.Now())

	assert.Empty(t, store.notifications)
	assert.Empty(t, notifier.pushes)
}
