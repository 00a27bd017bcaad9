package workflow

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

// fakeStore 在内存中模拟 repository 的行为，包括 sql.ErrNoRows 的语义
type fakeStore struct {
	parents       map[string]*domain.Parent
	users         map[int64]*domain.User
	assignments   []*domain.Assignment
	notifications []*domain.Notification

	nextID     int64
	replaceErr error
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

func (s *fakeStore) addParent(parent *domain.Parent) *domain.Parent {
	s.nextID++
	parent.ID = s.nextID
	s.parents[parentKey(parent.Kind, parent.ID)] = parent
	return parent
}

func (s *fakeStore) addUser(user *domain.User) *domain.User {
	s.nextID++
	user.ID = s.nextID
	s.users[user.ID] = user
	return user
}

func (s *fakeStore) GetParentByID(kind domain.ParentKind, id int64) (*domain.Parent, error) {
	parent, ok := s.parents[parentKey(kind, id)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return parent, nil
}

func (s *fakeStore) GetUsersByIDs(ids []int64) ([]*domain.User, error) {
	users := make([]*domain.User, 0)
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (s *fakeStore) GetUserByID(id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *fakeStore) ReplaceAssignments(assignments []*domain.Assignment, notifications []*domain.Notification) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}

	for _, assignment := range assignments {
		kept := s.assignments[:0]
		for _, existing := range s.assignments {
			if existing.ParentKind == assignment.ParentKind && existing.ParentID == assignment.ParentID && existing.UserID == assignment.UserID {
				continue
			}
			kept = append(kept, existing)
		}
		s.assignments = kept

		s.nextID++
		assignment.ID = s.nextID
		assignment.CreatedAt = time.Now()
		s.assignments = append(s.assignments, assignment)
	}

	for _, notification := range notifications {
		kept := s.notifications[:0]
		for _, existing := range s.notifications {
			if existing.UserID == notification.UserID && existing.Type == notification.Type &&
				existing.ParentKind != nil && notification.ParentKind != nil && *existing.ParentKind == *notification.ParentKind &&
				existing.ParentID != nil && notification.ParentID != nil && *existing.ParentID == *notification.ParentID {
				continue
			}
			kept = append(kept, existing)
		}
		s.notifications = kept

		s.nextID++
		notification.ID = s.nextID
		notification.CreatedAt = time.Now()
		s.notifications = append(s.notifications, notification)
	}

	return nil
}

func (s *fakeStore) GetAssignment(kind domain.ParentKind, parentID int64, userID int64) (*domain.Assignment, error) {
	for _, assignment := range s.assignments {
		if assignment.ParentKind == kind && assignment.ParentID == parentID && assignment.UserID == userID {
			return assignment, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) CompleteAssignment(assignment *domain.Assignment) error {
	assignment.Completed = true
	assignment.Version++
	return nil
}

func (s *fakeStore) CreateNotification(notification *domain.Notification) error {
	s.nextID++
	notification.ID = s.nextID
	notification.CreatedAt = time.Now()
	s.notifications = append(s.notifications, notification)
	return nil
}

func (s *fakeStore) assignmentsFor(kind domain.ParentKind, parentID int64, userID int64) []*domain.Assignment {
	matched := make([]*domain.Assignment, 0)
	for _, assignment := range s.assignments {
		if assignment.ParentKind == kind && assignment.ParentID == parentID && assignment.UserID == userID {
			matched = append(matched, assignment)
		}
	}
	return matched
}

func (s *fakeStore) notificationsFor(userID int64) []*domain.Notification {
	matched := make([]*domain.Notification, 0)
	for _, notification := range s.notifications {
		if notification.UserID == userID {
			matched = append(matched, notification)
		}
	}
	return matched
}

// fakeNotifier 记录所有的派发，failing 为 true 时两个通道都返回错误
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
