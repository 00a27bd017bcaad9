package workflow

import (
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

var (
	ErrParentNotFound   = errors.New("项目或任务不存在")
	ErrNoValidAssignees = errors.New("没有可分配的团队成员")
	ErrNotAssigned      = errors.New("该成员没有被分配到这个项目或任务")
)

// Store 是工作流依赖的持久化操作的子集，由 repository 实现
type Store interface {
	GetParentByID(kind domain.ParentKind, id int64) (*domain.Parent, error)
	GetUsersByIDs(ids []int64) ([]*domain.User, error)
	GetUserByID(id int64) (*domain.User, error)
	ReplaceAssignments(assignments []*domain.Assignment, notifications []*domain.Notification) error
	GetAssignment(kind domain.ParentKind, parentID int64, userID int64) (*domain.Assignment, error)
	CompleteAssignment(assignment *domain.Assignment) error
	CreateNotification(notification *domain.Notification) error
}

// Notifier 的两个通道都是尽力而为的：推送在用户没有在线连接时直接跳过，
// 邮件投递到消息队列。两者的失败都只会被记录，不会影响工作流本身的结果。
type Notifier interface {
	PushIfConnected(user *domain.User, notification *domain.Notification) error
	SendEmail(message domain.MailMessage) error
}

type Service struct {
	store    Store
	notifier Notifier
}

func NewService(store Store, notifier Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
	}
}

var parentKindLabels = map[domain.ParentKind]string{
	domain.ParentProject: "项目",
	domain.ParentTask:    "任务",
}

var assignedNotificationTypes = map[domain.ParentKind]domain.NotificationType{
	domain.ParentProject: domain.NotificationAssignedToProject,
	domain.ParentTask:    domain.NotificationAssignedToTask,
}

var completedNotificationTypes = map[domain.ParentKind]domain.NotificationType{
	domain.ParentProject: domain.NotificationCompletedProject,
	domain.ParentTask:    domain.NotificationCompletedTask,
}

const deadlineLayout = "2006-01-02 15:04"

func formatDeadline(deadline time.Time) string {
	return deadline.Local().Format(deadlineLayout)
}
