package domain

import "time"

type NotificationType string

const (
	NotificationAssignedToProject   NotificationType = "assigned_to_project"
	NotificationAssignedToTask      NotificationType = "assigned_to_task"
	NotificationCompletedProject    NotificationType = "completed_project"
	NotificationCompletedTask       NotificationType = "completed_task"
	NotificationDeadlineApproaching NotificationType = "deadline_approaching"
)

type Notification struct {
	ID         int64            `json:"id"`
	UserID     int64            `json:"userID"`
	Type       NotificationType `json:"type"`
	Message    string           `json:"message"`
	ParentKind *ParentKind      `json:"parentKind"`
	ParentID   *int64           `json:"parentID"`
	Read       bool             `json:"read"`
	CreatedAt  time.Time        `json:"createdAt"`
}
