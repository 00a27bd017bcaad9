package workflow

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

// ReconcileAssignment 把给定父实体上这批用户的分配记录替换为新的分配。
//
// 入参中的用户会先被过滤：只保留数据库中真实存在、角色为 team 的用户。对过滤后
// 的每个用户，旧的分配记录和分配通知会被删除并重建（新的 ID、创建时间和截止时间），
// 没有出现在入参中的既有分配不受影响。所有持久化写入在一个事务中提交，
// 提交成功后才会逐个派发通知。返回受影响的用户数。
func (s *Service) ReconcileAssignment(kind domain.ParentKind, parentID int64, userIDs []int64, deadline time.Time, assignedBy *domain.User) (int, error) {
	parent, err := s.store.GetParentByID(kind, parentID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return 0, ErrParentNotFound
		default:
			return 0, err
		}
	}

	users, err := s.store.GetUsersByIDs(dedupeIDs(userIDs))
	if err != nil {
		return 0, err
	}

	// 只有 team 角色的用户可以被分配，管理员和不存在的用户直接忽略
	validUsers := make([]*domain.User, 0, len(users))
	for _, user := range users {
		if user.Role == domain.RoleTeam {
			validUsers = append(validUsers, user)
		}
	}

	if len(validUsers) == 0 {
		return 0, ErrNoValidAssignees
	}

	assignments := make([]*domain.Assignment, 0, len(validUsers))
	notifications := make([]*domain.Notification, 0, len(validUsers))
	for _, user := range validUsers {
		assignments = append(assignments, &domain.Assignment{
			ParentKind:   kind,
			ParentID:     parentID,
			UserID:       user.ID,
			AssignedByID: assignedBy.ID,
			Deadline:     deadline,
		})
		notifications = append(notifications, &domain.Notification{
			UserID:     user.ID,
			Type:       assignedNotificationTypes[kind],
			Message:    fmt.Sprintf("你被分配了%s：%s", parentKindLabels[kind], parent.Name),
			ParentKind: &parent.Kind,
			ParentID:   &parent.ID,
		})
	}

	if err := s.store.ReplaceAssignments(assignments, notifications); err != nil {
		return 0, err
	}

	// 事务提交之后才开始派发，任何派发失败都不影响本次调用的结果
	for i, user := range validUsers {
		s.dispatch(user, notifications[i], domain.MailMessage{
			Type: "assigned",
			To:   user.Email,
			Data: domain.AssignedMailData{
				FullName:       user.FullName,
				ParentKind:     parentKindLabels[kind],
				ParentName:     parent.Name,
				AssignedByName: assignedBy.FullName,
				Deadline:       formatDeadline(deadline),
			},
		})
	}

	return len(validUsers), nil
}

func (s *Service) dispatch(user *domain.User, notification *domain.Notification, message domain.MailMessage) {
	if err := s.notifier.PushIfConnected(user, notification); err != nil {
		slog.Error("实时推送失败", "userID", user.ID, "error", err)
	}
	if err := s.notifier.SendEmail(message); err != nil {
		slog.Error("通知邮件发送失败", "userID", user.ID, "error", err)
	}
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	deduped := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return deduped
}
