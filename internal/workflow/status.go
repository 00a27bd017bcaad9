package workflow

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

// CompleteAssignment 由被分配人把自己名下的分配标记为已完成，并通知当初的分配人。
// 重复调用是幂等的：已完成的分配直接返回成功，不会再次通知。
func (s *Service) CompleteAssignment(kind domain.ParentKind, parentID int64, assignee *domain.User) error {
	assignment, err := s.store.GetAssignment(kind, parentID, assignee.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrNotAssigned
		default:
			return err
		}
	}

	if assignment.Completed {
		return nil
	}

	if err := s.store.CompleteAssignment(assignment); err != nil {
		return err
	}

	// 状态已经落库，之后的所有步骤都只是尽力而为
	parent, err := s.store.GetParentByID(kind, parentID)
	if err != nil {
		slog.Error("完成通知无法获取父实体", "kind", kind, "parentID", parentID, "error", err)
		return nil
	}

	assigner, err := s.store.GetUserByID(assignment.AssignedByID)
	if err != nil {
		slog.Error("完成通知无法获取分配人", "assignedByID", assignment.AssignedByID, "error", err)
		return nil
	}

	notification := &domain.Notification{
		UserID:     assigner.ID,
		Type:       completedNotificationTypes[kind],
		Message:    fmt.Sprintf("%s 已完成%s：%s", assignee.FullName, parentKindLabels[kind], parent.Name),
		ParentKind: &parent.Kind,
		ParentID:   &parent.ID,
	}
	if err := s.store.CreateNotification(notification); err != nil {
		slog.Error("完成通知写入失败", "userID", assigner.ID, "error", err)
		return nil
	}

	s.dispatch(assigner, notification, domain.MailMessage{
		Type: "completed",
		To:   assigner.Email,
		Data: domain.CompletedMailData{
			FullName:     assigner.FullName,
			ParentKind:   parentKindLabels[kind],
			ParentName:   parent.Name,
			AssigneeName: assignee.FullName,
		},
	})

	return nil
}
