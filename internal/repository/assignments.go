package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

// ReplaceAssignments 在一个事务中替换某个父实体上给定用户的分配记录和对应的通知记录。
// 重新分配会重建记录，旧的分配记录和尚未阅读的分配通知会一并删除，保证每个
// (parent, user) 至多只有一条分配记录和一条未读的分配通知。
func (r *Repository) ReplaceAssignments(assignments []*domain.Assignment, notifications []*domain.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, assignment := range assignments {
		// 先删除旧的分配记录
		query := `
			DELETE FROM assignments
			WHERE parent_kind = $1 AND parent_id = $2 AND user_id = $3
		`
		if _, err := tx.ExecContext(ctx, query, assignment.ParentKind, assignment.ParentID, assignment.UserID); err != nil {
			return err
		}

		// 旧截止时间的到期提醒也要删掉，否则新的截止时间不会再次提醒
		query = `
			DELETE FROM notifications
			WHERE user_id = $1 AND type = $2 AND parent_kind = $3 AND parent_id = $4
		`
		if _, err := tx.ExecContext(ctx, query, assignment.UserID, domain.NotificationDeadlineApproaching, assignment.ParentKind, assignment.ParentID); err != nil {
			return err
		}

		query = `
			INSERT INTO assignments (parent_kind, parent_id, user_id, assigned_by_id, deadline)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, completed, created_at, version
		`

		args := []any{assignment.ParentKind, assignment.ParentID, assignment.UserID, assignment.AssignedByID, assignment.Deadline}
		dst := []any{&assignment.ID, &assignment.Completed, &assignment.CreatedAt, &assignment.Version}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
			return err
		}
	}

	for _, notification := range notifications {
		// 删除之前分配产生的通知，避免同一个分配堆积多条未读通知
		query := `
			DELETE FROM notifications
			WHERE user_id = $1 AND type = $2 AND parent_kind = $3 AND parent_id = $4
		`
		if _, err := tx.ExecContext(ctx, query, notification.UserID, notification.Type, notification.ParentKind, notification.ParentID); err != nil {
			return err
		}

		query = `
			INSERT INTO notifications (user_id, type, message, parent_kind, parent_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, read, created_at
		`

		args := []any{notification.UserID, notification.Type, notification.Message, notification.ParentKind, notification.ParentID}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&notification.ID, &notification.Read, &notification.CreatedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetAssignment(kind domain.ParentKind, parentID int64, userID int64) (*domain.Assignment, error) {
	query := `
		SELECT id, assigned_by_id, deadline, completed, created_at, version
		FROM assignments
		WHERE parent_kind = $1 AND parent_id = $2 AND user_id = $3
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	assignment := &domain.Assignment{
		ParentKind: kind,
		ParentID:   parentID,
		UserID:     userID,
	}

	dst := []any{&assignment.ID, &assignment.AssignedByID, &assignment.Deadline, &assignment.Completed, &assignment.CreatedAt, &assignment.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, kind, parentID, userID).Scan(dst...); err != nil {
		return nil, err
	}

	return assignment, nil
}

func (r *Repository) CompleteAssignment(assignment *domain.Assignment) error {
	query := `
		UPDATE assignments
		SET
			completed = true,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, assignment.ID, assignment.Version).Scan(&assignment.Version); err != nil {
		return err
	}

	assignment.Completed = true

	return nil
}

// GetAssignmentViewsByUser 返回某个成员名下某一类父实体的分配情况，带上父实体和分配人的概要信息
func (r *Repository) GetAssignmentViewsByUser(kind domain.ParentKind, userID int64) ([]*domain.AssignmentView, error) {
	query := `
		SELECT a.id, a.parent_id, a.assigned_by_id, a.deadline, a.completed, a.created_at, a.version,
			p.name, p.details, u.full_name
		FROM assignments a
		JOIN ` + parentTables[kind] + ` p ON a.parent_id = p.id
		JOIN users u ON a.assigned_by_id = u.id
		WHERE a.parent_kind = $1 AND a.user_id = $2
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, kind, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]*domain.AssignmentView, 0)
	for rows.Next() {
		view := &domain.AssignmentView{}
		view.ParentKind = kind
		view.UserID = userID
		dst := []any{
			&view.ID,
			&view.ParentID,
			&view.AssignedByID,
			&view.Deadline,
			&view.Completed,
			&view.CreatedAt,
			&view.Version,
			&view.ParentName,
			&view.ParentDetails,
			&view.AssignedByName,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return views, nil
}

// GetExpiringAssignments 返回截止时间落在给定区间内、未完成且还没有提醒过的分配记录
func (r *Repository) GetExpiringAssignments(from time.Time, to time.Time) ([]*domain.Assignment, error) {
	query := `
		SELECT a.id, a.parent_kind, a.parent_id, a.user_id, a.assigned_by_id, a.deadline, a.completed, a.created_at, a.version
		FROM assignments a
		WHERE a.completed = false
			AND a.deadline >= $1 AND a.deadline < $2
			AND NOT EXISTS (
				SELECT 1 FROM notifications n
				WHERE n.type = $3
					AND n.user_id = a.user_id
					AND n.parent_kind = a.parent_kind
					AND n.parent_id = a.parent_id
			)
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, from, to, domain.NotificationDeadlineApproaching)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		assignment := &domain.Assignment{}
		dst := []any{
			&assignment.ID,
			&assignment.ParentKind,
			&assignment.ParentID,
			&assignment.UserID,
			&assignment.AssignedByID,
			&assignment.Deadline,
			&assignment.Completed,
			&assignment.CreatedAt,
			&assignment.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}
