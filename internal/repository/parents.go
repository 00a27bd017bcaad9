package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func (r *Repository) CreateParent(parent *domain.Parent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, details, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`, parentTables[parent.Kind])

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{parent.Name, parent.Details, parent.AuthorID}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&parent.ID, &parent.CreatedAt, &parent.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetParentByID(kind domain.ParentKind, id int64) (*domain.Parent, error) {
	query := fmt.Sprintf(`
		SELECT name, details, author_id, created_at, version
		FROM %s WHERE id = $1
	`, parentTables[kind])

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	parent := &domain.Parent{
		ID:   id,
		Kind: kind,
	}

	dst := []any{&parent.Name, &parent.Details, &parent.AuthorID, &parent.CreatedAt, &parent.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return parent, nil
}

func (r *Repository) CheckParentNameIfExists(kind domain.ParentKind, name string) (bool, error) {
	isExists := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE name = $1)
	`, parentTables[kind])
	if err := r.dbpool.QueryRowContext(ctx, query, name).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}

func (r *Repository) GetAllParents(kind domain.ParentKind) ([]*domain.Parent, error) {
	query := fmt.Sprintf(`
		SELECT id, name, details, author_id, created_at, version FROM %s
	`, parentTables[kind])

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parents := make([]*domain.Parent, 0)
	for rows.Next() {
		parent := &domain.Parent{
			Kind: kind,
		}
		dst := []any{&parent.ID, &parent.Name, &parent.Details, &parent.AuthorID, &parent.CreatedAt, &parent.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		parents = append(parents, parent)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return parents, nil
}

// GetParentAssigneeIDs 返回某一类父实体下所有的分配关系，按父实体 ID 分组
func (r *Repository) GetParentAssigneeIDs(kind domain.ParentKind) (map[int64][]int64, error) {
	query := `
		SELECT parent_id, user_id FROM assignments WHERE parent_kind = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignees := make(map[int64][]int64)
	for rows.Next() {
		var parentID, userID int64
		if err := rows.Scan(&parentID, &userID); err != nil {
			return nil, err
		}
		assignees[parentID] = append(assignees[parentID], userID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignees, nil
}

func (r *Repository) UpdateParent(parent *domain.Parent) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET
			name = $1,
			details = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`, parentTables[parent.Kind])

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{parent.Name, parent.Details, parent.ID, parent.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&parent.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteParent(kind domain.ParentKind, id int64) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1
	`, parentTables[kind])

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
