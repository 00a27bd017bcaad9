package repository

import (
	"database/sql"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

// 项目和任务的表结构完全一致，各个方法通过 ParentKind 选择具体的表
var parentTables = map[domain.ParentKind]string{
	domain.ParentProject: "projects",
	domain.ParentTask:    "tasks",
}

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}
