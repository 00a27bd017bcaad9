package domain

import "time"

type ParentKind string

const (
	ParentProject ParentKind = "project"
	ParentTask    ParentKind = "task"
)

// Parent 是可以被分配给成员的实体，项目和任务的结构完全相同，只是存放在不同的表中
type Parent struct {
	ID        int64      `json:"id"`
	Kind      ParentKind `json:"kind"`
	Name      string     `json:"name"`
	Details   string     `json:"details"`
	AuthorID  int64      `json:"authorID"`
	CreatedAt time.Time  `json:"createdAt"`
	Version   int32      `json:"-"`
}
