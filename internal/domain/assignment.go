package domain

import "time"

type Assignment struct {
	ID           int64      `json:"id"`
	ParentKind   ParentKind `json:"parentKind"`
	ParentID     int64      `json:"parentID"`
	UserID       int64      `json:"userID"`
	AssignedByID int64      `json:"assignedByID"`
	Deadline     time.Time  `json:"deadline"`
	Completed    bool       `json:"completed"`
	CreatedAt    time.Time  `json:"createdAt"`
	Version      int32      `json:"-"`
}

// AssignmentView 是成员查询自己的分配情况时返回的结构，带上了父实体和分配人的概要信息
type AssignmentView struct {
	Assignment
	ParentName     string `json:"parentName"`
	ParentDetails  string `json:"parentDetails"`
	AssignedByName string `json:"assignedByName"`
}
