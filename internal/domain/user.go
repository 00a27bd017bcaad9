package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleTeam  Role = "team"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	SocketID     *string   `json:"socketID"` // 最近一次实时连接的标识，可能已经失效
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}
