package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleGuest    Role = "guest"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        string    `bun:"id,pk" json:"id"`
	Username  string    `bun:"username,notnull" json:"username"`
	Email     string    `bun:"email,notnull" json:"email"`
	Role      Role      `bun:"role,notnull" json:"role"`
	CompanyID string    `bun:"company_id" json:"company_id"`
	CreatedAt time.Time `bun:"created_at,nullzero" json:"created_at"`
}
