package model

import "time"

// User owns templates and task instances. Authentication resolves a user
// from an API token; every row in the system is scoped by UserID.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	APIToken  string    `gorm:"uniqueIndex" json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
