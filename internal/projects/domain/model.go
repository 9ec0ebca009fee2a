package domain

import (
	"errors"
	"time"
)

// Project is an advisory grouping for diagrams, not an ownership
// boundary. Diagrams stay owned by their creating account.
type Project struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

var (
	ErrNotFound     = errors.New("project not found")
	ErrUnauthorized = errors.New("you do not have access to this project")
)
