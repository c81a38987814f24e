package entity

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	Id         uuid.UUID
	UserId     uuid.UUID
	Title      string
	Visibility string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
