package entity

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	Id        uuid.UUID
	ChatId    uuid.UUID
	Role      string
	Metadata  map[string]interface{}
	Parts     []Part
	CreatedAt time.Time
	UpdatedAt *time.Time
}
