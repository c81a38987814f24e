package entity

import (
	"time"

	"github.com/google/uuid"
)

type Feedback struct {
	Id        uuid.UUID
	UserId    *uuid.UUID
	Sentiment string
	Message   string
	PageURL   string
	UserAgent string
	CreatedAt time.Time
}
