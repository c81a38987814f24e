package model

import (
	"time"

	"github.com/google/uuid"
)

type Feedback struct {
	Id        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    *uuid.UUID `gorm:"type:uuid;index"`
	Sentiment string     `gorm:"type:varchar(20);not null"`
	Message   string     `gorm:"type:text;not null"`
	PageURL   string     `gorm:"type:text"`
	UserAgent string     `gorm:"type:text"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

func (Feedback) TableName() string {
	return "feedback"
}
