package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateFeedbackRequest struct {
	Sentiment string `json:"sentiment" validate:"required,oneof=positive negative neutral"`
	Message   string `json:"message" validate:"required,max=4000"`
	PageURL   string `json:"page_url" validate:"omitempty,url"`
}

type CreateFeedbackResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllFeedbackResponse struct {
	Id        uuid.UUID  `json:"id"`
	UserId    *uuid.UUID `json:"user_id,omitempty"`
	Sentiment string     `json:"sentiment"`
	Message   string     `json:"message"`
	PageURL   string     `json:"page_url,omitempty"`
	UserAgent string     `json:"user_agent,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
