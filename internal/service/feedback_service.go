package service

import (
	"context"
	"time"

	"ai-research-chat-be/internal/dto"
	"ai-research-chat-be/internal/entity"
	"ai-research-chat-be/internal/pkg/logger"
	"ai-research-chat-be/internal/pkg/mailer"
	"ai-research-chat-be/internal/repository/specification"
	"ai-research-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IFeedbackService interface {
	Create(ctx context.Context, userId *uuid.UUID, userAgent string, req *dto.CreateFeedbackRequest) (*dto.CreateFeedbackResponse, error)
	GetAll(ctx context.Context, limit, offset int) ([]*dto.GetAllFeedbackResponse, error)
}

type feedbackService struct {
	uowFactory   unitofwork.RepositoryFactory
	emailService mailer.IEmailService
	adminEmail   string
	logger       logger.ILogger
}

func NewFeedbackService(
	uowFactory unitofwork.RepositoryFactory,
	emailService mailer.IEmailService,
	adminEmail string,
	sysLogger logger.ILogger,
) IFeedbackService {
	return &feedbackService{
		uowFactory:   uowFactory,
		emailService: emailService,
		adminEmail:   adminEmail,
		logger:       sysLogger,
	}
}

func (s *feedbackService) Create(ctx context.Context, userId *uuid.UUID, userAgent string, req *dto.CreateFeedbackRequest) (*dto.CreateFeedbackResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	feedback := entity.Feedback{
		Id:        uuid.New(),
		UserId:    userId,
		Sentiment: req.Sentiment,
		Message:   req.Message,
		PageURL:   req.PageURL,
		UserAgent: userAgent,
		CreatedAt: time.Now(),
	}
	if err := uow.FeedbackRepository().Create(ctx, &feedback); err != nil {
		return nil, err
	}

	// Mail is auxiliary; the feedback row is already durable.
	if s.adminEmail != "" {
		go func() {
			if err := s.emailService.SendFeedbackAlert(s.adminEmail, feedback.Sentiment, feedback.Message, feedback.PageURL); err != nil {
				s.logger.Warn("Feedback", "Failed to send admin alert", map[string]interface{}{
					"feedback_id": feedback.Id,
					"error":       err.Error(),
				})
			}
		}()
	}

	return &dto.CreateFeedbackResponse{Id: feedback.Id}, nil
}

func (s *feedbackService) GetAll(ctx context.Context, limit, offset int) ([]*dto.GetAllFeedbackResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	feedbacks, err := uow.FeedbackRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.GetAllFeedbackResponse, 0, len(feedbacks))
	for _, f := range feedbacks {
		result = append(result, &dto.GetAllFeedbackResponse{
			Id:        f.Id,
			UserId:    f.UserId,
			Sentiment: f.Sentiment,
			Message:   f.Message,
			PageURL:   f.PageURL,
			UserAgent: f.UserAgent,
			CreatedAt: f.CreatedAt,
		})
	}
	return result, nil
}
