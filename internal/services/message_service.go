package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
	appErr "skillswap/pkg/errors"

	"go.uber.org/zap"
)

// MessageService manages platform messages and their read receipts.
type MessageService struct {
	messages     repositories.MessageRepository
	activeWindow time.Duration
	locks        *keyedMutex
	log          *zap.Logger
}

// NewMessageService creates a new MessageService.
func NewMessageService(messages repositories.MessageRepository, activeWindow time.Duration, log *zap.Logger) *MessageService {
	return &MessageService{
		messages:     messages,
		activeWindow: activeWindow,
		locks:        newKeyedMutex(),
		log:          log,
	}
}

// CreateMessageInput is the body of an admin announcement.
type CreateMessageInput struct {
	Title         string     `json:"title" validate:"required,max=200"`
	Content       string     `json:"content" validate:"required,max=2000"`
	Type          string     `json:"type" validate:"omitempty,oneof=announcement update maintenance warning"`
	Priority      string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	TargetUsers   string     `json:"targetUsers" validate:"omitempty,oneof=all active new specific"`
	SpecificUsers []string   `json:"specificUsers" validate:"omitempty,dive,required"`
	ExpiresAt     *time.Time `json:"expiresAt"`
}

// Create stores a new active message authored by admin.
func (s *MessageService) Create(ctx context.Context, admin *models.User, in CreateMessageInput) (*models.PlatformMessage, error) {
	msg := &models.PlatformMessage{
		Title:         strings.TrimSpace(in.Title),
		Content:       strings.TrimSpace(in.Content),
		Type:          in.Type,
		Priority:      in.Priority,
		TargetUsers:   in.TargetUsers,
		SpecificUsers: slices.Clone(in.SpecificUsers),
		CreatedBy:     admin.ID,
		ExpiresAt:     in.ExpiresAt,
	}
	if msg.Title == "" || msg.Content == "" {
		return nil, appErr.Invalid("Validation failed", map[string]string{"title": "title and content are required"})
	}
	if msg.Type == "" {
		msg.Type = "announcement"
	}
	if msg.Priority == "" {
		msg.Priority = "normal"
	}
	if msg.TargetUsers == models.AudienceSpecific && len(msg.SpecificUsers) == 0 {
		return nil, appErr.Invalid("Validation failed", map[string]string{"specificUsers": "required when targetUsers is specific"})
	}
	if msg.SpecificUsers == nil {
		msg.SpecificUsers = []string{}
	}

	msg.PrepareCreate(timeNow())
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.log.Info("platform message created",
		zap.String("messageId", msg.ID),
		zap.String("targetUsers", msg.TargetUsers),
		zap.String("adminId", admin.ID))
	return msg, nil
}

// MessageListQuery filters the admin message list.
type MessageListQuery struct {
	Active string `query:"active"`
	PageQuery
}

// List returns messages newest first.
func (s *MessageService) List(ctx context.Context, q MessageListQuery) ([]models.PlatformMessage, Pagination, error) {
	filter := models.MessageFilter{}
	if q.Active == "true" {
		filter.IsActive = models.Bool(true)
	}
	msgs, err := s.messages.FindAll(ctx, filter)
	if err != nil {
		return nil, Pagination{}, err
	}
	newestFirst(msgs, func(m *models.PlatformMessage) time.Time { return m.CreatedAt })
	page, p := paginate(msgs, q.PageQuery, adminDefaultLimit)
	return page, p, nil
}

// Toggle flips a message between active and inactive.
func (s *MessageService) Toggle(ctx context.Context, id string) (*models.PlatformMessage, error) {
	unlock := s.locks.Lock("message:" + id)
	defer unlock()

	msg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	active := !msg.IsActive
	return s.messages.Update(ctx, id, models.MessagePatch{IsActive: &active})
}

// InboxMessage is a message as its recipient sees it.
type InboxMessage struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Type      string     `json:"type"`
	Priority  string     `json:"priority"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	Read      bool       `json:"read"`
}

// Inbox returns the active, unexpired messages addressed to user, newest first.
func (s *MessageService) Inbox(ctx context.Context, user *models.User) ([]InboxMessage, error) {
	msgs, err := s.messages.FindAll(ctx, models.MessageFilter{IsActive: models.Bool(true)})
	if err != nil {
		return nil, err
	}
	now := timeNow()
	out := make([]InboxMessage, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		if m.Expired(now) || !m.TargetsUser(user, now, s.activeWindow) {
			continue
		}
		out = append(out, InboxMessage{
			ID:        m.ID,
			Title:     m.Title,
			Content:   m.Content,
			Type:      m.Type,
			Priority:  m.Priority,
			ExpiresAt: m.ExpiresAt,
			CreatedAt: m.CreatedAt,
			Read:      m.ReadByUser(user.ID),
		})
	}
	newestFirst(out, func(m *InboxMessage) time.Time { return m.CreatedAt })
	return out, nil
}

// MarkRead records that user has read a message. Repeated calls keep the first receipt.
func (s *MessageService) MarkRead(ctx context.Context, user *models.User, id string) error {
	unlock := s.locks.Lock("message:" + id)
	defer unlock()

	msg, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	now := timeNow()
	// Messages outside the caller's inbox are indistinguishable from missing ones.
	if !msg.IsActive || msg.Expired(now) || !msg.TargetsUser(user, now, s.activeWindow) {
		return appErr.New(appErr.CodeNotFound, "Message not found")
	}
	if msg.ReadByUser(user.ID) {
		return nil
	}

	receipts := append(slices.Clone(msg.ReadBy), models.ReadReceipt{UserID: user.ID, ReadAt: now})
	_, err = s.messages.Update(ctx, id, models.MessagePatch{ReadBy: &receipts})
	return err
}

func (s *MessageService) find(ctx context.Context, id string) (*models.PlatformMessage, error) {
	msg, err := s.messages.FindByID(ctx, id)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "Message not found")
		}
		return nil, err
	}
	return msg, nil
}
