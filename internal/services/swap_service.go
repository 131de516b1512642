package services

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
	appErr "skillswap/pkg/errors"

	"go.uber.org/zap"
)

// EventPublisher delivers swap events to a broker. *rabbitmq.Client satisfies it.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// Swap event types, published on routing key "swap.<type>".
const (
	EventSwapCreated       = "created"
	EventSwapStatusChanged = "status_changed"
	EventSwapFeedback      = "feedback_submitted"
	EventSwapReported      = "reported"
	EventSwapDeleted       = "deleted"
)

// SwapEvent is the payload of every swap event.
type SwapEvent struct {
	Type        string            `json:"type"`
	SwapID      string            `json:"swapId"`
	RequesterID string            `json:"requesterId"`
	ProviderID  string            `json:"providerId"`
	Status      models.SwapStatus `json:"status"`
	ActorID     string            `json:"actorId"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// RoutingKey returns the AMQP routing key for e.
func (e SwapEvent) RoutingKey() string { return "swap." + e.Type }

// SwapView is a swap with both parties' summaries embedded.
type SwapView struct {
	models.Swap
	Requester *models.UserSummary `json:"requester"`
	Provider  *models.UserSummary `json:"provider"`
}

// SwapService implements the swap lifecycle. Mutations on one swap, one
// requester/provider pair or one rated user are serialized in-process.
type SwapService struct {
	swaps  repositories.SwapRepository
	users  repositories.UserRepository
	events EventPublisher
	locks  *keyedMutex
	log    *zap.Logger
}

// NewSwapService creates a new SwapService. events may be nil.
func NewSwapService(swaps repositories.SwapRepository, users repositories.UserRepository, events EventPublisher, log *zap.Logger) *SwapService {
	return &SwapService{
		swaps:  swaps,
		users:  users,
		events: events,
		locks:  newKeyedMutex(),
		log:    log,
	}
}

// CreateSwapInput is the body of a swap request.
type CreateSwapInput struct {
	ProviderID     string           `json:"providerId" validate:"required"`
	OfferedSkill   models.SkillTerm `json:"offeredSkill"`
	RequestedSkill models.SkillTerm `json:"requestedSkill"`
	Message        string           `json:"message" validate:"max=1000"`
	ScheduledDate  *time.Time       `json:"scheduledDate"`
	Location       string           `json:"location" validate:"max=200"`
	Duration       float64          `json:"duration" validate:"omitempty,min=0.5,max=8"`
}

// Create opens a pending swap from requester to in.ProviderID.
func (s *SwapService) Create(ctx context.Context, requester *models.User, in CreateSwapInput) (*SwapView, error) {
	provider, err := s.users.FindByID(ctx, in.ProviderID)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "Provider not found")
		}
		return nil, err
	}
	if provider.ID == requester.ID {
		return nil, appErr.Invalid("Cannot create swap request with yourself", nil)
	}
	if provider.IsBanned {
		return nil, appErr.Invalid("Cannot send swap request to banned user", nil)
	}

	unlock := s.locks.Lock("pair:" + requester.ID + ">" + provider.ID)
	defer unlock()

	pending, err := s.swaps.FindAll(ctx, models.SwapFilter{
		RequesterID: requester.ID,
		ProviderID:  provider.ID,
		Status:      models.SwapPending,
	})
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		return nil, appErr.New(appErr.CodeConflict, "You already have a pending swap request with this user")
	}

	swap := &models.Swap{
		RequesterID:    requester.ID,
		ProviderID:     provider.ID,
		OfferedSkill:   trimTerm(in.OfferedSkill),
		RequestedSkill: trimTerm(in.RequestedSkill),
		Message:        strings.TrimSpace(in.Message),
		ScheduledDate:  in.ScheduledDate,
		Location:       strings.TrimSpace(in.Location),
		Duration:       in.Duration,
	}
	if swap.Message == "" {
		swap.Message = fmt.Sprintf("I'd like to swap my %s skills for your %s skills.", swap.OfferedSkill.Name, swap.RequestedSkill.Name)
	}
	swap.PrepareCreate(timeNow())

	if err := s.swaps.Create(ctx, swap); err != nil {
		return nil, fmt.Errorf("failed to create swap: %w", err)
	}
	swapsCreatedTotal.Inc()
	s.publish(EventSwapCreated, swap, requester.ID)

	return &SwapView{Swap: *swap, Requester: requester.Summary(), Provider: provider.Summary()}, nil
}

func trimTerm(t models.SkillTerm) models.SkillTerm {
	t.Name = strings.TrimSpace(t.Name)
	return t
}

// MySwapsQuery filters the caller's swaps. Type is "sent", "received" or empty for both.
type MySwapsQuery struct {
	Status string `query:"status"`
	Type   string `query:"type"`
}

// ListMine returns the caller's swaps, newest first.
func (s *SwapService) ListMine(ctx context.Context, userID string, q MySwapsQuery) ([]SwapView, error) {
	filter := models.SwapFilter{}
	switch strings.ToLower(strings.TrimSpace(q.Type)) {
	case "sent":
		filter.RequesterID = userID
	case "received":
		filter.ProviderID = userID
	case "", "all":
		filter.Participant = userID
	default:
		return nil, appErr.Invalid("Validation failed", map[string]string{"type": "must be sent or received"})
	}
	if q.Status != "" {
		st, ok := models.ParseSwapStatus(q.Status)
		if !ok {
			return nil, appErr.Invalid("Validation failed", map[string]string{"status": "unknown status"})
		}
		filter.Status = st
	}

	swaps, err := s.swaps.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	newestFirst(swaps, func(sw *models.Swap) time.Time { return sw.CreatedAt })
	return buildViews(ctx, s.users, swaps)
}

// ListForUser returns every swap userID is party to. Only the user and admins may ask.
func (s *SwapService) ListForUser(ctx context.Context, actor *models.User, userID string) ([]SwapView, error) {
	if err := requirePrivileged(actor, userID); err != nil {
		return nil, err
	}
	swaps, err := s.swaps.FindAll(ctx, models.SwapFilter{Participant: userID})
	if err != nil {
		return nil, err
	}
	newestFirst(swaps, func(sw *models.Swap) time.Time { return sw.CreatedAt })
	return buildViews(ctx, s.users, swaps)
}

// Get returns a swap to one of its parties or an admin.
func (s *SwapService) Get(ctx context.Context, actor *models.User, id string) (*SwapView, error) {
	swap, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !swap.IsParty(actor.ID) && !actor.IsAdmin {
		return nil, appErr.New(appErr.CodeForbidden, "Access denied")
	}
	return buildView(ctx, s.users, swap)
}

// UpdateStatus moves a swap along the lifecycle graph. Checks run in order:
// existence, known target, party, role, legal transition.
func (s *SwapService) UpdateStatus(ctx context.Context, actor *models.User, id, rawStatus string) (*SwapView, error) {
	unlock := s.locks.Lock("swap:" + id)
	defer unlock()

	swap, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	target, ok := models.ParseSwapStatus(rawStatus)
	roles := models.RolesFor(target)
	if !ok || len(roles) == 0 {
		return nil, appErr.Invalid("Invalid status", map[string]string{"status": "must be accepted, declined, completed or cancelled"})
	}

	role := swap.RoleOf(actor.ID)
	if role == models.RoleNone {
		return nil, appErr.New(appErr.CodeForbidden, "Access denied")
	}
	if !slices.Contains(roles, role) {
		return nil, appErr.New(appErr.CodeForbidden, roleDeniedMessage(target))
	}

	from := swap.Status
	if !models.CanTransition(from, target) {
		return nil, appErr.Newf(appErr.CodeInvalidState, "Cannot change status of %s swap to %s", from, target)
	}

	updated, err := s.swaps.Update(ctx, id, models.SwapPatch{Status: &target})
	if err != nil {
		return nil, err
	}
	swapTransitionsTotal.WithLabelValues(string(from), string(target)).Inc()
	s.log.Info("swap status changed",
		zap.String("swapId", id),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actorId", actor.ID))
	s.publish(EventSwapStatusChanged, updated, actor.ID)

	return buildView(ctx, s.users, updated)
}

func roleDeniedMessage(target models.SwapStatus) string {
	switch target {
	case models.SwapAccepted, models.SwapDeclined:
		return "Only the provider can accept or decline swap requests"
	case models.SwapCancelled:
		return "Only the requester can cancel swap requests"
	default:
		return "Access denied"
	}
}

// FeedbackInput is one party's rating of a completed swap. Range checks run
// in the service so they come after the state checks.
type FeedbackInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SubmitFeedback records the caller's feedback and folds the rating into the
// other party's reputation.
func (s *SwapService) SubmitFeedback(ctx context.Context, actor *models.User, id string, in FeedbackInput) (*SwapView, error) {
	unlock := s.locks.Lock("swap:" + id)
	defer unlock()

	swap, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	role := swap.RoleOf(actor.ID)
	if role == models.RoleNone {
		return nil, appErr.New(appErr.CodeForbidden, "Access denied")
	}
	if swap.Status != models.SwapCompleted {
		return nil, appErr.New(appErr.CodeInvalidState, "Can only provide feedback for completed swaps")
	}
	if swap.FeedbackOf(role) != nil {
		return nil, appErr.New(appErr.CodeConflict, "Feedback already submitted")
	}

	fields := map[string]string{}
	if in.Rating < 1 || in.Rating > 5 {
		fields["rating"] = "Rating must be between 1 and 5"
	}
	comment := strings.TrimSpace(in.Comment)
	if len([]rune(comment)) > 500 {
		fields["comment"] = "Comment too long"
	}
	if len(fields) > 0 {
		return nil, appErr.Invalid("Validation failed", fields)
	}

	fb := &models.Feedback{Rating: in.Rating, Comment: comment, SubmittedAt: timeNow()}
	patch := models.SwapPatch{}
	if role == models.RoleRequester {
		patch.RequesterFeedback = fb
	} else {
		patch.ProviderFeedback = fb
	}
	updated, err := s.swaps.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	// Feedback is stored at this point; a failed rating write is logged only.
	ratee := swap.CounterpartOf(actor.ID)
	if err := s.rate(ctx, ratee, in.Rating); err != nil {
		ratingUpdateFailuresTotal.Inc()
		s.log.Error("rating update failed",
			zap.String("swapId", id),
			zap.String("userId", ratee),
			zap.Int("rating", in.Rating),
			zap.Error(err))
	}
	feedbackSubmittedTotal.WithLabelValues(strconv.Itoa(in.Rating)).Inc()
	s.publish(EventSwapFeedback, updated, actor.ID)

	return buildView(ctx, s.users, updated)
}

// rate adds one score to userID's running average.
func (s *SwapService) rate(ctx context.Context, userID string, score int) error {
	unlock := lockUser(userID)
	defer unlock()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	rating := user.Rating.With(score)
	_, err = s.users.Update(ctx, userID, models.UserPatch{Rating: &rating})
	return err
}

// ReportInput flags a swap for moderation.
type ReportInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Report lets a party flag a swap for admin review.
func (s *SwapService) Report(ctx context.Context, actor *models.User, id string, in ReportInput) (*SwapView, error) {
	unlock := s.locks.Lock("swap:" + id)
	defer unlock()

	swap, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !swap.IsParty(actor.ID) {
		return nil, appErr.New(appErr.CodeForbidden, "Access denied")
	}

	reason := strings.TrimSpace(in.Reason)
	updated, err := s.swaps.Update(ctx, id, models.SwapPatch{IsReported: models.Bool(true), ReportReason: &reason})
	if err != nil {
		return nil, err
	}
	s.log.Warn("swap reported", zap.String("swapId", id), zap.String("actorId", actor.ID))
	s.publish(EventSwapReported, updated, actor.ID)
	return buildView(ctx, s.users, updated)
}

// Delete removes a swap. Only the requester may, and never once completed.
func (s *SwapService) Delete(ctx context.Context, actor *models.User, id string) error {
	unlock := s.locks.Lock("swap:" + id)
	defer unlock()

	swap, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if swap.RequesterID != actor.ID {
		return appErr.New(appErr.CodeForbidden, "Only the requester can cancel swap requests")
	}
	if swap.Status == models.SwapCompleted {
		return appErr.New(appErr.CodeInvalidState, "Cannot cancel completed swaps")
	}
	if err := s.swaps.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(EventSwapDeleted, swap, actor.ID)
	return nil
}

func (s *SwapService) find(ctx context.Context, id string) (*models.Swap, error) {
	swap, err := s.swaps.FindByID(ctx, id)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "Swap not found")
		}
		return nil, err
	}
	return swap, nil
}

// publish never fails the caller; broker trouble is only logged.
func (s *SwapService) publish(eventType string, swap *models.Swap, actorID string) {
	if s.events == nil {
		return
	}
	ev := SwapEvent{
		Type:        eventType,
		SwapID:      swap.ID,
		RequesterID: swap.RequesterID,
		ProviderID:  swap.ProviderID,
		Status:      swap.Status,
		ActorID:     actorID,
		OccurredAt:  timeNow().UTC(),
	}
	if err := s.events.Publish(ev.RoutingKey(), ev); err != nil {
		s.log.Warn("failed to publish swap event", zap.String("type", eventType), zap.String("swapId", swap.ID), zap.Error(err))
	}
}

func buildView(ctx context.Context, users repositories.UserRepository, swap *models.Swap) (*SwapView, error) {
	views, err := buildViews(ctx, users, []models.Swap{*swap})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// buildViews embeds party summaries, looking each user up once. Parties that
// no longer exist are left nil.
func buildViews(ctx context.Context, users repositories.UserRepository, swaps []models.Swap) ([]SwapView, error) {
	cache := make(map[string]*models.UserSummary)
	summary := func(id string) (*models.UserSummary, error) {
		if sum, ok := cache[id]; ok {
			return sum, nil
		}
		u, err := users.FindByID(ctx, id)
		if err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, err
		}
		sum := u.Summary()
		cache[id] = sum
		return sum, nil
	}

	views := make([]SwapView, 0, len(swaps))
	for _, sw := range swaps {
		req, err := summary(sw.RequesterID)
		if err != nil {
			return nil, err
		}
		prov, err := summary(sw.ProviderID)
		if err != nil {
			return nil, err
		}
		views = append(views, SwapView{Swap: sw, Requester: req, Provider: prov})
	}
	return views, nil
}
