package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SwapStatus is the lifecycle state of a swap.
type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapDeclined  SwapStatus = "declined"
	SwapCompleted SwapStatus = "completed"
	SwapCancelled SwapStatus = "cancelled"
)

// ParseSwapStatus normalizes client input. "rejected" is accepted as a synonym of declined.
func ParseSwapStatus(s string) (SwapStatus, bool) {
	switch st := SwapStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case SwapPending, SwapAccepted, SwapDeclined, SwapCompleted, SwapCancelled:
		return st, true
	case "rejected":
		return SwapDeclined, true
	default:
		return "", false
	}
}

// SwapRole names the side of a swap an actor is on.
type SwapRole int

const (
	RoleNone SwapRole = iota
	RoleRequester
	RoleProvider
)

type transition struct {
	from, to SwapStatus
}

// transitions maps every legal status change to the roles allowed to make it.
var transitions = map[transition][]SwapRole{
	{SwapPending, SwapAccepted}:   {RoleProvider},
	{SwapPending, SwapDeclined}:   {RoleProvider},
	{SwapPending, SwapCancelled}:  {RoleRequester},
	{SwapAccepted, SwapCompleted}: {RoleRequester, RoleProvider},
}

// RolesFor returns who may move a swap into target, independent of the current status.
func RolesFor(target SwapStatus) []SwapRole {
	switch target {
	case SwapAccepted, SwapDeclined:
		return []SwapRole{RoleProvider}
	case SwapCancelled:
		return []SwapRole{RoleRequester}
	case SwapCompleted:
		return []SwapRole{RoleRequester, RoleProvider}
	default:
		return nil
	}
}

// CanTransition reports whether from → to is an edge of the lifecycle graph.
func CanTransition(from, to SwapStatus) bool {
	_, ok := transitions[transition{from, to}]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s SwapStatus) Terminal() bool {
	for t := range transitions {
		if t.from == s {
			return false
		}
	}
	return true
}

// SkillTerm is the snapshot of a skill named in a swap proposal.
type SkillTerm struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
	Level       string `json:"level,omitempty" validate:"omitempty,max=50"`
	Priority    string `json:"priority,omitempty" validate:"omitempty,max=50"`
}

// Feedback is one party's rating of a completed swap.
type Feedback struct {
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Swap is a proposed or executed exchange between two users.
type Swap struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RequesterID string `json:"requesterId" gorm:"type:varchar(36);index:idx_swaps_requester_status"`
	ProviderID  string `json:"providerId" gorm:"type:varchar(36);index:idx_swaps_provider_status"`

	OfferedSkill   SkillTerm `json:"offeredSkill" gorm:"serializer:json"`
	RequestedSkill SkillTerm `json:"requestedSkill" gorm:"serializer:json"`

	Message       string     `json:"message" gorm:"type:varchar(1000)"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
	Location      string     `json:"location,omitempty" gorm:"type:varchar(200)"`
	Duration      float64    `json:"duration,omitempty"`

	Status SwapStatus `json:"status" gorm:"type:varchar(20);index:idx_swaps_requester_status;index:idx_swaps_provider_status"`

	RequesterFeedback *Feedback `json:"requesterFeedback,omitempty" gorm:"serializer:json"`
	ProviderFeedback  *Feedback `json:"providerFeedback,omitempty" gorm:"serializer:json"`

	AdminNotes   string `json:"adminNotes,omitempty" gorm:"type:varchar(1000)"`
	IsReported   bool   `json:"isReported"`
	ReportReason string `json:"reportReason,omitempty" gorm:"type:varchar(500)"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PrepareCreate stamps id, initial status and timestamps, and clears fields
// that only later lifecycle steps may set.
func (s *Swap) PrepareCreate(now time.Time) {
	s.ID = uuid.New().String()
	s.Status = SwapPending
	s.RequesterFeedback = nil
	s.ProviderFeedback = nil
	s.AdminNotes = ""
	s.IsReported = false
	s.ReportReason = ""
	s.CreatedAt = now
	s.UpdatedAt = now
}

// RoleOf returns userID's side of the swap.
func (s *Swap) RoleOf(userID string) SwapRole {
	switch userID {
	case s.RequesterID:
		return RoleRequester
	case s.ProviderID:
		return RoleProvider
	default:
		return RoleNone
	}
}

// IsParty reports whether userID is requester or provider.
func (s *Swap) IsParty(userID string) bool {
	return s.RoleOf(userID) != RoleNone
}

// CounterpartOf returns the other party's id.
func (s *Swap) CounterpartOf(userID string) string {
	if userID == s.RequesterID {
		return s.ProviderID
	}
	return s.RequesterID
}

// FeedbackOf returns the feedback a role already left, if any.
func (s *Swap) FeedbackOf(role SwapRole) *Feedback {
	switch role {
	case RoleRequester:
		return s.RequesterFeedback
	case RoleProvider:
		return s.ProviderFeedback
	default:
		return nil
	}
}

// SwapPatch lists the mutable swap fields; nil leaves a field unchanged.
type SwapPatch struct {
	Status            *SwapStatus
	RequesterFeedback *Feedback
	ProviderFeedback  *Feedback
	AdminNotes        *string
	IsReported        *bool
	ReportReason      *string
}

// Apply merges p over s.
func (p SwapPatch) Apply(s *Swap) {
	setIf(&s.Status, p.Status)
	if p.RequesterFeedback != nil {
		fb := *p.RequesterFeedback
		s.RequesterFeedback = &fb
	}
	if p.ProviderFeedback != nil {
		fb := *p.ProviderFeedback
		s.ProviderFeedback = &fb
	}
	setIf(&s.AdminNotes, p.AdminNotes)
	setIf(&s.IsReported, p.IsReported)
	setIf(&s.ReportReason, p.ReportReason)
}

// SwapFilter selects swaps. Identifiers and status compare exactly; Participant
// matches either side.
type SwapFilter struct {
	RequesterID string
	ProviderID  string
	Participant string
	Status      SwapStatus
	IsReported  *bool
}

// Matches applies the filter to s.
func (f SwapFilter) Matches(s *Swap) bool {
	if f.RequesterID != "" && s.RequesterID != f.RequesterID {
		return false
	}
	if f.ProviderID != "" && s.ProviderID != f.ProviderID {
		return false
	}
	if f.Participant != "" && !s.IsParty(f.Participant) {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return boolEq(s.IsReported, f.IsReported)
}

// Clone returns a deep copy of s.
func (s Swap) Clone() Swap {
	if s.RequesterFeedback != nil {
		fb := *s.RequesterFeedback
		s.RequesterFeedback = &fb
	}
	if s.ProviderFeedback != nil {
		fb := *s.ProviderFeedback
		s.ProviderFeedback = &fb
	}
	if s.ScheduledDate != nil {
		d := *s.ScheduledDate
		s.ScheduledDate = &d
	}
	return s
}
