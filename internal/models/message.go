package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Audience values for PlatformMessage.TargetUsers.
const (
	AudienceAll      = "all"
	AudienceActive   = "active"
	AudienceNew      = "new"
	AudienceSpecific = "specific"
)

// NewUserWindow is how long after joining a user counts as "new".
const NewUserWindow = 7 * 24 * time.Hour

// ReadReceipt records that a user has seen a platform message.
type ReadReceipt struct {
	UserID string    `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

// PlatformMessage is an admin-authored announcement.
type PlatformMessage struct {
	ID            string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title         string        `json:"title" gorm:"type:varchar(200);not null"`
	Content       string        `json:"content" gorm:"type:varchar(2000);not null"`
	Type          string        `json:"type" gorm:"type:varchar(20)"`
	Priority      string        `json:"priority" gorm:"type:varchar(20)"`
	IsActive      bool          `json:"isActive" gorm:"index"`
	TargetUsers   string        `json:"targetUsers" gorm:"type:varchar(20)"`
	SpecificUsers []string      `json:"specificUsers,omitempty" gorm:"serializer:json"`
	CreatedBy     string        `json:"createdBy" gorm:"type:varchar(36)"`
	ReadBy        []ReadReceipt `json:"readBy" gorm:"serializer:json"`
	ExpiresAt     *time.Time    `json:"expiresAt,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// PrepareCreate stamps id, timestamps and the initial active state.
func (m *PlatformMessage) PrepareCreate(now time.Time) {
	m.ID = uuid.New().String()
	m.IsActive = true
	m.ReadBy = []ReadReceipt{}
	if m.TargetUsers == "" {
		m.TargetUsers = AudienceAll
	}
	m.CreatedAt = now
	m.UpdatedAt = now
}

// ReadByUser reports whether userID already has a receipt.
func (m *PlatformMessage) ReadByUser(userID string) bool {
	return slices.ContainsFunc(m.ReadBy, func(r ReadReceipt) bool { return r.UserID == userID })
}

// Expired reports whether the message has passed its expiry.
func (m *PlatformMessage) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}

// TargetsUser reports whether u is in the message's audience.
func (m *PlatformMessage) TargetsUser(u *User, now time.Time, activeWindow time.Duration) bool {
	switch m.TargetUsers {
	case AudienceAll, "":
		return true
	case AudienceActive:
		return now.Sub(u.LastActive) <= activeWindow
	case AudienceNew:
		return now.Sub(u.CreatedAt) <= NewUserWindow
	case AudienceSpecific:
		return slices.Contains(m.SpecificUsers, u.ID)
	default:
		return false
	}
}

// MessagePatch lists the mutable message fields.
type MessagePatch struct {
	IsActive *bool
	ReadBy   *[]ReadReceipt
}

// Apply merges p over m.
func (p MessagePatch) Apply(m *PlatformMessage) {
	setIf(&m.IsActive, p.IsActive)
	setIf(&m.ReadBy, p.ReadBy)
}

// MessageFilter selects platform messages.
type MessageFilter struct {
	Title    string
	Type     string
	IsActive *bool
}

// Matches applies the filter to m.
func (f MessageFilter) Matches(m *PlatformMessage) bool {
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	return containsFold(m.Title, f.Title) && boolEq(m.IsActive, f.IsActive)
}

// Clone returns a deep copy of m.
func (m PlatformMessage) Clone() PlatformMessage {
	m.SpecificUsers = slices.Clone(m.SpecificUsers)
	m.ReadBy = slices.Clone(m.ReadBy)
	if m.ExpiresAt != nil {
		e := *m.ExpiresAt
		m.ExpiresAt = &e
	}
	return m
}
