package models

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Skill is one entry of a user's offered or wanted list. Offered skills carry a
// level, wanted skills a priority.
type Skill struct {
	Name        string `json:"name" validate:"required,max=100"`
	Level       string `json:"level,omitempty" validate:"omitempty,oneof=Beginner Intermediate Advanced Expert"`
	Priority    string `json:"priority,omitempty" validate:"omitempty,oneof=Low Medium High"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// Availability flags the time slots a user is open to swapping in.
type Availability struct {
	Weekdays   bool `json:"weekdays"`
	Weekends   bool `json:"weekends"`
	Evenings   bool `json:"evenings"`
	Mornings   bool `json:"mornings"`
	Afternoons bool `json:"afternoons"`
}

// Rating is a running average of the feedback a user received.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// With returns the rating after one more score, averaged to one decimal place.
func (r Rating) With(score int) Rating {
	n := r.Count + 1
	avg := (r.Average*float64(r.Count) + float64(score)) / float64(n)
	return Rating{Average: RoundTenth(avg), Count: n}
}

// RoundTenth rounds half away from zero to one decimal place.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// User represents a marketplace member.
type User struct {
	ID           string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string       `json:"name" gorm:"type:varchar(50);not null"`
	Email        string       `json:"email,omitempty" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash string       `json:"-" gorm:"type:varchar(255);not null"`
	Bio          string       `json:"bio"`
	Location     string       `json:"location" gorm:"type:varchar(100)"`
	ProfilePhoto string       `json:"profilePhoto"`
	IsPublic     bool         `json:"isPublic"`
	Availability Availability `json:"availability" gorm:"embedded;embeddedPrefix:availability_"`

	SkillsOffered []Skill `json:"skillsOffered" gorm:"serializer:json"`
	SkillsWanted  []Skill `json:"skillsWanted" gorm:"serializer:json"`

	Rating Rating `json:"rating" gorm:"embedded;embeddedPrefix:rating_"`

	IsAdmin   bool   `json:"isAdmin"`
	IsBanned  bool   `json:"isBanned"`
	BanReason string `json:"banReason,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	LastActive time.Time `json:"lastActive"`
}

// PrepareCreate stamps the server-controlled fields of a new user, discarding
// whatever the caller put there.
func (u *User) PrepareCreate(now time.Time) {
	u.ID = uuid.New().String()
	u.Email = NormalizeEmail(u.Email)
	u.IsPublic = true
	u.Rating = Rating{}
	u.IsAdmin = false
	u.IsBanned = false
	u.BanReason = ""
	if u.SkillsOffered == nil {
		u.SkillsOffered = []Skill{}
	}
	if u.SkillsWanted == nil {
		u.SkillsWanted = []Skill{}
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	u.LastActive = now
}

// Public returns a copy suitable for other users to see.
func (u User) Public() User {
	u.Email = ""
	return u
}

// Summary is the compact form embedded in swap responses.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, ProfilePhoto: u.ProfilePhoto, Rating: u.Rating}
}

// HasSkillMatching reports whether any offered or wanted skill name contains q (case-insensitive).
func (u *User) HasSkillMatching(q string, offered, wanted bool) bool {
	q = strings.ToLower(q)
	if offered && anySkillContains(u.SkillsOffered, q) {
		return true
	}
	return wanted && anySkillContains(u.SkillsWanted, q)
}

func anySkillContains(skills []Skill, lowerQ string) bool {
	for _, s := range skills {
		if strings.Contains(strings.ToLower(s.Name), lowerQ) {
			return true
		}
	}
	return false
}

// UserSummary identifies a swap party.
type UserSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
	Rating       Rating `json:"rating"`
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserPatch lists the mutable user fields; nil leaves a field unchanged.
type UserPatch struct {
	Name          *string
	Bio           *string
	Location      *string
	ProfilePhoto  *string
	IsPublic      *bool
	Availability  *Availability
	SkillsOffered *[]Skill
	SkillsWanted  *[]Skill
	Rating        *Rating
	IsAdmin       *bool
	IsBanned      *bool
	BanReason     *string
	LastActive    *time.Time
}

// Apply merges p over u.
func (p UserPatch) Apply(u *User) {
	setIf(&u.Name, p.Name)
	setIf(&u.Bio, p.Bio)
	setIf(&u.Location, p.Location)
	setIf(&u.ProfilePhoto, p.ProfilePhoto)
	setIf(&u.IsPublic, p.IsPublic)
	setIf(&u.Availability, p.Availability)
	setIf(&u.SkillsOffered, p.SkillsOffered)
	setIf(&u.SkillsWanted, p.SkillsWanted)
	setIf(&u.Rating, p.Rating)
	setIf(&u.IsAdmin, p.IsAdmin)
	setIf(&u.IsBanned, p.IsBanned)
	setIf(&u.BanReason, p.BanReason)
	setIf(&u.LastActive, p.LastActive)
}

// UserFilter selects users. Zero values are ignored; set fields are ANDed.
type UserFilter struct {
	Name     string
	Email    string
	Location string
	IsPublic *bool
	IsBanned *bool
	IsAdmin  *bool
}

// Matches applies the filter to u: substring for text, equality for flags.
func (f UserFilter) Matches(u *User) bool {
	return containsFold(u.Name, f.Name) &&
		containsFold(u.Email, f.Email) &&
		containsFold(u.Location, f.Location) &&
		boolEq(u.IsPublic, f.IsPublic) &&
		boolEq(u.IsBanned, f.IsBanned) &&
		boolEq(u.IsAdmin, f.IsAdmin)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func boolEq(v bool, want *bool) bool {
	return want == nil || v == *want
}

// Bool returns a pointer to b, for filters and patches.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s, for patches.
func String(s string) *string { return &s }

// Clone returns a deep copy of u.
func (u User) Clone() User {
	u.SkillsOffered = slices.Clone(u.SkillsOffered)
	u.SkillsWanted = slices.Clone(u.SkillsWanted)
	return u
}
