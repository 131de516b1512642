package services

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"skillswap/internal/models"
	appErr "skillswap/pkg/errors"
)

var timeNow = time.Now

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PageQuery is the page/limit pair accepted by listings. Zero values take the
// listing's defaults.
type PageQuery struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

const maxPageLimit = 100

// paginate slices items for q. Out-of-range values are clamped rather than rejected.
func paginate[T any](items []T, q PageQuery, defaultLimit int) ([]T, Pagination) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	total := len(items)
	p := Pagination{Page: page, Limit: limit, Total: total, TotalPages: (total + limit - 1) / limit}

	start := (page - 1) * limit
	if start >= total {
		return []T{}, p
	}
	end := min(start+limit, total)
	return items[start:end], p
}

// sortByReputation orders users by rating average desc, then newest first.
func sortByReputation(users []models.User) {
	slices.SortStableFunc(users, func(a, b models.User) int {
		if c := cmp.Compare(b.Rating.Average, a.Rating.Average); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func newestFirst[T any](items []T, created func(*T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		return created(&b).Compare(created(&a))
	})
}

func publicUsers(users []models.User) []models.User {
	out := make([]models.User, len(users))
	for i := range users {
		out[i] = users[i].Public()
	}
	return out
}

// checkSkillList rejects names that collide case-insensitively.
func checkSkillList(field string, skills []models.Skill) error {
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if key == "" {
			return appErr.Invalid("Validation failed", map[string]string{field: "skill name is required"})
		}
		if _, dup := seen[key]; dup {
			return appErr.Invalid("Validation failed", map[string]string{field: "duplicate skill " + s.Name})
		}
		seen[key] = struct{}{}
	}
	return nil
}

func trimSkills(skills []models.Skill) []models.Skill {
	out := make([]models.Skill, len(skills))
	for i, s := range skills {
		s.Name = strings.TrimSpace(s.Name)
		out[i] = s
	}
	return out
}

// requirePrivileged fails unless actor is the owner or an admin.
func requirePrivileged(actor *models.User, ownerID string) error {
	if actor == nil || (actor.ID != ownerID && !actor.IsAdmin) {
		return appErr.New(appErr.CodeForbidden, "Access denied")
	}
	return nil
}
