package services

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
)

const (
	maxSuggestions   = 10
	maxPopularSkills = 20
)

// SkillService derives the skill catalogue from public, non-banned profiles.
// Nothing is cached; every call reads the store.
type SkillService struct {
	users repositories.UserRepository
}

// NewSkillService creates a new SkillService.
func NewSkillService(users repositories.UserRepository) *SkillService {
	return &SkillService{users: users}
}

// SkillCount is one entry of the popularity ranking.
type SkillCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SkillStats summarizes the catalogue.
type SkillStats struct {
	TotalSkillsOffered   int     `json:"totalSkillsOffered"`
	TotalSkillsWanted    int     `json:"totalSkillsWanted"`
	UniqueSkillsCount    int     `json:"uniqueSkillsCount"`
	AverageSkillsPerUser float64 `json:"averageSkillsPerUser"`
}

func (s *SkillService) visibleUsers(ctx context.Context) ([]models.User, error) {
	return s.users.FindAll(ctx, models.UserFilter{IsPublic: models.Bool(true), IsBanned: models.Bool(false)})
}

func eachSkill(users []models.User, fn func(models.Skill)) {
	for _, u := range users {
		for _, sk := range u.SkillsOffered {
			fn(sk)
		}
		for _, sk := range u.SkillsWanted {
			fn(sk)
		}
	}
}

// Suggestions returns up to ten distinct skill names containing q, in the
// order first seen. Queries shorter than two characters yield nothing.
func (s *SkillService) Suggestions(ctx context.Context, q string) ([]string, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if len([]rune(q)) < 2 {
		return []string{}, nil
	}
	users, err := s.visibleUsers(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := []string{}
	eachSkill(users, func(sk models.Skill) {
		if len(out) >= maxSuggestions || !strings.Contains(strings.ToLower(sk.Name), q) {
			return
		}
		if _, ok := seen[sk.Name]; ok {
			return
		}
		seen[sk.Name] = struct{}{}
		out = append(out, sk.Name)
	})
	return out, nil
}

// Popular ranks skill names by how many lists mention them.
func (s *SkillService) Popular(ctx context.Context) ([]SkillCount, error) {
	users, err := s.visibleUsers(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	eachSkill(users, func(sk models.Skill) { counts[sk.Name]++ })

	ranked := make([]SkillCount, 0, len(counts))
	for name, n := range counts {
		ranked = append(ranked, SkillCount{Name: name, Count: n})
	}
	slices.SortFunc(ranked, func(a, b SkillCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(ranked) > maxPopularSkills {
		ranked = ranked[:maxPopularSkills]
	}
	return ranked, nil
}

// Stats counts offered and wanted entries and distinct names.
func (s *SkillService) Stats(ctx context.Context) (*SkillStats, error) {
	users, err := s.visibleUsers(ctx)
	if err != nil {
		return nil, err
	}

	stats := &SkillStats{}
	unique := make(map[string]struct{})
	for _, u := range users {
		stats.TotalSkillsOffered += len(u.SkillsOffered)
		stats.TotalSkillsWanted += len(u.SkillsWanted)
	}
	eachSkill(users, func(sk models.Skill) { unique[sk.Name] = struct{}{} })
	stats.UniqueSkillsCount = len(unique)
	if len(users) > 0 {
		stats.AverageSkillsPerUser = models.RoundTenth(float64(stats.TotalSkillsOffered+stats.TotalSkillsWanted) / float64(len(users)))
	}
	return stats, nil
}
