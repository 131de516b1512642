package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
	appErr "skillswap/pkg/errors"

	"go.uber.org/zap"
)

// Skill list names accepted by AddSkill and RemoveSkill.
const (
	ListOffered = "offered"
	ListWanted  = "wanted"
)

// UserService handles profile browsing and self-service profile edits.
type UserService struct {
	users     repositories.UserRepository
	uploadDir string
	log       *zap.Logger
}

// NewUserService creates a new UserService. Photos are written under uploadDir/profiles.
func NewUserService(users repositories.UserRepository, uploadDir string, log *zap.Logger) *UserService {
	return &UserService{
		users:     users,
		uploadDir: uploadDir,
		log:       log,
	}
}

// ListUsersQuery filters the public user directory.
type ListUsersQuery struct {
	Skill    string `query:"skill"`
	Location string `query:"location"`
	Search   string `query:"search"`
	PageQuery
}

// List returns public, non-banned users by reputation.
func (s *UserService) List(ctx context.Context, q ListUsersQuery) ([]models.User, Pagination, error) {
	users, err := s.users.FindAll(ctx, models.UserFilter{
		Location: strings.TrimSpace(q.Location),
		IsPublic: models.Bool(true),
		IsBanned: models.Bool(false),
	})
	if err != nil {
		return nil, Pagination{}, err
	}

	skill := strings.TrimSpace(q.Skill)
	search := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := users[:0]
	for i := range users {
		u := &users[i]
		if skill != "" && !u.HasSkillMatching(skill, true, true) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) && !u.HasSkillMatching(search, true, true) {
			continue
		}
		filtered = append(filtered, *u)
	}

	sortByReputation(filtered)
	page, p := paginate(filtered, q.PageQuery, 10)
	return publicUsers(page), p, nil
}

// Get returns a profile as seen by viewer, who may be nil for anonymous
// requests. Private profiles are visible only to their owner and admins.
func (s *UserService) Get(ctx context.Context, viewer *models.User, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	privileged := viewer != nil && (viewer.ID == user.ID || viewer.IsAdmin)
	if privileged {
		return user, nil
	}
	if !user.IsPublic {
		return nil, appErr.New(appErr.CodeForbidden, "This profile is private")
	}
	pub := user.Public()
	return &pub, nil
}

// SearchBySkill returns public, non-banned users offering a skill whose name contains skill.
func (s *UserService) SearchBySkill(ctx context.Context, skill string) ([]models.User, error) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return nil, appErr.Invalid("Skill parameter is required", nil)
	}
	users, err := s.users.FindAll(ctx, models.UserFilter{IsPublic: models.Bool(true), IsBanned: models.Bool(false)})
	if err != nil {
		return nil, err
	}
	matches := make([]models.User, 0, len(users))
	for i := range users {
		if users[i].HasSkillMatching(skill, true, false) {
			matches = append(matches, users[i])
		}
	}
	sortByReputation(matches)
	return publicUsers(matches), nil
}

// ProfileInput is the allow-list of self-editable profile fields. Nil or
// absent fields are left unchanged.
type ProfileInput struct {
	Name          *string              `json:"name" validate:"omitempty,max=50"`
	Bio           *string              `json:"bio" validate:"omitempty,max=500"`
	Location      *string              `json:"location" validate:"omitempty,max=100"`
	IsPublic      *bool                `json:"isPublic"`
	Availability  *models.Availability `json:"availability"`
	SkillsOffered []models.Skill       `json:"skillsOffered" validate:"omitempty,max=50,dive"`
	SkillsWanted  []models.Skill       `json:"skillsWanted" validate:"omitempty,max=50,dive"`
}

// UpdateProfile applies in to userID's profile and refreshes lastActive.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	now := timeNow()
	patch := models.UserPatch{
		Bio:          in.Bio,
		IsPublic:     in.IsPublic,
		Availability: in.Availability,
		LastActive:   &now,
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, appErr.Invalid("Validation failed", map[string]string{"name": "Name cannot be empty"})
		}
		patch.Name = &name
	}
	if in.Location != nil {
		loc := strings.TrimSpace(*in.Location)
		patch.Location = &loc
	}
	if in.SkillsOffered != nil {
		offered := trimSkills(in.SkillsOffered)
		if err := checkSkillList("skillsOffered", offered); err != nil {
			return nil, err
		}
		patch.SkillsOffered = &offered
	}
	if in.SkillsWanted != nil {
		wanted := trimSkills(in.SkillsWanted)
		if err := checkSkillList("skillsWanted", wanted); err != nil {
			return nil, err
		}
		patch.SkillsWanted = &wanted
	}

	unlock := lockUser(userID)
	defer unlock()
	return s.users.Update(ctx, userID, patch)
}

// AddSkillInput adds one skill to the offered or wanted list.
type AddSkillInput struct {
	List  string       `json:"list" validate:"required,oneof=offered wanted"`
	Skill models.Skill `json:"skill"`
}

// AddSkill appends a skill; a name already in that list is a Conflict.
func (s *UserService) AddSkill(ctx context.Context, userID string, in AddSkillInput) (*models.User, error) {
	skill := in.Skill
	skill.Name = strings.TrimSpace(skill.Name)
	if skill.Name == "" {
		return nil, appErr.Invalid("Validation failed", map[string]string{"name": "Skill name is required"})
	}

	unlock := lockUser(userID)
	defer unlock()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := skillList(user, in.List)
	if err != nil {
		return nil, err
	}
	if indexOfSkill(list, skill.Name) >= 0 {
		return nil, appErr.Newf(appErr.CodeConflict, "Skill %s is already listed", skill.Name)
	}
	updated := append(append([]models.Skill{}, list...), skill)
	return s.users.Update(ctx, userID, listPatch(in.List, updated))
}

// RemoveSkill drops the skill whose name matches case-insensitively.
func (s *UserService) RemoveSkill(ctx context.Context, userID, listName, name string) (*models.User, error) {
	unlock := lockUser(userID)
	defer unlock()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := skillList(user, listName)
	if err != nil {
		return nil, err
	}
	i := indexOfSkill(list, name)
	if i < 0 {
		return nil, appErr.Newf(appErr.CodeNotFound, "Skill %s not found", name)
	}
	updated := append(append([]models.Skill{}, list[:i]...), list[i+1:]...)
	return s.users.Update(ctx, userID, listPatch(listName, updated))
}

func skillList(u *models.User, name string) ([]models.Skill, error) {
	switch name {
	case ListOffered:
		return u.SkillsOffered, nil
	case ListWanted:
		return u.SkillsWanted, nil
	default:
		return nil, appErr.Invalid("Validation failed", map[string]string{"list": "must be offered or wanted"})
	}
}

func listPatch(name string, skills []models.Skill) models.UserPatch {
	if name == ListOffered {
		return models.UserPatch{SkillsOffered: &skills}
	}
	return models.UserPatch{SkillsWanted: &skills}
}

func indexOfSkill(skills []models.Skill, name string) int {
	name = strings.TrimSpace(name)
	for i, s := range skills {
		if strings.EqualFold(s.Name, name) {
			return i
		}
	}
	return -1
}

// SavePhoto writes an already sniffed image and points the profile at it.
// ext includes the leading dot.
func (s *UserService) SavePhoto(ctx context.Context, userID string, data []byte, ext string) (*models.User, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.uploadDir, "profiles")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	name := fmt.Sprintf("%s-%d%s", userID, timeNow().UnixMilli(), ext)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	photo := "/uploads/profiles/" + name
	user, err := s.users.Update(ctx, userID, models.UserPatch{ProfilePhoto: &photo})
	if err != nil {
		return nil, err
	}
	s.log.Info("profile photo updated", zap.String("userId", userID), zap.String("path", photo))
	return user, nil
}
