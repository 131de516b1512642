package services

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
	appErr "skillswap/pkg/errors"

	"go.uber.org/zap"
)

const (
	recentLimit       = 10
	adminDefaultLimit = 20
	defaultBanReason  = "No reason provided"
)

// AdminService implements moderation and reporting.
type AdminService struct {
	users        repositories.UserRepository
	swaps        repositories.SwapRepository
	activeWindow time.Duration
	log          *zap.Logger
}

// NewAdminService creates a new AdminService. activeWindow decides which users count as active.
func NewAdminService(users repositories.UserRepository, swaps repositories.SwapRepository, activeWindow time.Duration, log *zap.Logger) *AdminService {
	return &AdminService{users: users, swaps: swaps, activeWindow: activeWindow, log: log}
}

// Dashboard is the admin landing summary.
type Dashboard struct {
	Stats struct {
		Users struct {
			Total  int `json:"total"`
			Active int `json:"active"`
			Banned int `json:"banned"`
		} `json:"users"`
		Swaps struct {
			Total     int `json:"total"`
			Pending   int `json:"pending"`
			Completed int `json:"completed"`
		} `json:"swaps"`
	} `json:"stats"`
	RecentSwaps []SwapView    `json:"recentSwaps"`
	RecentUsers []models.User `json:"recentUsers"`
}

// Dashboard counts users and swaps and lists the newest of each.
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	users, err := s.users.FindAll(ctx, models.UserFilter{})
	if err != nil {
		return nil, err
	}
	swaps, err := s.swaps.FindAll(ctx, models.SwapFilter{})
	if err != nil {
		return nil, err
	}

	d := &Dashboard{}
	now := timeNow()
	d.Stats.Users.Total = len(users)
	for _, u := range users {
		if now.Sub(u.LastActive) <= s.activeWindow {
			d.Stats.Users.Active++
		}
		if u.IsBanned {
			d.Stats.Users.Banned++
		}
	}
	d.Stats.Swaps.Total = len(swaps)
	for _, sw := range swaps {
		switch sw.Status {
		case models.SwapPending:
			d.Stats.Swaps.Pending++
		case models.SwapCompleted:
			d.Stats.Swaps.Completed++
		}
	}

	newestFirst(users, func(u *models.User) time.Time { return u.CreatedAt })
	d.RecentUsers = users[:min(recentLimit, len(users))]

	newestFirst(swaps, func(sw *models.Swap) time.Time { return sw.CreatedAt })
	d.RecentSwaps, err = buildViews(ctx, s.users, swaps[:min(recentLimit, len(swaps))])
	if err != nil {
		return nil, err
	}
	return d, nil
}

// AdminUserQuery filters the moderation user list. Status is "banned" or "active".
type AdminUserQuery struct {
	Search string `query:"search"`
	Status string `query:"status"`
	PageQuery
}

// ListUsers returns every user matching q, newest first, emails included.
func (s *AdminService) ListUsers(ctx context.Context, q AdminUserQuery) ([]models.User, Pagination, error) {
	filter := models.UserFilter{}
	switch q.Status {
	case "banned":
		filter.IsBanned = models.Bool(true)
	case "active":
		filter.IsBanned = models.Bool(false)
	case "":
	default:
		return nil, Pagination{}, appErr.Invalid("Validation failed", map[string]string{"status": "must be banned or active"})
	}

	users, err := s.users.FindAll(ctx, filter)
	if err != nil {
		return nil, Pagination{}, err
	}
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		users = slices.DeleteFunc(users, func(u models.User) bool {
			return !strings.Contains(strings.ToLower(u.Name), search) && !strings.Contains(u.Email, search)
		})
	}
	newestFirst(users, func(u *models.User) time.Time { return u.CreatedAt })
	page, p := paginate(users, q.PageQuery, adminDefaultLimit)
	return page, p, nil
}

// BanInput carries the optional reason for a ban.
type BanInput struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ToggleBan bans an unbanned user and unbans a banned one. Admins cannot be banned.
func (s *AdminService) ToggleBan(ctx context.Context, admin *models.User, id string, in BanInput) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "User not found")
		}
		return nil, err
	}
	if user.IsAdmin {
		return nil, appErr.Invalid("Cannot ban admin users", nil)
	}

	banned := !user.IsBanned
	reason := ""
	if banned {
		reason = strings.TrimSpace(in.Reason)
		if reason == "" {
			reason = defaultBanReason
		}
	}
	updated, err := s.users.Update(ctx, id, models.UserPatch{IsBanned: &banned, BanReason: &reason})
	if err != nil {
		return nil, err
	}
	s.log.Info("user ban toggled",
		zap.String("userId", id),
		zap.Bool("banned", banned),
		zap.String("adminId", admin.ID))
	return updated, nil
}

// AdminSwapQuery filters the moderation swap list.
type AdminSwapQuery struct {
	Status   string `query:"status"`
	Reported string `query:"reported"`
	PageQuery
}

// ListSwaps returns swaps matching q, newest first.
func (s *AdminService) ListSwaps(ctx context.Context, q AdminSwapQuery) ([]SwapView, Pagination, error) {
	filter := models.SwapFilter{}
	if q.Status != "" {
		st, ok := models.ParseSwapStatus(q.Status)
		if !ok {
			return nil, Pagination{}, appErr.Invalid("Validation failed", map[string]string{"status": "unknown status"})
		}
		filter.Status = st
	}
	if q.Reported == "true" {
		filter.IsReported = models.Bool(true)
	}

	swaps, err := s.swaps.FindAll(ctx, filter)
	if err != nil {
		return nil, Pagination{}, err
	}
	newestFirst(swaps, func(sw *models.Swap) time.Time { return sw.CreatedAt })
	page, p := paginate(swaps, q.PageQuery, adminDefaultLimit)
	views, err := buildViews(ctx, s.users, page)
	if err != nil {
		return nil, Pagination{}, err
	}
	return views, p, nil
}

// NotesInput replaces a swap's admin notes.
type NotesInput struct {
	AdminNotes string `json:"adminNotes" validate:"max=1000"`
}

// UpdateNotes annotates any swap.
func (s *AdminService) UpdateNotes(ctx context.Context, id string, in NotesInput) (*SwapView, error) {
	notes := strings.TrimSpace(in.AdminNotes)
	swap, err := s.swaps.Update(ctx, id, models.SwapPatch{AdminNotes: &notes})
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "Swap not found")
		}
		return nil, err
	}
	return buildView(ctx, s.users, swap)
}

// Report types accepted by GenerateReport.
const (
	ReportUsers    = "users"
	ReportSwaps    = "swaps"
	ReportActivity = "activity"
)

// Report wraps one generated report.
type Report struct {
	Type        string    `json:"type"`
	Report      any       `json:"report"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// UsersReport aggregates user records.
type UsersReport struct {
	TotalUsers       int     `json:"totalUsers"`
	PublicProfiles   int     `json:"publicProfiles"`
	BannedUsers      int     `json:"bannedUsers"`
	AvgSkillsOffered float64 `json:"avgSkillsOffered"`
	AvgSkillsWanted  float64 `json:"avgSkillsWanted"`
}

// StatusCount is one row of the swaps report.
type StatusCount struct {
	Status models.SwapStatus `json:"status"`
	Count  int               `json:"count"`
}

// DayCount is one row of the activity report.
type DayCount struct {
	Date         string `json:"date"`
	SwapsCreated int    `json:"swapsCreated"`
}

// ReportQuery bounds a report by creation time. Both ends must be set for
// the range to apply.
type ReportQuery struct {
	StartDate string `query:"startDate"`
	EndDate   string `query:"endDate"`
}

// GenerateReport builds the named report over records created in q's range.
func (s *AdminService) GenerateReport(ctx context.Context, reportType string, q ReportQuery) (*Report, error) {
	inRange, err := q.matcher()
	if err != nil {
		return nil, err
	}

	var body any
	switch reportType {
	case ReportUsers:
		users, err := s.users.FindAll(ctx, models.UserFilter{})
		if err != nil {
			return nil, err
		}
		r := UsersReport{}
		offered, wanted := 0, 0
		for _, u := range users {
			if !inRange(u.CreatedAt) {
				continue
			}
			r.TotalUsers++
			if u.IsPublic {
				r.PublicProfiles++
			}
			if u.IsBanned {
				r.BannedUsers++
			}
			offered += len(u.SkillsOffered)
			wanted += len(u.SkillsWanted)
		}
		if r.TotalUsers > 0 {
			r.AvgSkillsOffered = models.RoundTenth(float64(offered) / float64(r.TotalUsers))
			r.AvgSkillsWanted = models.RoundTenth(float64(wanted) / float64(r.TotalUsers))
		}
		body = r

	case ReportSwaps:
		swaps, err := s.swaps.FindAll(ctx, models.SwapFilter{})
		if err != nil {
			return nil, err
		}
		counts := map[models.SwapStatus]int{}
		for _, sw := range swaps {
			if inRange(sw.CreatedAt) {
				counts[sw.Status]++
			}
		}
		rows := make([]StatusCount, 0, len(counts))
		for st, n := range counts {
			rows = append(rows, StatusCount{Status: st, Count: n})
		}
		slices.SortFunc(rows, func(a, b StatusCount) int { return cmp.Compare(a.Status, b.Status) })
		body = rows

	case ReportActivity:
		swaps, err := s.swaps.FindAll(ctx, models.SwapFilter{})
		if err != nil {
			return nil, err
		}
		counts := map[string]int{}
		for _, sw := range swaps {
			if inRange(sw.CreatedAt) {
				counts[sw.CreatedAt.UTC().Format(time.DateOnly)]++
			}
		}
		rows := make([]DayCount, 0, len(counts))
		for day, n := range counts {
			rows = append(rows, DayCount{Date: day, SwapsCreated: n})
		}
		slices.SortFunc(rows, func(a, b DayCount) int { return cmp.Compare(a.Date, b.Date) })
		body = rows

	default:
		return nil, appErr.Invalid("Invalid report type", nil)
	}

	return &Report{Type: reportType, Report: body, GeneratedAt: timeNow().UTC()}, nil
}

func (q ReportQuery) matcher() (func(time.Time) bool, error) {
	if q.StartDate == "" || q.EndDate == "" {
		return func(time.Time) bool { return true }, nil
	}
	start, _, err := parseReportDate(q.StartDate)
	if err != nil {
		return nil, appErr.Invalid("Validation failed", map[string]string{"startDate": "must be RFC 3339 or YYYY-MM-DD"})
	}
	end, dateOnly, err := parseReportDate(q.EndDate)
	if err != nil {
		return nil, appErr.Invalid("Validation failed", map[string]string{"endDate": "must be RFC 3339 or YYYY-MM-DD"})
	}
	if dateOnly {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	return func(t time.Time) bool { return !t.Before(start) && !t.After(end) }, nil
}

func parseReportDate(s string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err = time.Parse(time.DateOnly, s)
	return t, true, err
}
