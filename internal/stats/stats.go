// Package stats aggregates reading logs into dashboard totals, leaderboards
// and reports. It never writes to the database.
package stats

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"mutolaa/internal/model"
)

// WinnerThreshold is the number of pages in a week that makes a reader a winner
const WinnerThreshold = 500

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewService(db *gorm.DB, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{DB: db, Now: now}
}

func (s *Service) Today() model.Date {
	return model.DateOf(s.Now())
}

type Stats struct {
	TotalUsers     int64   `json:"total_users"`
	WeeklyGrowth   float64 `json:"weekly_growth"`
	ActiveToday    int64   `json:"active_today"`
	TotalPages     int     `json:"total_pages"`
	AvgPagesPerDay float64 `json:"avg_pages_per_day"`
	BooksCompleted int     `json:"books_completed"`
}

type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     uint   `json:"-"`
	TelegramID int64  `json:"-"`
	Name       string `json:"name"`
	Pages      int    `json:"pages"`
	Books      int    `json:"books"`
}

type ReportEntry struct {
	Rank   int    `json:"rank"`
	UserID uint   `json:"-"`
	Name   string `json:"name"`
	Pages  int    `json:"pages"`
	// only set on weekly reports
	Winner *bool `json:"winner,omitempty"`
}

type Report struct {
	Period Period        `json:"period"`
	Window Window        `json:"window"`
	Rows   []ReportEntry `json:"rows"`
}

type DayActivity struct {
	Day   string     `json:"day"`
	Date  model.Date `json:"date"`
	Pages int        `json:"pages"`
	Users int        `json:"users"`
}

// one row of the grouped page sums
type pageSum struct {
	UserID     uint
	TelegramID int64
	Name       string
	Books      int
	Pages      int
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	db := s.DB.WithContext(ctx)
	now := s.Now()
	today := model.DateOf(now)
	result := &Stats{}

	if err := db.Model(&model.User{}).Count(&result.TotalUsers).Error; err != nil {
		return nil, errors.Wrap(err, "count users")
	}
	dayStart := today.In(now.Location())
	if err := db.Model(&model.User{}).
		Where("last_active >= ? AND last_active < ?", dayStart, dayStart.AddDate(0, 0, 1)).
		Count(&result.ActiveToday).Error; err != nil {
		return nil, errors.Wrap(err, "count active users")
	}

	var newUsers int64
	if err := db.Model(&model.User{}).Where("created_at >= ?", now.Add(-7*24*time.Hour)).
		Count(&newUsers).Error; err != nil {
		return nil, errors.Wrap(err, "count new users")
	}
	if result.TotalUsers > 0 {
		result.WeeklyGrowth = float64(newUsers) / float64(result.TotalUsers) * 100
	}

	var total, books, lastWeek int64
	if err := db.Model(&model.ReadingLog{}).Select("COALESCE(SUM(pages), 0)").Scan(&total).Error; err != nil {
		return nil, errors.Wrap(err, "sum pages")
	}
	if err := db.Model(&model.User{}).Select("COALESCE(SUM(books_completed), 0)").Scan(&books).Error; err != nil {
		return nil, errors.Wrap(err, "sum books")
	}
	if err := db.Model(&model.ReadingLog{}).
		Where("date >= ? AND date <= ?", today.AddDays(-6), today).
		Select("COALESCE(SUM(pages), 0)").Scan(&lastWeek).Error; err != nil {
		return nil, errors.Wrap(err, "sum weekly pages")
	}
	result.TotalPages = int(total)
	result.BooksCompleted = int(books)
	result.AvgPagesPerDay = float64(lastWeek) / 7
	return result, nil
}

// pageSums groups non-banned users' pages over window, best first and by user id on ties
func (s *Service) pageSums(ctx context.Context, window Window, bounded bool, limit int) ([]pageSum, error) {
	q := s.DB.WithContext(ctx).Table("reading_logs").
		Select("users.id AS user_id, users.telegram_id AS telegram_id, users.first_name AS name, " +
			"users.books_completed AS books, SUM(reading_logs.pages) AS pages").
		Joins("JOIN users ON users.id = reading_logs.user_id").
		Where("users.status <> ?", model.StatusBanned)
	if bounded {
		q = q.Where("reading_logs.date >= ? AND reading_logs.date <= ?", window.From, window.To)
	}
	q = q.Group("users.id, users.telegram_id, users.first_name, users.books_completed").
		Order("SUM(reading_logs.pages) DESC").Order("users.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []pageSum
	if err := q.Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "sum pages per user")
	}
	return rows, nil
}

// Leaderboard ranks readers by pages read in period. Ranks are positions, ties never share one.
func (s *Service) Leaderboard(ctx context.Context, period Period, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	} else if limit > MaxLimit {
		limit = MaxLimit
	}
	window, bounded := WindowOf(period, s.Today())
	rows, err := s.pageSums(ctx, window, bounded, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:       i + 1,
			UserID:     row.UserID,
			TelegramID: row.TelegramID,
			Name:       row.Name,
			Pages:      row.Pages,
			Books:      row.Books,
		})
	}
	return entries, nil
}

// Report lists every reader of the week or month; weekly rows carry the winner flag
func (s *Service) Report(ctx context.Context, period Period) (*Report, error) {
	if period != PeriodWeek && period != PeriodMonth {
		return nil, model.NewValidationError("period", "reports cover a week or a month")
	}
	window, _ := WindowOf(period, s.Today())
	rows, err := s.pageSums(ctx, window, true, 0)
	if err != nil {
		return nil, err
	}
	report := &Report{Period: period, Window: window, Rows: make([]ReportEntry, 0, len(rows))}
	for i, row := range rows {
		entry := ReportEntry{Rank: i + 1, UserID: row.UserID, Name: row.Name, Pages: row.Pages}
		if period == PeriodWeek {
			winner := row.Pages >= WinnerThreshold
			entry.Winner = &winner
		}
		report.Rows = append(report.Rows, entry)
	}
	return report, nil
}

// WeeklyActivity returns pages and distinct readers for the 7 days ending today, oldest first
func (s *Service) WeeklyActivity(ctx context.Context) ([]DayActivity, error) {
	today := s.Today()
	from := today.AddDays(-6)

	var rows []struct {
		Date  model.Date
		Pages int
		Users int
	}
	if err := s.DB.WithContext(ctx).Model(&model.ReadingLog{}).
		Select("date, SUM(pages) AS pages, COUNT(DISTINCT user_id) AS users").
		Where("date >= ? AND date <= ?", from, today).
		Group("date").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "weekly activity")
	}
	byDate := make(map[model.Date]int, len(rows))
	for i, row := range rows {
		byDate[row.Date] = i
	}

	activity := make([]DayActivity, 0, 7)
	for d := from; !d.After(today); d = d.AddDays(1) {
		day := DayActivity{Day: d.Weekday().String()[:3], Date: d}
		if i, ok := byDate[d]; ok {
			day.Pages = rows[i].Pages
			day.Users = rows[i].Users
		}
		activity = append(activity, day)
	}
	return activity, nil
}
