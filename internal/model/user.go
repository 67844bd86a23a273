package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Status codes:
// - active : regular reader
// - admin  : may use the admin dashboards
// - banned : excluded from rankings and broadcasts, cannot log pages
const (
	StatusActive = "active"
	StatusAdmin  = "admin"
	StatusBanned = "banned"
)

// defaults for newly registered readers
const (
	DefaultDailyGoal    = 50
	DefaultMonthlyGoal  = 1500
	DefaultReminderTime = "20:00"
	DefaultTimezone     = "GMT+5"
)

var reminderTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

type User struct {
	ID         uint    `json:"id" gorm:"primarykey"`
	TelegramID int64   `json:"telegram_id" gorm:"not null;uniqueIndex"`
	Username   *string `json:"username"`
	FirstName  string  `json:"first_name" gorm:"not null;default:''"`
	LastName   *string `json:"last_name"`
	Status     string  `json:"status" gorm:"not null;default:'active';index"`

	DailyGoal    int    `json:"daily_goal" gorm:"not null;default:50"`
	MonthlyGoal  int    `json:"monthly_goal" gorm:"not null;default:1500"`
	ReminderTime string `json:"reminder_time" gorm:"not null;default:'20:00';index"`
	Timezone     string `json:"timezone" gorm:"not null;default:'GMT+5'"`

	CurrentStreak  int `json:"current_streak" gorm:"not null;default:0"`
	LongestStreak  int `json:"longest_streak" gorm:"not null;default:0"`
	TotalPages     int `json:"total_pages" gorm:"not null;default:0"`
	BooksCompleted int `json:"books_completed" gorm:"not null;default:0"`

	LastActive time.Time `json:"last_active"`
	// date of the last reminder delivered, at most one per day
	LastRemindedOn *Date `json:"-"`

	ReadingLogs []*ReadingLog `json:"-" gorm:"constraint:OnDelete:CASCADE"`

	DBTime
}

// UserFields is the partial update accepted from the bot and the API.
// Nil fields are left untouched.
type UserFields struct {
	DailyGoal    *int    `mapstructure:"daily_goal"`
	MonthlyGoal  *int    `mapstructure:"monthly_goal"`
	ReminderTime *string `mapstructure:"reminder_time"`
	Timezone     *string `mapstructure:"timezone"`
}

const maxGoal = 100000

func (fields *UserFields) Validate() error {
	if fields.DailyGoal != nil && (*fields.DailyGoal < 1 || *fields.DailyGoal > maxGoal) {
		return invalid("daily_goal", "goal must be between 1 and %d", maxGoal)
	}
	if fields.MonthlyGoal != nil && (*fields.MonthlyGoal < 1 || *fields.MonthlyGoal > maxGoal) {
		return invalid("monthly_goal", "goal must be between 1 and %d", maxGoal)
	}
	if fields.ReminderTime != nil {
		if err := ValidateReminderTime(*fields.ReminderTime); err != nil {
			return err
		}
	}
	if fields.Timezone != nil && strings.TrimSpace(*fields.Timezone) == "" {
		return invalid("timezone", "timezone cannot be empty")
	}
	return nil
}

func (fields *UserFields) updates() map[string]interface{} {
	values := map[string]interface{}{}
	if fields.DailyGoal != nil {
		values["daily_goal"] = *fields.DailyGoal
	}
	if fields.MonthlyGoal != nil {
		values["monthly_goal"] = *fields.MonthlyGoal
	}
	if fields.ReminderTime != nil {
		values["reminder_time"] = *fields.ReminderTime
	}
	if fields.Timezone != nil {
		values["timezone"] = strings.TrimSpace(*fields.Timezone)
	}
	return values
}

func ValidateReminderTime(value string) error {
	if !reminderTimePattern.MatchString(value) {
		return invalid("reminder_time", "time must be HH:MM, e.g. 20:00")
	}
	return nil
}

func ValidateStatus(status string) error {
	switch status {
	case StatusActive, StatusAdmin, StatusBanned:
		return nil
	}
	return invalid("status", "status must be one of active, admin, banned")
}

func (user *User) IsBanned() bool {
	return user.Status == StatusBanned
}

// EnsureUser registers a Telegram user, or refreshes the names of an existing one
func EnsureUser(db *gorm.DB, profile *User, now time.Time) (*User, error) {
	if profile.TelegramID == 0 {
		return nil, invalid("telegram_id", "telegram id is required")
	}
	user := &User{}
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("telegram_id = ?", profile.TelegramID).First(user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			*user = User{
				TelegramID:   profile.TelegramID,
				Username:     profile.Username,
				FirstName:    profile.FirstName,
				LastName:     profile.LastName,
				Status:       StatusActive,
				DailyGoal:    DefaultDailyGoal,
				MonthlyGoal:  DefaultMonthlyGoal,
				ReminderTime: DefaultReminderTime,
				Timezone:     DefaultTimezone,
				LastActive:   now,
			}
			return errors.Wrap(tx.Create(user).Error, "create user")
		} else if err != nil {
			return errors.Wrap(err, "find user")
		}
		return errors.Wrap(tx.Model(user).Updates(map[string]interface{}{
			"username":   profile.Username,
			"first_name": profile.FirstName,
			"last_name":  profile.LastName,
		}).Error, "refresh user")
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByTelegramID loads a user or returns a wrapped ErrNotFound
func FindUserByTelegramID(db *gorm.DB, telegramID int64) (*User, error) {
	user := &User{}
	if err := db.Where("telegram_id = ?", telegramID).First(user).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user")
	} else if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return user, nil
}

func FindUser(db *gorm.DB, id uint) (*User, error) {
	user := &User{}
	if err := db.First(user, id).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user")
	} else if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return user, nil
}

// UpdateFields applies a validated partial update inside one transaction
func (user *User) UpdateFields(db *gorm.DB, fields *UserFields) error {
	if err := fields.Validate(); err != nil {
		return err
	}
	values := fields.updates()
	if len(values) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(values).Error; err != nil {
			return errors.Wrap(err, "update user")
		}
		return errors.Wrap(tx.First(user, user.ID).Error, "reload user")
	})
}

func (user *User) SetStatus(db *gorm.DB, status string) error {
	if err := ValidateStatus(status); err != nil {
		return err
	}
	return errors.Wrap(db.Model(user).Update("status", status).Error, "update status")
}

// UserFilter narrows ListUsers for the dashboard
type UserFilter struct {
	Search string
	Status string
	Limit  int
}

func ListUsers(db *gorm.DB, filter UserFilter) ([]*User, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := db.Model(&User{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("first_name LIKE ? OR username LIKE ?", like, like)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var users []*User
	err := q.Order("id DESC").Limit(limit).Find(&users).Error
	return users, errors.Wrap(err, "list users")
}

// UsersWithReminderAt returns non-banned users whose reminder time is hhmm
func UsersWithReminderAt(db *gorm.DB, hhmm string) ([]*User, error) {
	var users []*User
	err := db.Where("reminder_time = ? AND status <> ?", hhmm, StatusBanned).Order("id").Find(&users).Error
	return users, errors.Wrap(err, "find users to remind")
}

// MarkReminded advances the reminder watermark. It reports false when the
// user was already reminded on that day.
func (user *User) MarkReminded(db *gorm.DB, day Date) (bool, error) {
	result := db.Model(&User{}).
		Where("id = ? AND (last_reminded_on IS NULL OR last_reminded_on < ?)", user.ID, day).
		Update("last_reminded_on", day)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "mark reminded")
	}
	user.LastRemindedOn = &day
	return result.RowsAffected > 0, nil
}

// RemindedOn reports whether the watermark already covers day
func (user *User) RemindedOn(day Date) bool {
	return user.LastRemindedOn != nil && !user.LastRemindedOn.Before(day)
}
