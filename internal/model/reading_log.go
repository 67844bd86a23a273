package model

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pages accepted by a single log request
const (
	MinPages = 1
	MaxPages = 500
)

// ReadingLog is the number of pages a user read on one calendar day.
// There is at most one log per (user, date).
type ReadingLog struct {
	ID     uint `json:"id" gorm:"primarykey"`
	UserID uint `json:"user_id" gorm:"not null;uniqueIndex:idx_reading_logs_user_date"`
	Date   Date `json:"date" gorm:"not null;uniqueIndex:idx_reading_logs_user_date"`
	Pages  int  `json:"pages" gorm:"not null"`

	DBTime
}

func ValidatePages(pages int) error {
	if pages < MinPages || pages > MaxPages {
		return invalid("pages", "pages must be between %d and %d", MinPages, MaxPages)
	}
	return nil
}

// ValidateLogDate rejects empty dates and dates after today
func ValidateLogDate(date Date, today Date) error {
	if date.IsZero() {
		return invalid("date", "date is required")
	}
	if date.After(today) {
		return invalid("date", "date cannot be in the future")
	}
	return nil
}

func writable(user *User) error {
	if user.IsBanned() {
		return ErrBanned
	}
	return nil
}

// AddReadingLog adds pages to the user's log of that date, creating it if needed.
// The returned log holds the day's new total.
func AddReadingLog(db *gorm.DB, user *User, date Date, pages int, now time.Time) (*ReadingLog, error) {
	if err := writable(user); err != nil {
		return nil, err
	}
	if err := ValidatePages(pages); err != nil {
		return nil, err
	}
	if err := ValidateLogDate(date, DateOf(now)); err != nil {
		return nil, err
	}

	log := &ReadingLog{}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, user); err != nil {
			return err
		}
		err := tx.Where("user_id = ? AND date = ?", user.ID, date).First(log).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			*log = ReadingLog{UserID: user.ID, Date: date, Pages: pages}
			if err := tx.Create(log).Error; err != nil {
				return errors.Wrap(err, "create reading log")
			}
		} else if err != nil {
			return errors.Wrap(err, "find reading log")
		} else {
			if err := tx.Model(log).Update("pages", gorm.Expr("pages + ?", pages)).Error; err != nil {
				return errors.Wrap(err, "add pages")
			}
			if err := tx.First(log, log.ID).Error; err != nil {
				return errors.Wrap(err, "reload reading log")
			}
		}
		return RecalculateProgress(tx, user, now)
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// UpdateReadingLog replaces the pages of an existing log
func UpdateReadingLog(db *gorm.DB, user *User, date Date, pages int, now time.Time) (*ReadingLog, error) {
	if err := writable(user); err != nil {
		return nil, err
	}
	if err := ValidatePages(pages); err != nil {
		return nil, err
	}

	log := &ReadingLog{}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, user); err != nil {
			return err
		}
		// existence is checked by reading the row: mysql reports changed, not matched, rows
		err := tx.Where("user_id = ? AND date = ?", user.ID, date).First(log).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("reading log")
		} else if err != nil {
			return errors.Wrap(err, "find reading log")
		}
		if err := tx.Model(log).Update("pages", pages).Error; err != nil {
			return errors.Wrap(err, "update reading log")
		}
		return RecalculateProgress(tx, user, now)
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

func DeleteReadingLog(db *gorm.DB, user *User, date Date, now time.Time) error {
	if err := writable(user); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, user); err != nil {
			return err
		}
		result := tx.Where("user_id = ? AND date = ?", user.ID, date).Delete(&ReadingLog{})
		if result.Error != nil {
			return errors.Wrap(result.Error, "delete reading log")
		}
		if result.RowsAffected == 0 {
			return notFound("reading log")
		}
		return RecalculateProgress(tx, user, now)
	})
}

// lockedUser selects the user row FOR UPDATE. Every log write takes this lock
// first, so writes of one user are serialised and each recount sees the rows
// committed before it. sqlite has no row locks and serialises writers anyway.
func lockedUser(tx *gorm.DB, id uint) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&User{}, id)
}

func lockUser(tx *gorm.DB, user *User) error {
	if err := lockedUser(tx, user.ID).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("user")
	} else if err != nil {
		return errors.Wrap(err, "lock user")
	}
	return nil
}

// RecalculateProgress derives total pages and streaks from the user's log rows.
// It is called inside the transaction that changed the logs, after lockUser.
func RecalculateProgress(tx *gorm.DB, user *User, now time.Time) error {
	var total int64
	if err := tx.Model(&ReadingLog{}).Where("user_id = ?", user.ID).
		Select("COALESCE(SUM(pages), 0)").Scan(&total).Error; err != nil {
		return errors.Wrap(err, "sum pages")
	}
	var dates []Date
	if err := tx.Model(&ReadingLog{}).Where("user_id = ?", user.ID).Pluck("date", &dates).Error; err != nil {
		return errors.Wrap(err, "load log dates")
	}
	current, longest := ComputeStreak(dates, DateOf(now))

	values := map[string]interface{}{
		"total_pages":    int(total),
		"current_streak": current,
		"longest_streak": longest,
		"last_active":    now,
	}
	if err := tx.Model(&User{}).Where("id = ?", user.ID).Updates(values).Error; err != nil {
		return errors.Wrap(err, "update progress")
	}
	user.TotalPages = int(total)
	user.CurrentStreak = current
	user.LongestStreak = longest
	user.LastActive = now
	return nil
}

func FindReadingLog(db *gorm.DB, user *User, date Date) (*ReadingLog, error) {
	log := &ReadingLog{}
	if err := db.Where("user_id = ? AND date = ?", user.ID, date).First(log).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("reading log")
	} else if err != nil {
		return nil, errors.Wrap(err, "find reading log")
	}
	return log, nil
}

// PagesBetween sums the user's pages over [from, to]
func PagesBetween(db *gorm.DB, user *User, from, to Date) (int, error) {
	var total int64
	err := db.Model(&ReadingLog{}).
		Where("user_id = ? AND date >= ? AND date <= ?", user.ID, from, to).
		Select("COALESCE(SUM(pages), 0)").Scan(&total).Error
	return int(total), errors.Wrap(err, "sum pages")
}
