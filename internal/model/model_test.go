package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var tashkent = time.FixedZone("Asia/Tashkent", 5*60*60)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", tashkent, false)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, tashkent)
}

func newTestUser(t *testing.T, db *gorm.DB, telegramID int64, name string) *User {
	t.Helper()
	user, err := EnsureUser(db, &User{TelegramID: telegramID, FirstName: name}, at(2026, time.January, 1, 9, 0))
	require.NoError(t, err)
	return user
}

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}
