package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAnnouncementValidation(t *testing.T) {
	db := newTestDB(t)

	assert.True(t, IsValidation(CreateAnnouncement(db, &Announcement{Message: "  "})))
	assert.True(t, IsValidation(CreateAnnouncement(db, &Announcement{Message: "hi", MessageType: "spam"})))
	assert.True(t, IsValidation(CreateAnnouncement(db, &Announcement{Message: "hi", TargetAudience: "vip"})))

	announcement := &Announcement{Message: " Kitob o'qing! ", NotifyAll: false}
	require.NoError(t, CreateAnnouncement(db, announcement))
	assert.NotZero(t, announcement.ID)

	found, err := FindAnnouncement(db, announcement.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kitob o'qing!", found.Message)
	assert.Equal(t, MessageGeneral, found.MessageType)
	assert.Equal(t, AudienceAll, found.TargetAudience)
	assert.False(t, found.NotifyAll)
	assert.Nil(t, found.SentAt)

	_, err = FindAnnouncement(db, 999)
	assert.True(t, IsNotFound(err))
}

func TestMarkSentIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	first := &Announcement{Message: "one", NotifyAll: true}
	second := &Announcement{Message: "two", NotifyAll: true}
	require.NoError(t, CreateAnnouncement(db, first))
	require.NoError(t, CreateAnnouncement(db, second))

	pending, err := PendingAnnouncements(db)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	sentAt := at(2026, time.January, 7, 10, 0)
	require.NoError(t, first.MarkSent(db, sentAt))
	require.NotNil(t, first.SentAt)
	assert.True(t, first.IsSent())

	require.NoError(t, first.MarkSent(db, sentAt.Add(time.Hour)))
	assert.True(t, first.SentAt.Equal(sentAt))

	pending, err = PendingAnnouncements(db)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	latest, err := ListAnnouncements(db, 0)
	require.NoError(t, err)
	require.Len(t, latest, 2)
}

func TestDeliveries(t *testing.T) {
	db := newTestDB(t)
	announcement := &Announcement{Message: "hello", NotifyAll: true}
	require.NoError(t, CreateAnnouncement(db, announcement))
	now := at(2026, time.January, 7, 10, 0)

	require.NoError(t, announcement.RecordDelivery(db, 11, now))
	require.NoError(t, announcement.RecordDelivery(db, 12, now))
	require.NoError(t, announcement.RecordDelivery(db, 11, now))

	delivered, err := announcement.DeliveredChatIDs(db)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{11: true, 12: true}, delivered)
}

func TestAudienceUsers(t *testing.T) {
	db := newTestDB(t)
	now := at(2026, time.January, 20, 10, 0)

	active := newTestUser(t, db, 1, "Active")
	require.NoError(t, db.Model(active).Update("last_active", now.Add(-24*time.Hour)).Error)
	idle := newTestUser(t, db, 2, "Idle")
	require.NoError(t, db.Model(idle).Update("last_active", now.Add(-10*24*time.Hour)).Error)
	admin := newTestUser(t, db, 3, "Admin")
	require.NoError(t, db.Model(admin).Updates(map[string]interface{}{"status": StatusAdmin, "last_active": now}).Error)
	banned := newTestUser(t, db, 4, "Banned")
	require.NoError(t, db.Model(banned).Updates(map[string]interface{}{"status": StatusBanned, "last_active": now}).Error)

	ids := func(users []*User) []uint {
		result := []uint{}
		for _, user := range users {
			result = append(result, user.ID)
		}
		return result
	}

	users, err := AudienceUsers(db, AudienceAll, now)
	require.NoError(t, err)
	assert.Equal(t, []uint{active.ID, idle.ID, admin.ID}, ids(users))

	users, err = AudienceUsers(db, AudienceActive, now)
	require.NoError(t, err)
	assert.Equal(t, []uint{active.ID, admin.ID}, ids(users))

	users, err = AudienceUsers(db, AudienceInactive, now)
	require.NoError(t, err)
	assert.Equal(t, []uint{idle.ID}, ids(users))

	users, err = AudienceUsers(db, AudienceAdmin, now)
	require.NoError(t, err)
	assert.Equal(t, []uint{admin.ID}, ids(users))

	_, err = AudienceUsers(db, AudienceTop10, now)
	assert.True(t, IsValidation(err))

	users, err = UsersByIDs(db, []uint{admin.ID, 999, active.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{admin.ID, active.ID}, ids(users))
}
