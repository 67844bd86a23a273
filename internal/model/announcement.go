package model

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Message types
const (
	MessageGeneral     = "general"
	MessageReminder    = "reminder"
	MessageChallenge   = "challenge"
	MessageAchievement = "achievement"
)

// Audiences:
// - all      : every user that is not banned
// - active   : read something in the last 7 days
// - inactive : no activity for 7 days or more
// - top10    : top 10 of the weekly leaderboard
// - admin    : admins only
const (
	AudienceAll      = "all"
	AudienceActive   = "active"
	AudienceInactive = "inactive"
	AudienceTop10    = "top10"
	AudienceAdmin    = "admin"
)

const inactiveAfter = 7 * 24 * time.Hour

// Announcement is queued while SentAt is nil and picked up by the dispatcher
type Announcement struct {
	ID             uint       `json:"id" gorm:"primarykey"`
	Message        string     `json:"message" gorm:"type:text;not null"`
	MessageType    string     `json:"message_type" gorm:"not null;default:'general'"`
	TargetAudience string     `json:"target_audience" gorm:"not null;default:'all'"`
	PinMessage     bool       `json:"pin_message" gorm:"not null"`
	NotifyAll      bool       `json:"notify_all" gorm:"not null"`
	CreatedBy      *int64     `json:"created_by"`
	SentAt         *time.Time `json:"sent_at" gorm:"index"`

	DBTime
}

// AnnouncementDelivery records one successful delivery, so a restarted
// dispatch does not send to the same chat twice
type AnnouncementDelivery struct {
	ID             uint      `gorm:"primarykey"`
	AnnouncementID uint      `gorm:"not null;uniqueIndex:idx_deliveries_announcement_chat"`
	ChatID         int64     `gorm:"not null;uniqueIndex:idx_deliveries_announcement_chat"`
	DeliveredAt    time.Time `gorm:"not null"`
}

func (announcement *Announcement) Validate() error {
	announcement.Message = strings.TrimSpace(announcement.Message)
	if announcement.Message == "" {
		return invalid("message", "message cannot be empty")
	}
	if announcement.MessageType == "" {
		announcement.MessageType = MessageGeneral
	}
	switch announcement.MessageType {
	case MessageGeneral, MessageReminder, MessageChallenge, MessageAchievement:
	default:
		return invalid("message_type", "unknown message type %q", announcement.MessageType)
	}
	if announcement.TargetAudience == "" {
		announcement.TargetAudience = AudienceAll
	}
	switch announcement.TargetAudience {
	case AudienceAll, AudienceActive, AudienceInactive, AudienceTop10, AudienceAdmin:
	default:
		return invalid("target_audience", "unknown audience %q", announcement.TargetAudience)
	}
	return nil
}

func CreateAnnouncement(db *gorm.DB, announcement *Announcement) error {
	if err := announcement.Validate(); err != nil {
		return err
	}
	announcement.ID = 0
	announcement.SentAt = nil
	return errors.Wrap(db.Create(announcement).Error, "create announcement")
}

// ListAnnouncements returns the latest announcements, newest first
func ListAnnouncements(db *gorm.DB, limit int) ([]*Announcement, error) {
	if limit <= 0 {
		limit = 20
	}
	var announcements []*Announcement
	err := db.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&announcements).Error
	return announcements, errors.Wrap(err, "list announcements")
}

// PendingAnnouncements returns unsent announcements, oldest first
func PendingAnnouncements(db *gorm.DB) ([]*Announcement, error) {
	var announcements []*Announcement
	err := db.Where("sent_at IS NULL").Order("id").Find(&announcements).Error
	return announcements, errors.Wrap(err, "find pending announcements")
}

func FindAnnouncement(db *gorm.DB, id uint) (*Announcement, error) {
	announcement := &Announcement{}
	if err := db.First(announcement, id).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("announcement")
	} else if err != nil {
		return nil, errors.Wrap(err, "find announcement")
	}
	return announcement, nil
}

// MarkSent stamps SentAt once; marking an already sent announcement is a no-op
func (announcement *Announcement) MarkSent(db *gorm.DB, now time.Time) error {
	if err := db.Model(&Announcement{}).
		Where("id = ? AND sent_at IS NULL", announcement.ID).
		Update("sent_at", now).Error; err != nil {
		return errors.Wrap(err, "mark announcement sent")
	}
	return errors.Wrap(db.First(announcement, announcement.ID).Error, "reload announcement")
}

func (announcement *Announcement) IsSent() bool {
	return announcement.SentAt != nil
}

// RecordDelivery remembers that chatID received the announcement
func (announcement *Announcement) RecordDelivery(db *gorm.DB, chatID int64, now time.Time) error {
	delivery := &AnnouncementDelivery{AnnouncementID: announcement.ID, ChatID: chatID, DeliveredAt: now}
	return errors.Wrap(db.Clauses(clause.OnConflict{DoNothing: true}).Create(delivery).Error, "record delivery")
}

// DeliveredChatIDs returns the chats that already received the announcement
func (announcement *Announcement) DeliveredChatIDs(db *gorm.DB) (map[int64]bool, error) {
	var chatIDs []int64
	if err := db.Model(&AnnouncementDelivery{}).
		Where("announcement_id = ?", announcement.ID).
		Pluck("chat_id", &chatIDs).Error; err != nil {
		return nil, errors.Wrap(err, "load deliveries")
	}
	delivered := make(map[int64]bool, len(chatIDs))
	for _, id := range chatIDs {
		delivered[id] = true
	}
	return delivered, nil
}

// AudienceUsers resolves every audience except top10, which needs the leaderboard
func AudienceUsers(db *gorm.DB, audience string, now time.Time) ([]*User, error) {
	q := db.Where("status <> ?", StatusBanned)
	switch audience {
	case AudienceAll:
	case AudienceActive:
		q = q.Where("last_active >= ?", now.Add(-inactiveAfter))
	case AudienceInactive:
		q = q.Where("last_active < ?", now.Add(-inactiveAfter))
	case AudienceAdmin:
		q = q.Where("status = ?", StatusAdmin)
	default:
		return nil, invalid("target_audience", "audience %q cannot be resolved here", audience)
	}
	var users []*User
	err := q.Order("id").Find(&users).Error
	return users, errors.Wrap(err, "find audience")
}

// UsersByIDs loads users in the order of ids, skipping missing ones
func UsersByIDs(db *gorm.DB, ids []uint) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []*User
	if err := db.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	byID := make(map[uint]*User, len(found))
	for _, user := range found {
		byID[user.ID] = user
	}
	users := make([]*User, 0, len(ids))
	for _, id := range ids {
		if user, ok := byID[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}
