package external

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mutolaa/internal/model"
	"mutolaa/internal/stats"
)

// this file contains the periodic reminder and announcement dispatch

// Sender is the notification channel used by the dispatcher
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) (int, error)
	Pin(ctx context.Context, chatID int64, messageID int) error
}

type Dispatcher struct {
	DB     *gorm.DB
	Sender Sender
	Stats  *stats.Service
	// 0 disables delivery to the group
	GroupChatID int64
	Log         zerolog.Logger
}

// DeliveryReport summarises one announcement fan-out
type DeliveryReport struct {
	Delivered int
	Skipped   int
	Failed    int
}

var announcementIcons = map[string]string{
	model.MessageGeneral:     "📢",
	model.MessageReminder:    "🔔",
	model.MessageChallenge:   "🏆",
	model.MessageAchievement: "🎉",
}

func ReminderText(user *model.User) string {
	return fmt.Sprintf("🔔 Assalomu alaykum, %s! Bugun necha sahifa o'qiganingizni botga yuborishni unutmang: /add 20\n"+
		"Hurmat bilan, Mutolaa bot", user.FirstName)
}

func AnnouncementText(announcement *model.Announcement) string {
	icon, ok := announcementIcons[announcement.MessageType]
	if !ok {
		icon = announcementIcons[model.MessageGeneral]
	}
	return icon + " " + announcement.Message
}

// NewScheduler builds the cron scheduler running dispatcher ticks. A tick that
// is still running when the next one is due makes the next one skip.
func NewScheduler(log zerolog.Logger, loc *time.Location) *cron.Cron {
	logger := cron.PrintfLogger(&log)
	return cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
}

// Schedule registers the dispatcher tick on c
func (d *Dispatcher) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() { d.Tick(ctx) })
	return id, errors.Wrapf(err, "schedule dispatcher %q", spec)
}

// Tick runs both jobs once; a failing job does not stop the other
func (d *Dispatcher) Tick(ctx context.Context) {
	if _, err := d.RemindUsers(ctx); err != nil {
		d.Log.Error().Err(err).Msg("reminder job failed")
	}
	if err := d.BroadcastAnnouncements(ctx); err != nil {
		d.Log.Error().Err(err).Msg("announcement job failed")
	}
}

// RemindUsers pings every user whose reminder time is the current minute.
// The per-user watermark keeps it to one reminder a day.
func (d *Dispatcher) RemindUsers(ctx context.Context) (int, error) {
	now := d.Stats.Now()
	today := model.DateOf(now)
	users, err := model.UsersWithReminderAt(d.DB.WithContext(ctx), now.Format("15:04"))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if user.RemindedOn(today) {
			continue
		}
		if _, err := d.Sender.Send(ctx, user.TelegramID, ReminderText(user)); err != nil {
			d.Log.Warn().Err(err).Int64("chat_id", user.TelegramID).Msg("cannot send reminder")
			continue
		}
		if _, err := user.MarkReminded(d.DB.WithContext(ctx), today); err != nil {
			d.Log.Error().Err(err).Uint("user_id", user.ID).Msg("cannot mark user reminded")
			continue
		}
		sent++
	}
	if sent > 0 {
		d.Log.Info().Int("sent", sent).Msg("reminders sent")
	}
	return sent, nil
}

// recipients resolves the users an announcement goes to
func (d *Dispatcher) recipients(ctx context.Context, announcement *model.Announcement) ([]*model.User, error) {
	db := d.DB.WithContext(ctx)
	if announcement.TargetAudience != model.AudienceTop10 {
		return model.AudienceUsers(db, announcement.TargetAudience, d.Stats.Now())
	}
	entries, err := d.Stats.Leaderboard(ctx, stats.PeriodWeek, 10)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.UserID)
	}
	return model.UsersByIDs(db, ids)
}

// deliver sends to one chat unless it already received the announcement
func (d *Dispatcher) deliver(ctx context.Context, announcement *model.Announcement, chatID int64,
	delivered map[int64]bool, report *DeliveryReport) (int, bool) {
	if delivered[chatID] {
		report.Skipped++
		return 0, false
	}
	messageID, err := d.Sender.Send(ctx, chatID, AnnouncementText(announcement))
	if err != nil {
		report.Failed++
		d.Log.Warn().Err(err).Uint("announcement_id", announcement.ID).Int64("chat_id", chatID).
			Msg("cannot deliver announcement")
		return 0, false
	}
	if err := announcement.RecordDelivery(d.DB.WithContext(ctx), chatID, d.Stats.Now()); err != nil {
		d.Log.Error().Err(err).Uint("announcement_id", announcement.ID).Int64("chat_id", chatID).
			Msg("cannot record delivery")
	}
	delivered[chatID] = true
	report.Delivered++
	return messageID, true
}

// Dispatch fans one announcement out to the group and its audience, then marks it sent
func (d *Dispatcher) Dispatch(ctx context.Context, announcement *model.Announcement) (*DeliveryReport, error) {
	db := d.DB.WithContext(ctx)
	delivered, err := announcement.DeliveredChatIDs(db)
	if err != nil {
		return nil, err
	}
	report := &DeliveryReport{}

	if d.GroupChatID != 0 {
		if messageID, ok := d.deliver(ctx, announcement, d.GroupChatID, delivered, report); ok && announcement.PinMessage {
			if err := d.Sender.Pin(ctx, d.GroupChatID, messageID); err != nil {
				d.Log.Warn().Err(err).Uint("announcement_id", announcement.ID).Msg("cannot pin announcement")
			}
		}
	}

	if announcement.NotifyAll {
		users, err := d.recipients(ctx, announcement)
		if err != nil {
			return report, err
		}
		for _, user := range users {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			d.deliver(ctx, announcement, user.TelegramID, delivered, report)
		}
	}

	if err := announcement.MarkSent(db, d.Stats.Now()); err != nil {
		return report, err
	}
	return report, nil
}

// BroadcastAnnouncements dispatches every pending announcement, oldest first
func (d *Dispatcher) BroadcastAnnouncements(ctx context.Context) error {
	pending, err := model.PendingAnnouncements(d.DB.WithContext(ctx))
	if err != nil {
		return err
	}
	for _, announcement := range pending {
		report, err := d.Dispatch(ctx, announcement)
		if err != nil {
			d.Log.Error().Err(err).Uint("announcement_id", announcement.ID).Msg("announcement dispatch interrupted")
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		d.Log.Info().Uint("announcement_id", announcement.ID).
			Int("delivered", report.Delivered).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Msg("announcement sent")
	}
	return nil
}
