package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mutolaa/internal/model"
	"mutolaa/internal/stats"
)

const deleteConfirmPrefix = "delete_confirm_"
const deleteCancel = "delete_cancel"

var medals = map[int]string{1: "🥇", 2: "🥈", 3: "🥉"}

var periodTitles = map[stats.Period]string{
	stats.PeriodWeek:  "Haftalik",
	stats.PeriodMonth: "Oylik",
	stats.PeriodAll:   "Umumiy",
}

// goal kinds accepted by /setgoal
var goalKinds = map[string]string{
	"kunlik":  "daily_goal",
	"daily":   "daily_goal",
	"oylik":   "monthly_goal",
	"monthly": "monthly_goal",
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (b *Bot) start(r *request) tgbotapi.MessageConfig {
	from := r.message.From
	user, err := model.EnsureUser(b.DB.WithContext(r.ctx), &model.User{
		TelegramID: from.ID,
		Username:   optional(from.UserName),
		FirstName:  from.FirstName,
		LastName:   optional(from.LastName),
	}, b.Stats.Now())
	if err != nil {
		return b.failure(r, err)
	}
	if user.IsBanned() {
		return r.reply(textBanned)
	}
	return r.reply(fmt.Sprintf(welcomeText, user.FirstName))
}

// parsePages reads a page count and checks the per-request bound
func parsePages(arg string) (int, string) {
	pages, err := strconv.Atoi(arg)
	if err != nil {
		return 0, textPagesNotNumber
	}
	if model.ValidatePages(pages) != nil {
		return 0, textPagesRange
	}
	return pages, ""
}

// parseDay reads a date argument and refuses days after today
func (b *Bot) parseDay(arg string) (model.Date, string) {
	date, err := model.ParseDate(arg)
	if err != nil {
		return model.Date{}, textBadDate
	}
	if date.After(b.Stats.Today()) {
		return model.Date{}, textFutureDate
	}
	return date, ""
}

func (b *Bot) add(r *request) tgbotapi.MessageConfig {
	date := b.Stats.Today()
	var pagesArg string
	switch len(r.args) {
	case 1:
		pagesArg = r.args[0]
	case 2:
		var problem string
		if date, problem = b.parseDay(r.args[0]); problem != "" {
			return r.reply(problem)
		}
		pagesArg = r.args[1]
	default:
		return r.reply(textAddUsage)
	}
	pages, problem := parsePages(pagesArg)
	if problem != "" {
		return r.reply(problem)
	}

	log, err := model.AddReadingLog(b.DB.WithContext(r.ctx), r.user, date, pages, b.Stats.Now())
	if err != nil {
		return b.failure(r, err)
	}
	text := fmt.Sprintf("✅ Tabriklaymiz!\n📅 Sana: %s\n📄 Sahifalar: %d\n", date.Display(), pages)
	if log.Pages != pages {
		text += fmt.Sprintf("📖 Shu kuni jami: %d sahifa\n", log.Pages)
	}
	text += fmt.Sprintf("📚 Jami: %d sahifa\n🔥 Ketma-ketlik: %d kun", r.user.TotalPages, r.user.CurrentStreak)
	return r.reply(text)
}

func (b *Bot) edit(r *request) tgbotapi.MessageConfig {
	if len(r.args) != 2 {
		return r.reply(textEditUsage)
	}
	date, problem := b.parseDay(r.args[0])
	if problem != "" {
		return r.reply(problem)
	}
	pages, problem := parsePages(r.args[1])
	if problem != "" {
		return r.reply(problem)
	}
	if _, err := model.UpdateReadingLog(b.DB.WithContext(r.ctx), r.user, date, pages, b.Stats.Now()); err != nil {
		return b.failure(r, err)
	}
	return r.reply(fmt.Sprintf("✅ Yangilandi: %s - %d sahifa\n📚 Jami: %d sahifa",
		date.Display(), pages, r.user.TotalPages))
}

// delete asks for confirmation; the log is removed by the callback
func (b *Bot) delete(r *request) tgbotapi.MessageConfig {
	if len(r.args) != 1 {
		return r.reply(textDeleteUsage)
	}
	date, err := model.ParseDate(r.args[0])
	if err != nil {
		return r.reply(textBadDate)
	}
	if _, err := model.FindReadingLog(b.DB.WithContext(r.ctx), r.user, date); err != nil {
		return b.failure(r, err)
	}
	reply := r.reply(fmt.Sprintf(textDeleteConfirm, date.Display()))
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(textYes, deleteConfirmPrefix+date.String()),
			tgbotapi.NewInlineKeyboardButtonData(textNo, deleteCancel),
		),
	)
	return reply
}

func (b *Bot) myStats(r *request) tgbotapi.MessageConfig {
	db := b.DB.WithContext(r.ctx)
	today := b.Stats.Today()
	todayPages, err := model.PagesBetween(db, r.user, today, today)
	if err != nil {
		return b.failure(r, err)
	}
	month := stats.MonthWindow(today)
	monthPages, err := model.PagesBetween(db, r.user, month.From, today)
	if err != nil {
		return b.failure(r, err)
	}
	return r.reply(fmt.Sprintf(`📊 Statistikangiz:
📚 Jami sahifalar: %d
🔥 Ketma-ketlik: %d kun
🎯 Kunlik maqsad: %d/%d sahifa
🗓 Oylik maqsad: %d/%d sahifa`,
		r.user.TotalPages, r.user.CurrentStreak,
		todayPages, r.user.DailyGoal,
		monthPages, r.user.MonthlyGoal))
}

func (b *Bot) setGoal(r *request) tgbotapi.MessageConfig {
	if len(r.args) != 2 {
		return r.reply(textSetGoalUsage)
	}
	kind := strings.ToLower(r.args[0])
	field, ok := goalKinds[kind]
	if !ok {
		return r.reply(textGoalType)
	}
	value, err := strconv.Atoi(r.args[1])
	if err != nil {
		return r.reply(textGoalNotNumber)
	}
	fields := &model.UserFields{}
	label := "Kunlik"
	if field == "daily_goal" {
		fields.DailyGoal = &value
	} else {
		fields.MonthlyGoal = &value
		label = "Oylik"
	}
	if err := r.user.UpdateFields(b.DB.WithContext(r.ctx), fields); err != nil {
		return b.failure(r, err)
	}
	return r.reply(fmt.Sprintf("✅ %s maqsad: %d sahifa", label, value))
}

// periodArg returns the first argument, or the weekly alias when there is none
func periodArg(args []string) string {
	if len(args) == 0 {
		return "hafta"
	}
	return strings.ToLower(args[0])
}

func (b *Bot) leaderboard(r *request) tgbotapi.MessageConfig {
	period, err := stats.ParsePeriod(periodArg(r.args))
	if err != nil {
		return r.reply(textBoardUsage)
	}
	entries, err := b.Stats.Leaderboard(r.ctx, period, stats.DefaultLimit)
	if err != nil {
		return b.failure(r, err)
	}
	var text strings.Builder
	fmt.Fprintf(&text, "🏆 %s reyting:\n\n", periodTitles[period])
	if len(entries) == 0 {
		text.WriteString(textNoResults)
	}
	for _, entry := range entries {
		if medal, ok := medals[entry.Rank]; ok {
			text.WriteString(medal + " ")
		}
		fmt.Fprintf(&text, "%d. %s - %d sahifa\n", entry.Rank, entry.Name, entry.Pages)
	}
	return r.reply(strings.TrimRight(text.String(), "\n"))
}

func (b *Bot) report(r *request) tgbotapi.MessageConfig {
	period, err := stats.ParseReportPeriod(periodArg(r.args))
	if err != nil {
		return r.reply(textReportUsage)
	}
	report, err := b.Stats.Report(r.ctx, period)
	if err != nil {
		return b.failure(r, err)
	}
	var text strings.Builder
	if period == stats.PeriodWeek {
		fmt.Fprintf(&text, "📊 Haftalik hisobot (Shanba-Juma, %s - %s):\n\n",
			report.Window.From.Display(), report.Window.To.Display())
	} else {
		fmt.Fprintf(&text, "📊 Oylik hisobot (%s - %s):\n\n",
			report.Window.From.Display(), report.Window.To.Display())
	}
	if len(report.Rows) == 0 {
		text.WriteString(textNoResults)
	}
	for _, row := range report.Rows {
		fmt.Fprintf(&text, "%d. %s - %d sahifa", row.Rank, row.Name, row.Pages)
		if row.Winner != nil && *row.Winner {
			text.WriteString(" 🥇 G'olib!")
		}
		text.WriteString("\n")
	}
	return r.reply(strings.TrimRight(text.String(), "\n"))
}

func (b *Bot) reminder(r *request) tgbotapi.MessageConfig {
	if len(r.args) != 1 || model.ValidateReminderTime(r.args[0]) != nil {
		return r.reply(textReminderUsage)
	}
	at := r.args[0]
	if err := r.user.UpdateFields(b.DB.WithContext(r.ctx), &model.UserFields{ReminderTime: &at}); err != nil {
		return b.failure(r, err)
	}
	return r.reply(fmt.Sprintf("✅ Har kuni %s da eslatma yuboriladi.", at))
}

func (b *Bot) streak(r *request) tgbotapi.MessageConfig {
	return r.reply(fmt.Sprintf("🔥 Ketma-ketlik:\nHozirgi: %d kun\nEng uzun: %d kun",
		r.user.CurrentStreak, r.user.LongestStreak))
}
