package telegram

// replies shown to readers

const helpText = `📖 Mutolaa bot qo'llanmasi

/add 50 - bugungi natija
/add 05.01.2026 50 - sana bilan
/edit 05.01.2026 60 - natijani tahrirlash
/delete 05.01.2026 - natijani o'chirish
/mystats - statistikangiz
/streak - ketma-ketlik
/leaderboard hafta|oy|umumiy - reyting
/setgoal kunlik 50 - kunlik maqsad
/setgoal oylik 1500 - oylik maqsad
/reminder 20:00 - eslatma vaqti
/report hafta - haftalik hisobot
/report oy - oylik hisobot
/help - yordam`

const welcomeText = `🌟 Assalomu alaykum, %s!
Mutolaa botiga xush kelibsiz! 📚

` + helpText

const (
	textUnknownCommand = "🤔 Noma'lum buyruq. Buyruqlar ro'yxati: /help"
	textNotRegistered  = "❌ Foydalanuvchi ma'lumotlari topilmadi! Avval /start buyrug'ini yuboring."
	textBanned         = "⛔ Siz bloklangansiz. Administrator bilan bog'laning."
	textLogNotFound    = "❌ Bu sana uchun natija topilmadi!"
	textInternalError  = "⚠️ Xatolik yuz berdi, birozdan so'ng qayta urinib ko'ring."

	textAddUsage      = "❌ Format noto'g'ri!\n/add 50 yoki /add 05.01.2026 50"
	textEditUsage     = "❌ Format: /edit 05.01.2026 60"
	textDeleteUsage   = "❌ Format: /delete 05.01.2026"
	textSetGoalUsage  = "❌ Format: /setgoal kunlik 50 yoki /setgoal oylik 1500"
	textReminderUsage = "❌ Format: /reminder HH:MM (masalan: 20:00)"
	textBoardUsage    = "❌ Format: /leaderboard hafta, /leaderboard oy yoki /leaderboard umumiy"
	textReportUsage   = "❌ Format: /report hafta yoki /report oy"

	textPagesNotNumber = "❌ Sahifalar soni faqat butun son bo'lishi kerak!"
	textPagesRange     = "❌ Sahifalar soni 1-500 oralig'ida bo'lishi kerak!"
	textBadDate        = "❌ Sana noto'g'ri! Masalan: 05.01.2026"
	textFutureDate     = "❌ Kelajak sanasi uchun natija qo'shib bo'lmaydi!"
	textGoalNotNumber  = "❌ Maqsad soni noto'g'ri!"
	textGoalType       = "❌ Turi 'kunlik' yoki 'oylik' bo'lishi kerak!"

	textDeleteConfirm = "⚠️ %s uchun natijani o'chirishni tasdiqlaysizmi?"
	textDeleted       = "✅ Natija o'chirildi!"
	textCancelled     = "❌ Bekor qilindi"
	textYes           = "✅ Ha"
	textNo            = "❌ Yo'q"

	textNoResults = "Hali natijalar yo'q."
)
