package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/minaamq/Q2time-tracking-system/internal/models"
	"github.com/minaamq/Q2time-tracking-system/internal/repository"
	"github.com/minaamq/Q2time-tracking-system/internal/service"
	"github.com/minaamq/Q2time-tracking-system/pkg/telegram"
	"github.com/minaamq/Q2time-tracking-system/pkg/tzutil"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const commandTimeout = 10 * time.Second

// Handler - Telegram-фронтенд поверх SessionManager.
// Бот без состояния: идентификатор сотрудника передается первым
// аргументом каждой команды.
type Handler struct {
	client    *telegram.Client
	sessions  *service.SessionManager
	clock     service.Clock
	defaultTZ string
	logger    *logrus.Logger
}

func NewHandler(client *telegram.Client, sessions *service.SessionManager, clock service.Clock, defaultTZ string, logger *logrus.Logger) *Handler {
	return &Handler{
		client:    client,
		sessions:  sessions,
		clock:     clock,
		defaultTZ: defaultTZ,
		logger:    logger,
	}
}

func (h *Handler) HandleUpdates(updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil {
			continue
		}
		if !update.Message.IsCommand() {
			continue
		}

		h.handleCommand(update.Message)
	}
}

func (h *Handler) handleCommand(message *tgbotapi.Message) {
	command := message.Command()
	args := strings.Fields(message.CommandArguments())

	h.logger.WithFields(logrus.Fields{
		"command": command,
		"chat_id": message.Chat.ID,
	}).Info("Bot command received")

	switch command {
	case "start":
		h.sendStartMessage(message)
	case "help":
		h.sendHelpMessage(message)
	case "login":
		h.recordLogin(message, args)
	case "logout":
		h.recordLogout(message, args)
	case "break":
		h.recordBreak(message, args)
	case "hours":
		h.computeHours(message, args)
	case "today":
		h.showToday(message, args)
	default:
		h.reply(message, "❓ Неизвестная команда. /help - список команд")
	}
}

func (h *Handler) sendStartMessage(message *tgbotapi.Message) {
	h.reply(message, `👋 Привет! Я учитываю рабочее время сотрудников.

Отмечайте вход, выход и перерывы - я посчитаю часы за день.
/help - список команд`)
}

func (h *Handler) sendHelpMessage(message *tgbotapi.Message) {
	h.reply(message, `📖 Команды:

/login <сотрудник> [ЧЧ:ММ] - отметить вход
/logout <сотрудник> [ЧЧ:ММ] - отметить выход
/break <сотрудник> <break1|break2|bio> <минуты | ЧЧ:ММ-ЧЧ:ММ> - перерыв
/hours <сотрудник> - итоговые часы за сегодня
/today <сотрудник> - сегодняшняя запись

Время без даты трактуется в таймзоне записи за сегодня.`)
}

func (h *Handler) recordLogin(message *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		h.reply(message, "⚠️ Формат: /login <сотрудник> [ЧЧ:ММ]")
		return
	}

	at, err := h.optionalClockTime(args, 1, args[0])
	if err != nil {
		h.reply(message, "⚠️ Не понял время, нужен формат ЧЧ:ММ")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	entry, err := h.sessions.RecordLogin(ctx, args[0], at, "")
	if err != nil {
		h.replyError(message, err)
		return
	}

	h.reply(message, fmt.Sprintf("✅ Вход отмечен: %s в %s (%s)",
		entry.EmpID,
		tzutil.ToZone(*entry.LoginTime, entry.Timezone).Format("15:04"),
		entry.Timezone))
}

func (h *Handler) recordLogout(message *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		h.reply(message, "⚠️ Формат: /logout <сотрудник> [ЧЧ:ММ]")
		return
	}

	at, err := h.optionalClockTime(args, 1, args[0])
	if err != nil {
		h.reply(message, "⚠️ Не понял время, нужен формат ЧЧ:ММ")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	entry, err := h.sessions.RecordLogout(ctx, args[0], at, "")
	if err != nil {
		h.replyError(message, err)
		return
	}

	h.reply(message, fmt.Sprintf("✅ Выход отмечен: %s в %s (%s)",
		entry.EmpID,
		tzutil.ToZone(*entry.LogoutTime, entry.Timezone).Format("15:04"),
		entry.Timezone))
}

func (h *Handler) recordBreak(message *tgbotapi.Message, args []string) {
	if len(args) < 3 {
		h.reply(message, "⚠️ Формат: /break <сотрудник> <break1|break2|bio> <минуты | ЧЧ:ММ-ЧЧ:ММ>")
		return
	}

	empID := args[0]
	breakType := models.BreakType(strings.ToLower(args[1]))

	var start, end *time.Time
	var duration *int

	if strings.Contains(args[2], "-") {
		parts := strings.SplitN(args[2], "-", 2)
		startT, err1 := h.clockTime(parts[0], empID)
		endT, err2 := h.clockTime(parts[1], empID)
		if err1 != nil || err2 != nil {
			h.reply(message, "⚠️ Не понял интервал, нужен формат ЧЧ:ММ-ЧЧ:ММ")
			return
		}
		start, end = &startT, &endT
	} else {
		min, err := strconv.Atoi(args[2])
		if err != nil || min <= 0 {
			h.reply(message, "⚠️ Длительность - положительное число минут")
			return
		}
		duration = &min
	}

	brk, err := models.NewBreakEntry(breakType, start, end, duration, "")
	if err != nil {
		h.replyError(message, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	_, warning, err := h.sessions.RecordBreak(ctx, empID, brk, "")
	if err != nil {
		h.replyError(message, err)
		return
	}

	text := fmt.Sprintf("☕ Перерыв %s записан: %d мин", brk.BreakType, brk.Minutes())
	if warning != nil {
		text += "\n\n⚠️ Пересечение перерывов: " + warning.Details
	}
	h.reply(message, text)
}

func (h *Handler) computeHours(message *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		h.reply(message, "⚠️ Формат: /hours <сотрудник>")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	hours, _, scenario, err := h.sessions.ComputeHours(ctx, args[0])
	if err != nil {
		h.replyError(message, err)
		return
	}

	h.reply(message, fmt.Sprintf(`📊 Итог за сегодня: %s

👤 Сотрудник: %s
⏱ Часы: %s
📝 Сценарий: %s`,
		h.clock.Now("").Format("02.01.2006"),
		args[0],
		service.FormatHours(hours),
		scenario))
}

func (h *Handler) showToday(message *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		h.reply(message, "⚠️ Формат: /today <сотрудник>")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	entry, err := h.sessions.CurrentSession(ctx, args[0])
	if err != nil {
		h.replyError(message, err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Запись за %s\n\n", entry.Date.Format("02.01.2006"))
	fmt.Fprintf(&b, "👤 Сотрудник: %s\n", entry.EmpID)

	if entry.HasLogin() {
		fmt.Fprintf(&b, "⏰ Вход: %s\n", tzutil.ToZone(*entry.LoginTime, entry.Timezone).Format("15:04"))
	} else {
		b.WriteString("⏰ Вход: не отмечен\n")
	}
	if entry.HasLogout() {
		fmt.Fprintf(&b, "🏁 Выход: %s\n", tzutil.ToZone(*entry.LogoutTime, entry.Timezone).Format("15:04"))
	} else {
		b.WriteString("🏁 Выход: не отмечен\n")
	}

	if len(entry.Breaks) == 0 {
		b.WriteString("\n☕ Перерывов нет")
	} else {
		b.WriteString("\n☕ Перерывы:\n")
		for i, brk := range entry.Breaks {
			fmt.Fprintf(&b, "%d. %s - %d мин\n", i+1, brk.BreakType, brk.Minutes())
		}
	}

	fmt.Fprintf(&b, "\n🌍 Таймзона: %s", entry.Timezone)

	h.reply(message, b.String())
}

// optionalClockTime - время из args[idx], если оно там есть
func (h *Handler) optionalClockTime(args []string, idx int, empID string) (*time.Time, error) {
	if len(args) <= idx {
		return nil, nil
	}
	t, err := h.clockTime(args[idx], empID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// clockTime трактует ЧЧ:ММ как сегодняшнее время в таймзоне
// сегодняшней записи сотрудника, без записи - в таймзоне по умолчанию
func (h *Handler) clockTime(value string, empID string) (time.Time, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}

	tz := h.defaultTZ
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if entry, err := h.sessions.CurrentSession(ctx, empID); err == nil && entry.Timezone != "" {
		tz = entry.Timezone
	}

	now := h.clock.Now(tz)
	return time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location()), nil
}

func (h *Handler) reply(message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	if _, err := h.client.Bot.Send(msg); err != nil {
		h.logger.WithError(err).Error("Failed to send bot message")
	}
}

func (h *Handler) replyError(message *tgbotapi.Message, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.reply(message, "📭 Записи за сегодня нет")
	case errors.Is(err, models.ErrUnknownBreakType):
		h.reply(message, "⚠️ Тип перерыва: break1, break2 или bio")
	case errors.Is(err, models.ErrEndNotAfterStart):
		h.reply(message, "⚠️ Конец перерыва должен быть позже начала")
	case errors.Is(err, models.ErrLogoutBeforeLogin):
		h.reply(message, "⚠️ Выход не может быть раньше входа")
	default:
		h.logger.WithError(err).Error("Bot command failed")
		h.reply(message, "❌ Что-то пошло не так, попробуйте позже")
	}
}
