package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AlexIndustrial/latebot/internal/domain"
	"github.com/AlexIndustrial/latebot/internal/security"
	"github.com/AlexIndustrial/latebot/internal/service"
	apperrors "github.com/AlexIndustrial/latebot/pkg/errors"
	"github.com/AlexIndustrial/latebot/pkg/logger"
	"github.com/AlexIndustrial/latebot/pkg/telegram"
)

const (
	callbackVoteLate    = "late"
	callbackVoteNotLate = "unlate"
	callbackStats       = "stats"
)

const (
	msgVoteErrorGeneric = "❌ Something went wrong while registering your vote. Please try again later."
	msgStatsError       = "Something went wrong while fetching statistics. Please try again later."
	msgStatsDateHint    = "⚠️ Could not read that date. Use /stats YYYY-MM-DD, e.g. /stats 2025-06-01."
	msgNoDataForDate    = "No data for that date."
)

// WebhookHandler processes Telegram updates. Every interactive event goes
// through the request gate before any vote or stat logic runs.
type WebhookHandler struct {
	gate          *security.RequestGate
	votingService *service.VotingService
	sender        service.Sender
	targetName    string
	logger        *logger.Logger
}

func NewWebhookHandler(gate *security.RequestGate, votingService *service.VotingService, sender service.Sender, targetName string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		gate:          gate,
		votingService: votingService,
		sender:        sender,
		targetName:    targetName,
		logger:        log,
	}
}

// HandleUpdate handles POST /telegram/webhook. It always answers 200 once
// the update is parsed; Telegram would otherwise redeliver the update, and
// per-event failures are already reported to the user in chat.
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.WithError(err).Warn("Malformed webhook payload")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	switch {
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	if !h.admit(ctx, userID, msg.Chat.ID) {
		return
	}

	command, args := parseCommand(msg.Text)
	switch command {
	case "/start":
		h.sendWelcome(ctx, msg.Chat.ID)
	case "/late":
		h.processVote(ctx, userID, msg.Chat.ID, true)
	case "/unlate":
		h.processVote(ctx, userID, msg.Chat.ID, false)
	case "/stats":
		h.processStats(ctx, userID, msg.Chat.ID, args)
	case "/get_chat_id":
		h.send(ctx, msg.Chat.ID, fmt.Sprintf("This chat's ID: %d", msg.Chat.ID), nil)
	case "/my_id":
		h.send(ctx, msg.Chat.ID, fmt.Sprintf("Your ID: %d", userID), nil)
	default:
		h.send(ctx, msg.Chat.ID,
			"Use /start for info, /late to vote for a late arrival, /unlate to vote against, "+
				"/stats for today's statistics, /get_chat_id for this chat's ID, /my_id for your own ID",
			nil)
	}
}

func (h *WebhookHandler) handleCallback(ctx context.Context, q *telegram.CallbackQuery) {
	userID := q.From.ID

	if d := h.gate.AdmitEvent(userID); !d.Allowed {
		if !d.Permanent {
			_ = h.sender.AnswerCallbackQuery(ctx, q.ID, throttleNotice(d))
		}
		return
	}

	switch q.Data {
	case callbackVoteLate, callbackVoteNotLate:
		wantsLate := q.Data == callbackVoteLate
		if _, err := h.votingService.CastVote(ctx, userID, wantsLate); err != nil {
			_ = h.sender.AnswerCallbackQuery(ctx, q.ID, msgVoteErrorGeneric)
			return
		}
		_ = h.sender.AnswerCallbackQuery(ctx, q.ID, voteConfirmation(wantsLate))
	case callbackStats:
		_ = h.sender.AnswerCallbackQuery(ctx, q.ID, "")
		if q.Message == nil {
			return
		}
		day, err := h.votingService.GetOrCreateToday(ctx)
		if err != nil {
			h.send(ctx, q.Message.Chat.ID, msgStatsError, nil)
			return
		}
		h.send(ctx, q.Message.Chat.ID, h.formatStats(day, userID), voteKeyboard())
	}
}

// admit runs the gate for a message event and reports whether processing may
// continue. Throttled users get a retry notice; blacklisted users get
// nothing, an invitation to retry would defeat the point.
func (h *WebhookHandler) admit(ctx context.Context, userID, chatID int64) bool {
	d := h.gate.AdmitEvent(userID)
	if d.Allowed {
		return true
	}
	if !d.Permanent {
		h.send(ctx, chatID, throttleNotice(d), nil)
	}
	return false
}

func (h *WebhookHandler) processVote(ctx context.Context, userID, chatID int64, wantsLate bool) {
	if _, err := h.votingService.CastVote(ctx, userID, wantsLate); err != nil {
		h.logger.WithError(err).Error("Vote failed")
		h.send(ctx, chatID, msgVoteErrorGeneric, nil)
		return
	}
	h.send(ctx, chatID, voteConfirmation(wantsLate), nil)
}

func (h *WebhookHandler) processStats(ctx context.Context, userID, chatID int64, args []string) {
	dayKey, err := parseStatsDate(args, time.Now())
	if err != nil {
		h.send(ctx, chatID, msgStatsDateHint, nil)
		return
	}

	var day *domain.DayAggregate
	if len(args) == 0 {
		day, err = h.votingService.GetOrCreateToday(ctx)
	} else {
		day, err = h.votingService.GetDayStats(ctx, dayKey)
	}
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			h.send(ctx, chatID, msgNoDataForDate, nil)
			return
		}
		h.logger.WithError(err).Error("Stats lookup failed")
		h.send(ctx, chatID, msgStatsError, nil)
		return
	}

	h.send(ctx, chatID, h.formatStats(day, userID), voteKeyboard())
}

func (h *WebhookHandler) sendWelcome(ctx context.Context, chatID int64) {
	keyboard := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				telegram.NewCallbackButton("✅ Late", callbackVoteLate),
				telegram.NewCallbackButton("❌ Not late", callbackVoteNotLate),
			},
			{
				telegram.NewCallbackButton("📊 Statistics", callbackStats),
			},
		},
	}

	text := fmt.Sprintf(
		"👋 Welcome to the late-tracking bot!\n\n"+
			"🕒 Here you vote on whether %s was late today.\n\n"+
			"Commands:\n"+
			"/late - vote for a late arrival\n"+
			"/unlate - vote against\n"+
			"/stats - view statistics\n"+
			"/get_chat_id - get this chat's ID\n"+
			"/my_id - get your own ID\n\n"+
			"⚠️ One effective vote per day; you can switch sides!",
		h.targetName,
	)
	h.send(ctx, chatID, text, keyboard)
}

func (h *WebhookHandler) formatStats(day *domain.DayAggregate, userID int64) string {
	var userVote string
	switch {
	case day.HasLateVote(userID):
		userVote = "✅ You voted LATE today"
	case day.HasNotLateVote(userID):
		userVote = "❌ You voted NOT LATE today"
	default:
		userVote = "⚠️ You have not voted today"
	}

	late := day.LateCount()
	notLate := day.NotLateCount()

	var leader string
	switch {
	case late > notLate:
		leader = "🟢 Currently winning: LATE"
	case notLate > late:
		leader = "🔴 Currently winning: NOT LATE"
	default:
		leader = "🟡 The vote is tied"
	}

	return fmt.Sprintf(
		"📊 Statistics for %s:\n\n"+
			"Late: %d votes\n"+
			"Not late: %d votes\n\n"+
			"Total voters: %d\n"+
			"%s\n\n"+
			"%s",
		day.Date.Format(time.DateOnly), late, notLate, day.TotalVotes(), leader, userVote,
	)
}

func (h *WebhookHandler) send(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) {
	if err := h.sender.SendMessage(ctx, chatID, text, keyboard); err != nil {
		h.logger.WithError(err).Error("Failed to send message")
	}
}

func voteKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				telegram.NewCallbackButton("✅ Late", callbackVoteLate),
				telegram.NewCallbackButton("❌ Not late", callbackVoteNotLate),
			},
		},
	}
}

func voteConfirmation(wantsLate bool) string {
	if wantsLate {
		return "✅ Your vote for a late arrival has been registered!"
	}
	return "✅ Your vote against a late arrival has been registered!"
}

func throttleNotice(d domain.Decision) string {
	seconds := int(d.RetryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return fmt.Sprintf("⏳ Too many requests. Try again in %d seconds.", seconds)
}

// parseCommand splits a message text into the command and its arguments,
// stripping the @botname suffix Telegram appends in groups
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	command := fields[0]
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	return command, fields[1:]
}

// parseStatsDate resolves the optional /stats date argument. No argument
// means today; a malformed argument is an input error, never a crash.
func parseStatsDate(args []string, now time.Time) (time.Time, error) {
	if len(args) == 0 {
		return domain.DayKey(now), nil
	}
	parsed, err := time.ParseInLocation(time.DateOnly, args[0], time.UTC)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("date must look like 2025-06-01", nil)
	}
	return domain.DayKey(parsed), nil
}
