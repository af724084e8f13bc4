package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/dokkiitech/okusuri/internal/domain"
	"github.com/dokkiitech/okusuri/internal/store"
)

// Outcome classifies a single delivery attempt.
type Outcome string

const (
	OutcomeSent             Outcome = "sent"
	OutcomeNoLink           Outcome = "no_link"
	OutcomeInvalidRecipient Outcome = "invalid_recipient"
	OutcomeFailed           Outcome = "failed"
)

// Result describes how one delivery attempt ended. Expected failure classes
// are carried here instead of error returns so batch dispatch can join a
// whole tick's sends without one bad recipient aborting the siblings.
type Result struct {
	Outcome Outcome
	Err     error
}

// Sent reports whether the message actually went out.
func (r Result) Sent() bool { return r.Outcome == OutcomeSent }

// botAPI is the slice of tgbotapi.BotAPI the notifier uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// LinkResolver is the slice of store.Repo the notifier uses: reverse lookup
// plus the self-healing delete.
type LinkResolver interface {
	LinkByUser(ctx context.Context, userID string) (*domain.Link, error)
	DeleteLinkByChat(ctx context.Context, chatID int64) error
}

// Notifier resolves a user's Telegram link and pushes formatted notifications.
type Notifier struct {
	bot     botAPI
	links   LinkResolver
	log     *zap.Logger
	title   string
	body    string
	baseURL string
}

func New(bot botAPI, links LinkResolver, log *zap.Logger, title, body, baseURL string) *Notifier {
	return &Notifier{
		bot:     bot,
		links:   links,
		log:     log,
		title:   title,
		body:    body,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SendReminder pushes the generic "time to take your medication" message for
// one session.
func (n *Notifier) SendReminder(ctx context.Context, userID, session string) Result {
	text := fmt.Sprintf("<b>%s</b>\n%s（%s）", n.title, n.body, session)
	res := n.push(ctx, userID, text, "アプリで確認", n.baseURL+"/dashboard")
	n.logResult(res, "reminder", userID, zap.String("session", session))
	return res
}

// SendLowStock pushes a low-supply alert for one medication. remainingDays is
// the ceiling-rounded day count shown to the user.
func (n *Notifier) SendLowStock(ctx context.Context, userID, medicationName string, remainingDays int) Result {
	text := fmt.Sprintf("<b>【残薬通知】</b>\n%sの残りが少なくなっています。残り約%d日分です。",
		medicationName, remainingDays)
	res := n.push(ctx, userID, text, "アプリで確認", n.baseURL+"/medications")
	n.logResult(res, "low_stock", userID, zap.String("medication", medicationName))
	return res
}

// push resolves the link and sends one message. It never returns an error:
// every expected failure class maps to a Result.
func (n *Notifier) push(ctx context.Context, userID, text, buttonLabel, buttonURL string) Result {
	link, err := n.links.LinkByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// An unlinked user simply receives nothing.
			return Result{Outcome: OutcomeNoLink}
		}
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("resolve link: %w", err)}
	}

	msg := tgbotapi.NewMessage(link.ChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(buttonLabel, buttonURL),
		),
	)

	if _, err := n.bot.Send(msg); err != nil {
		if isInvalidRecipient(err) {
			// The chat is gone for good; drop the stale link so the next
			// tick resolves to no_link instead of failing again.
			if delErr := n.links.DeleteLinkByChat(ctx, link.ChatID); delErr != nil {
				n.log.Error("stale link cleanup failed",
					zap.Int64("chatID", link.ChatID), zap.Error(delErr))
			}
			return Result{Outcome: OutcomeInvalidRecipient, Err: err}
		}
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	return Result{Outcome: OutcomeSent}
}

func (n *Notifier) logResult(res Result, kind, userID string, fields ...zap.Field) {
	fields = append([]zap.Field{zap.String("kind", kind), zap.String("userID", userID)}, fields...)
	switch res.Outcome {
	case OutcomeSent:
		n.log.Debug("notification sent", fields...)
	case OutcomeNoLink:
		n.log.Debug("no link for user, skipping", fields...)
	case OutcomeInvalidRecipient:
		n.log.Info("recipient invalid, link removed", append(fields, zap.Error(res.Err))...)
	default:
		n.log.Error("notification send failed", append(fields, zap.Error(res.Err))...)
	}
}

// isInvalidRecipient reports whether the Telegram API rejected the recipient
// permanently (blocked the bot, deleted the account, chat gone).
func isInvalidRecipient(err error) bool {
	var apiErr *tgbotapi.Error
	msg := err.Error()
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	for _, s := range []string{
		"bot was blocked by the user",
		"user is deactivated",
		"chat not found",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
