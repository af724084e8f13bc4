package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/dokkiitech/okusuri/internal/domain"
	"github.com/dokkiitech/okusuri/internal/store"
)

// botAPI is the slice of tgbotapi.BotAPI the router uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Router wires incoming Telegram updates to the account-linking flows.
type Router struct {
	bot  botAPI
	log  *zap.Logger
	repo store.Repo
}

// NewRouter creates a new Telegram router.
func NewRouter(bot botAPI, log *zap.Logger, repo store.Repo) *Router {
	return &Router{bot: bot, log: log, repo: repo}
}

// HandleUpdate routes a single update. Anything that is not a command is
// treated as a link-code attempt before falling through to the default reply.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	chatID := upd.Message.Chat.ID
	text := strings.TrimSpace(upd.Message.Text)

	switch {
	case text == "":
		return
	case strings.HasPrefix(text, "/start"):
		r.sendText(chatID, startText)
	case text == "ヘルプ" || strings.HasPrefix(text, "/help"):
		r.handleHelp(ctx, chatID)
	case text == "連携解除":
		r.handleUnlink(ctx, chatID)
	default:
		r.handleLinkCode(ctx, chatID, text)
	}
}

// handleLinkCode exchanges a one-time linking code for a Link row. An
// unrecognized code gets the default reply, same as any other free text.
func (r *Router) handleLinkCode(ctx context.Context, chatID int64, code string) {
	settings, err := r.repo.FindSettingsByLinkCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.sendText(chatID, defaultReplyText)
			return
		}
		r.log.Error("link code lookup failed", zap.Error(err))
		r.sendText(chatID, "エラーが発生しました。時間をおいて再度お試しください。")
		return
	}

	link := &domain.Link{ChatID: chatID, UserID: settings.UserID, LinkedAt: time.Now().UTC()}
	if err := r.repo.SaveLink(ctx, link); err != nil {
		r.log.Error("saving link failed",
			zap.Int64("chatID", chatID), zap.String("userID", settings.UserID), zap.Error(err))
		r.sendText(chatID, "エラーが発生しました。時間をおいて再度お試しください。")
		return
	}

	r.log.Info("account linked",
		zap.Int64("chatID", chatID), zap.String("userID", settings.UserID))
	r.sendText(chatID, linkedText)
}

func (r *Router) handleUnlink(ctx context.Context, chatID int64) {
	if _, err := r.repo.LinkByChat(ctx, chatID); errors.Is(err, store.ErrNotFound) {
		r.sendText(chatID, notLinkedText)
		return
	}
	if err := r.repo.DeleteLinkByChat(ctx, chatID); err != nil {
		r.log.Error("unlink failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "エラーが発生しました。時間をおいて再度お試しください。")
		return
	}
	r.log.Info("account unlinked", zap.Int64("chatID", chatID))
	r.sendText(chatID, unlinkedText)
}

func (r *Router) handleHelp(ctx context.Context, chatID int64) {
	status := helpUnlinkedStatus
	if _, err := r.repo.LinkByChat(ctx, chatID); err == nil {
		status = helpLinkedStatus
	}
	r.sendText(chatID, status+"\n\n"+helpCommands)
}

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("reply failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}
