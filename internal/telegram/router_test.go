package telegram

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dokkiitech/okusuri/internal/domain"
	"github.com/dokkiitech/okusuri/internal/store"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1].Text
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: chatID},
			Text: text,
		},
	}
}

func newTestRouter(t *testing.T) (*Router, *fakeBot, store.Repo) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	bot := &fakeBot{}
	return NewRouter(bot, zap.NewNop(), repo), bot, repo
}

func TestLinkCodeExchange(t *testing.T) {
	ctx := context.Background()
	r, bot, repo := newTestRouter(t)

	s := domain.DefaultSettings("user-a", "ABC123", time.Now())
	require.NoError(t, repo.UpsertSettings(ctx, s))

	r.HandleUpdate(ctx, textUpdate(42, "ABC123"))
	assert.Equal(t, linkedText, bot.lastText(t))

	link, err := repo.LinkByChat(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "user-a", link.UserID)
}

func TestUnknownTextGetsDefaultReply(t *testing.T) {
	ctx := context.Background()
	r, bot, _ := newTestRouter(t)

	r.HandleUpdate(ctx, textUpdate(42, "こんにちは"))
	assert.Equal(t, defaultReplyText, bot.lastText(t))
}

func TestUnlink(t *testing.T) {
	ctx := context.Background()
	r, bot, repo := newTestRouter(t)

	require.NoError(t, repo.SaveLink(ctx, &domain.Link{ChatID: 42, UserID: "user-a", LinkedAt: time.Now()}))

	r.HandleUpdate(ctx, textUpdate(42, "連携解除"))
	assert.Equal(t, unlinkedText, bot.lastText(t))

	_, err := repo.LinkByChat(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Unlinking again reports the not-linked state instead of erroring.
	r.HandleUpdate(ctx, textUpdate(42, "連携解除"))
	assert.Equal(t, notLinkedText, bot.lastText(t))
}

func TestHelpShowsLinkStatus(t *testing.T) {
	ctx := context.Background()
	r, bot, repo := newTestRouter(t)

	r.HandleUpdate(ctx, textUpdate(42, "ヘルプ"))
	assert.Contains(t, bot.lastText(t), helpUnlinkedStatus)

	require.NoError(t, repo.SaveLink(ctx, &domain.Link{ChatID: 42, UserID: "user-a", LinkedAt: time.Now()}))
	r.HandleUpdate(ctx, textUpdate(42, "ヘルプ"))
	assert.Contains(t, bot.lastText(t), helpLinkedStatus)
}
