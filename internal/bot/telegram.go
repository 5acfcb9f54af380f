package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"

	applog "finbot/internal/log"
)

const (
	pollTimeoutSeconds    = 60
	defaultCommandTimeout = 30 * time.Second
)

// API is the part of tgbotapi.BotAPI used by Bot.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

var _ API = (*tgbotapi.BotAPI)(nil)

// Bot long-polls Telegram and runs each command on its own goroutine.
type Bot struct {
	api        API
	dispatcher *Dispatcher
	sem        *semaphore.Weighted
	timeout    time.Duration
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func New(api API, dispatcher *Dispatcher, maxConcurrent int, timeout time.Duration, logger *slog.Logger) *Bot {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:        api,
		dispatcher: dispatcher,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		timeout:    timeout,
		logger:     logger,
	}
}

// Run polls until ctx is cancelled or the update channel closes, then
// waits for running commands to finish.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)

	b.logger.InfoContext(ctx, "Bot started, waiting for commands")
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.InfoContext(ctx, "Bot stopping", "reason", ctx.Err())
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			cmd, ok := CommandFromMessage(update.Message)
			if !ok {
				continue
			}
			if err := b.sem.Acquire(ctx, 1); err != nil {
				b.api.StopReceivingUpdates()
				return nil
			}
			b.wg.Add(1)
			go func(msgID int) {
				defer b.wg.Done()
				defer b.sem.Release(1)
				b.handle(ctx, cmd, msgID)
			}(update.Message.MessageID)
		}
	}
}

// handle runs a command to completion even when Run is stopping, bounded
// only by the command timeout.
func (b *Bot) handle(ctx context.Context, cmd Command, replyTo int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()

	reply := b.dispatcher.Dispatch(ctx, cmd)

	msg := tgbotapi.NewMessage(cmd.ChatID, reply.Text)
	msg.ReplyToMessageID = replyTo
	b.send(ctx, cmd, msg)

	for _, c := range reply.Charts {
		photo := tgbotapi.NewPhoto(cmd.ChatID, tgbotapi.FileBytes{Name: c.Name, Bytes: c.PNG})
		b.send(ctx, cmd, photo)
	}
}

func (b *Bot) send(ctx context.Context, cmd Command, c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.ErrorContext(ctx, "Failed to send reply",
			applog.FieldChatID, cmd.ChatID,
			applog.FieldCommand, cmd.Name,
			applog.FieldError, err)
	}
}

// CommandFromMessage extracts a command from a Telegram message. Messages
// that are not commands, or have no sender, are ignored.
func CommandFromMessage(m *tgbotapi.Message) (Command, bool) {
	if m == nil || m.From == nil || m.Chat == nil || !m.IsCommand() {
		return Command{}, false
	}
	return Command{
		UserID:    m.From.ID,
		FirstName: m.From.FirstName,
		ChatID:    m.Chat.ID,
		Name:      strings.ToLower(m.Command()),
		Args:      strings.Fields(m.CommandArguments()),
	}, true
}
