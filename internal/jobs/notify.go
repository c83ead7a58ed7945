package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "resident/pkg/logx"
	"resident/pkg/resident"
	"resident/pkg/retry"
)

// Sender is the part of *tele.Bot the notifier uses.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// NewTelegramBot builds an offline bot: no long polling, send only.
func NewTelegramBot(token string) (*tele.Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	return tele.NewBot(tele.Settings{Token: token, Offline: true})
}

// StatusFunc renders the message body for a tick.
type StatusFunc func(ctx context.Context, now time.Time) (string, error)

// NotifyTask returns a looper task that posts StatusFunc's text to chat on
// every tick. Send failures are retried per policy and then logged.
func NotifyTask(s Sender, chat int64, status StatusFunc, policy retry.Policy, log logx.Logger) resident.Task {
	if log.IsZero() {
		log = logx.Nop()
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	to := tele.ChatID(chat)

	return func(ctx context.Context, now time.Time) resident.LoopState {
		text, err := status(ctx, now)
		if err != nil {
			log.Warn("notify: status failed", logx.Err(err))
			return resident.Continue()
		}
		res, err := retry.Do(ctx, policy, func(context.Context, int) error {
			_, err := s.Send(to, text)
			return err
		})
		if err != nil {
			return resident.Continue()
		}
		if !res.OK {
			log.Warn("notify: send failed", logx.Int("attempts", res.Attempts()), logx.Err(res.Err()))
			return resident.Continue()
		}
		log.Debug("notify: sent", logx.Int64("chat_id", chat))
		return resident.Continue()
	}
}

// StatusText is the default notifier body.
func StatusText(host string, now time.Time, pending int64, cached int) string {
	return fmt.Sprintf("resident on %s\n%s\npending jobs: %d\ncached accounts: %d",
		host, now.Format(time.RFC3339), pending, cached)
}
