// Package notify pushes job-run summaries to Telegram. Notification failures
// are logged and never affect the run outcome.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/openquiver/congresstrader/internal/openjob"
)

// Notifier sends run summaries to a single chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// New returns nil (and no error) when token or chatID are unset, so callers
// can treat notifications as strictly optional.
func New(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: telegram auth: %w", err)
	}
	return &Notifier{api: api, chatID: chatID}, nil
}

// NotifyRun formats and sends the outcome of one open-job run.
func (n *Notifier) NotifyRun(tradingDate string, result *openjob.Result) {
	if n == nil {
		return
	}

	var b strings.Builder
	icon := "✅"
	if result.Status != "success" {
		icon = "🚨"
	}
	fmt.Fprintf(&b, "%s Open job %s — %s\n", icon, tradingDate, strings.ToUpper(result.Status))

	if s := result.Summary; s != nil {
		fmt.Fprintf(&b, "Considered: %d prev / %d curr\n",
			s.Windows.Previous.FilingsConsidered, s.Windows.Current.FilingsConsidered)
		fmt.Fprintf(&b, "Trades: %d attempted, %d submitted, %d fallback, %d blocked, %d dry-run\n",
			s.Trades.Attempted, s.Trades.Submitted, s.Trades.FallbackUsed,
			s.Trades.GuardrailBlocked, s.Trades.DryRunSkipped)
		if len(s.Errors) > 0 {
			fmt.Fprintf(&b, "Errors: %d\n", len(s.Errors))
			for i, e := range s.Errors {
				if i == 5 {
					fmt.Fprintf(&b, "…and %d more\n", len(s.Errors)-5)
					break
				}
				fmt.Fprintf(&b, "• %s %s\n", e.Symbol, e.Error)
			}
		}
		if s.Error != "" {
			fmt.Fprintf(&b, "Fatal: %s\n", s.Error)
		}
	}

	msg := tgbotapi.NewMessage(n.chatID, b.String())
	if _, err := n.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("Telegram notification failed")
	}
}
