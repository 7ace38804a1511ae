package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"gamecredits/events"
	"gamecredits/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Embed colors
const (
	colorSuccess = 0x2ecc71
	colorWarning = 0xf1c40f
	colorDanger  = 0xe74c3c
	colorInfo    = 0x3498db
)

// webhookExecutor is the discordgo call the notifier needs
type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier announces settlement outcomes to a Discord channel webhook
type DiscordNotifier struct {
	executor  webhookExecutor
	webhookID string
	token     string
}

// NewDiscordNotifier creates a notifier backed by an unauthenticated discordgo session.
// Webhook execution needs only the webhook id and token.
func NewDiscordNotifier(webhookID, token string) (*DiscordNotifier, error) {
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return newDiscordNotifier(session, webhookID, token), nil
}

func newDiscordNotifier(executor webhookExecutor, webhookID, token string) *DiscordNotifier {
	return &DiscordNotifier{
		executor:  executor,
		webhookID: webhookID,
		token:     token,
	}
}

// Subscribe announces the events players care about
func (n *DiscordNotifier) Subscribe(bus *events.Bus) {
	handler := func(ctx context.Context, event events.Event) {
		if err := n.Notify(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to send Discord notification")
		}
	}
	bus.Subscribe(events.EventTypeBettingEventResolved, handler)
	bus.Subscribe(events.EventTypeBettingEventCancelled, handler)
	bus.Subscribe(events.EventTypeLoanStateChanged, handler)
	bus.Subscribe(events.EventTypeStipendRunCompleted, handler)
}

// Notify posts an embed for the event; events without an announcement are ignored
func (n *DiscordNotifier) Notify(event events.Event) error {
	embed := buildEmbed(event)
	if embed == nil {
		return nil
	}

	_, err := n.executor.WebhookExecute(n.webhookID, n.token, false, &discordgo.WebhookParams{
		Username: "Game Credits",
		Embeds:   []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		return fmt.Errorf("failed to execute webhook: %w", err)
	}
	return nil
}

func buildEmbed(event events.Event) *discordgo.MessageEmbed {
	switch e := event.(type) {
	case events.BettingEventResolvedEvent:
		return &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("🏁 %s resolved", e.Title),
			Description: fmt.Sprintf("Winning option: **%s**", e.WinningLabel),
			Color:       colorSuccess,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Winners", Value: fmt.Sprintf("%d", e.WinnerCount), Inline: true},
				{Name: "Losers", Value: fmt.Sprintf("%d", e.LoserCount), Inline: true},
				{Name: "Paid Out", Value: formatCredits(e.TotalPaidOut), Inline: true},
			},
		}

	case events.BettingEventCancelledEvent:
		return &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("🚫 %s cancelled", e.Title),
			Description: fmt.Sprintf("Refunded %d bets totalling %s.", e.RefundedBets, formatCredits(e.TotalRefunded)),
			Color:       colorWarning,
		}

	case events.LoanStateChangedEvent:
		if e.NewStatus != models.LoanStatusDefaulted {
			return nil
		}
		return &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("💸 Loan #%d defaulted", e.LoanID),
			Description: fmt.Sprintf("Player %d did not repay %s by the due date.", e.BorrowerID, formatCredits(e.Amount)),
			Color:       colorDanger,
		}

	case events.StipendRunCompletedEvent:
		if e.GrantedCount == 0 {
			return nil
		}
		return &discordgo.MessageEmbed{
			Title:       "📅 Weekly stipends paid",
			Description: fmt.Sprintf("%d players received %s in total.", e.GrantedCount, formatCredits(e.TotalGranted)),
			Color:       colorInfo,
		}

	default:
		return nil
	}
}

// formatCredits renders an amount with thousand separators
func formatCredits(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	str := fmt.Sprintf("%d", amount)
	n := len(str)

	var result strings.Builder
	result.WriteString(sign)
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	result.WriteString(" credits")

	return result.String()
}
