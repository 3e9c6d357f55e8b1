package ingestion

import (
	"StakeLedger/internal/store"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const (
	activityStream        = "STAKE_LEDGER_ACTIVITY"
	activitySubjectPrefix = "stake.ledger.activity"
)

// Publisher forwards activity feed entries to JetStream for downstream
// consumers. Best-effort: a failed publish is logged and dropped, since
// consumers can always re-read the feed through the query surface.
type Publisher struct {
	js    jetstream.JetStream
	input <-chan *store.Activity
	log   zerolog.Logger
}

// activityMessage is the wire shape of one feed entry.
type activityMessage struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	PlayerID   string `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
	Amount     string `json:"amount,omitempty"`
	SystemID   string `json:"system_id,omitempty"`
	Period     string `json:"period,omitempty"`
	Date       string `json:"date"`
}

func NewPublisher(js jetstream.JetStream, input <-chan *store.Activity, log zerolog.Logger) *Publisher {
	return &Publisher{js: js, input: input, log: log}
}

// EnsureActivityStream creates the outbound activity stream.
func EnsureActivityStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      activityStream,
		Subjects:  []string{activitySubjectPrefix + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", activityStream, err)
	}
	return nil
}

// Run publishes entries until ctx is cancelled or the input channel closes.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-p.input:
			if !ok {
				return
			}
			if err := p.publish(ctx, a); err != nil {
				p.log.Warn().Err(err).Str("activity_id", a.ID).Msg("activity publish failed")
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, a *store.Activity) error {
	msg := activityMessage{
		ID:         a.ID,
		Type:       string(a.Type),
		PlayerID:   a.PlayerID,
		PlayerName: a.PlayerName,
		SystemID:   a.SystemID,
		Period:     a.Period,
		Date:       a.Date.UTC().Format(time.RFC3339),
	}
	if a.Type == store.ActivityDeposit || a.Type == store.ActivityWithdrawal {
		msg.Amount = a.Amount.String()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", activitySubjectPrefix, a.Type)
	_, err = p.js.Publish(ctx, subject, data)
	return err
}
