package ingestion

import (
	"StakeLedger/internal/core"
	"StakeLedger/internal/observability"
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const (
	commandStream   = "STAKE_COMMANDS"
	commandSubject  = "stake.commands.>"
	commandConsumer = "stake-ledger-commands"
)

// Subscriber consumes ledger commands from JetStream and applies them to the
// core. One consumer, explicit ACK: commands for a system are applied in
// delivery order. Every outcome is ACKed: parse failures and business
// rejections are terminal and must not redeliver; only a queue-full NAK
// retries.
type Subscriber struct {
	js      jetstream.JetStream
	core    *core.Core
	dedup   *Dedup
	log     zerolog.Logger
	metrics *observability.Metrics
	cc      jetstream.ConsumeContext
}

func NewSubscriber(js jetstream.JetStream, c *core.Core, dedup *Dedup, log zerolog.Logger, metrics *observability.Metrics) *Subscriber {
	return &Subscriber{js: js, core: c, dedup: dedup, log: log, metrics: metrics}
}

// EnsureCommandStream creates the command stream if it does not exist.
func EnsureCommandStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      commandStream,
		Subjects:  []string{commandSubject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", commandStream, err)
	}
	return nil
}

// Start creates the durable consumer and begins applying commands.
func (s *Subscriber) Start(ctx context.Context) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, commandStream, jetstream.ConsumerConfig{
		Durable:       commandConsumer,
		FilterSubject: commandSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", commandConsumer, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		s.handle(msg)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", commandConsumer, err)
	}
	s.cc = cc
	s.log.Info().Str("subject", commandSubject).Str("consumer", commandConsumer).Msg("command subscriber started")
	return nil
}

// Stop halts consumption. In-flight handlers finish first.
func (s *Subscriber) Stop() {
	if s.cc != nil {
		s.cc.Stop()
	}
}

func (s *Subscriber) handle(msg jetstream.Msg) {
	cmd, err := Parse(msg.Data())
	if err != nil {
		s.log.Warn().Err(err).Str("subject", msg.Subject()).Msg("command discarded")
		s.count("unknown", "parse_error")
		msg.Ack()
		return
	}

	if s.dedup.Seen(cmd.CommandID) {
		if s.metrics != nil {
			s.metrics.IngestDuplicates.Inc()
		}
		s.count(cmd.Kind, "duplicate")
		msg.Ack()
		return
	}

	if err := s.apply(cmd); err != nil {
		// Business rejections are deterministic; redelivery would reject again.
		s.log.Warn().Err(err).Str("command", cmd.Kind).Str("command_id", cmd.CommandID).Msg("command rejected")
		s.count(cmd.Kind, "rejected")
		msg.Ack()
		return
	}

	s.count(cmd.Kind, "applied")
	msg.Ack()
}

func (s *Subscriber) apply(cmd *Command) error {
	switch cmd.Kind {
	case KindCreateSystem:
		_, err := s.core.CreateSystem(*cmd.CreateSystem)
		return err
	case KindAddPlayer:
		_, err := s.core.AddPlayer(*cmd.AddPlayer)
		return err
	case KindAddTransaction:
		_, err := s.core.AddTransaction(*cmd.AddTransaction)
		return err
	case KindDeleteTransaction:
		return s.core.DeleteTransaction(cmd.DeleteTransactionID)
	case KindCreateSettlement:
		_, err := s.core.CreateSettlement(*cmd.CreateSettlement)
		return err
	case KindFinalizeSettlement:
		return s.core.FinalizeSettlement(cmd.FinalizeSettlementID, cmd.FinalizeAt)
	case KindUnlockPeriod:
		return s.core.UnlockSettlementPeriod(cmd.Unlock.SystemID, cmd.Unlock.StartDate, cmd.Unlock.EndDate)
	default:
		return fmt.Errorf("unhandled command %q", cmd.Kind)
	}
}

func (s *Subscriber) count(command, outcome string) {
	if s.metrics != nil {
		s.metrics.IngestCommands.WithLabelValues(command, outcome).Inc()
	}
}

// Connect establishes a NATS connection with unlimited reconnects and
// returns a JetStream context.
func Connect(url string, log zerolog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	return nc, js, nil
}
