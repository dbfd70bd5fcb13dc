package orders

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutCompletedEvent is the payload the outbox publisher writes.
type CheckoutCompletedEvent struct {
	CheckoutID  string          `json:"checkout_id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaymentID   string          `json:"payment_id"`
	CompletedAt time.Time       `json:"completed_at"`
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	history History
	reader  MessageReader
	log     *zap.Logger
}

func NewConsumer(history History, log *zap.Logger, topic string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "tienda-purchase-history",
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(history, reader, log)
}

func newConsumer(history History, reader MessageReader, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{history: history, reader: reader, log: log}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn("error closing kafka reader", zap.Error(err))
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.log.Error("error reading message", zap.Error(err))
		return
	}

	var event CheckoutCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.log.Error("error parsing message", zap.Error(err), zap.ByteString("key", m.Key))
		return
	}

	checkoutID, err := uuid.Parse(event.CheckoutID)
	if err != nil {
		c.log.Error("invalid checkout_id", zap.String("checkout_id", event.CheckoutID), zap.Error(err))
		return
	}
	if event.UserID == "" {
		c.log.Error("checkout event without user", zap.String("checkout_id", event.CheckoutID))
		return
	}

	paidAt := event.CompletedAt
	if paidAt.IsZero() {
		paidAt = m.Time
	}

	purchase := &Purchase{
		ID:         uuid.New(),
		CheckoutID: checkoutID,
		UserID:     event.UserID,
		Amount:     event.Amount,
		Currency:   event.Currency,
		PaymentID:  event.PaymentID,
		PaidAt:     paidAt.UTC(),
	}

	if err := c.history.Record(ctx, purchase); err != nil {
		if errors.Is(err, ErrDuplicateCheckout) {
			c.log.Info("purchase already recorded, skipping", zap.String("checkout_id", event.CheckoutID))
			return
		}
		c.log.Error("failed to record purchase", zap.String("checkout_id", event.CheckoutID), zap.Error(err))
		return
	}

	c.log.Info("purchase recorded",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("checkout_id", event.CheckoutID))
}
