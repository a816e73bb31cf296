package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/richardliu001/pix-settlement/internal/model"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

// Notification is an event addressed to a set of users, dispatched via the outbox.
type Notification struct {
	Aggregate   string
	AggregateID uint64
	EventType   string
	Recipients  []uint64
	Payload     interface{}
}

type notificationEnvelope struct {
	EventType  string      `json:"event_type"`
	Recipients []uint64    `json:"recipients"`
	Payload    interface{} `json:"payload"`
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return tx.WithContext(ctx).Create(evt).Error
}

// Notify stores n in the outbox inside the caller's transaction.
func (r *Repository) Notify(ctx context.Context, tx *gorm.DB, n Notification) error {
	payload, err := json.Marshal(notificationEnvelope{
		EventType: n.EventType, Recipients: n.Recipients, Payload: n.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return r.CreateOutboxEvent(ctx, tx, &model.OutboxEvent{
		Aggregate: n.Aggregate, AggregateID: n.AggregateID,
		EventType: n.EventType, Payload: string(payload),
	})
}

// PollOutbox pulls unprocessed events.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("processed = ?", false).Order("id").Limit(limit).Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed sets processed flag.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
}

// PublishEvent sends to Kafka.
func (r *Repository) PublishEvent(ctx context.Context, evt model.OutboxEvent) error {
	if r.writer == nil {
		return errors.New("kafka writer not configured")
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", evt.ID)),
		Value: []byte(evt.Payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
		},
		Time: time.Now(),
	}
	return r.writer.WriteMessages(ctx, msg)
}
