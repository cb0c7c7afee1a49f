// Package events publishes case lifecycle events to Kafka for downstream
// consumers (email templates, analytics). Delivery is best effort: a failed
// publish is logged and never fails the initiating request.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/90brandingllc/poveda-portal-sub001/internal/domain"
)

type CaseEvent struct {
	Event     string        `json:"event"`
	Kind      domain.Kind   `json:"kind"`
	CaseID    string        `json:"case_id"`
	Status    domain.Status `json:"status,omitempty"`
	Actor     string        `json:"actor,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type Publisher struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

func NewPublisher(brokers []string, topic string, log *zap.SugaredLogger) *Publisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Publisher{writer: w, log: log}
}

func (p *Publisher) publish(ctx context.Context, ev CaseEvent) {
	if p == nil || p.writer == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	value, _ := json.Marshal(ev)
	msg := kafka.Message{Key: []byte(ev.CaseID), Value: value, Time: ev.Timestamp}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warnw("event publish failed", "event", ev.Event, "case", ev.CaseID, "err", err)
	}
}

func (p *Publisher) CaseCreated(ctx context.Context, c domain.Case) {
	base := c.Base()
	p.publish(ctx, CaseEvent{Event: "case.created", Kind: c.Kind(), CaseID: base.ID, Status: base.Status})
}

func (p *Publisher) StatusChanged(ctx context.Context, kind domain.Kind, id string, status domain.Status, actor string) {
	p.publish(ctx, CaseEvent{Event: "case.status_changed", Kind: kind, CaseID: id, Status: status, Actor: actor})
}

func (p *Publisher) MessageAppended(ctx context.Context, kind domain.Kind, id, actor string) {
	p.publish(ctx, CaseEvent{Event: "case.message", Kind: kind, CaseID: id, Actor: actor})
}

func (p *Publisher) CaseDeleted(ctx context.Context, kind domain.Kind, id, actor string) {
	p.publish(ctx, CaseEvent{Event: "case.deleted", Kind: kind, CaseID: id, Actor: actor})
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
