package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Kinds of catalog entities announced on the change channel.
const (
	KindSchedule = "schedule"
	KindCompany  = "company"
)

// CatalogPubSub announces schedule and company changes so that every
// instance drops its cached copies.
type CatalogPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewCatalogPubSub(rdb *redis.Client) *CatalogPubSub {
	if rdb == nil {
		return nil
	}
	return &CatalogPubSub{
		rdb:     rdb,
		channel: ChannelCatalogChanged(),
	}
}

type catalogChangedMsg struct {
	Type   string    `json:"type"`
	Kind   string    `json:"kind"`
	ID     uuid.UUID `json:"id"`
	TsUnix int64     `json:"ts_unix"`
}

func (p *CatalogPubSub) publish(ctx context.Context, kind string, id uuid.UUID) error {
	if p == nil {
		return nil
	}

	msg := catalogChangedMsg{
		Type:   "catalog_changed",
		Kind:   kind,
		ID:     id,
		TsUnix: time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *CatalogPubSub) PublishScheduleChanged(ctx context.Context, id uuid.UUID) error {
	return p.publish(ctx, KindSchedule, id)
}

func (p *CatalogPubSub) PublishCompanyChanged(ctx context.Context, id uuid.UUID) error {
	return p.publish(ctx, KindCompany, id)
}

// Subscribe blocks, calling handler for every change message, until ctx is done.
func (p *CatalogPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, kind string, id uuid.UUID)) error {
	if p == nil {
		<-ctx.Done()
		return nil
	}

	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev catalogChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.ID != uuid.Nil {
				handler(ctx, ev.Kind, ev.ID)
			}
		}
	}
}
