package data

import (
	"context"
	"time"

	"philcali.me/notifications/internal/notifications"
)

const SubscriberEntity = "Subscriber"

type SubscriberDTO struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	EntityType string    `dynamodbav:"entityType"`
	Category   string    `dynamodbav:"category"`
	URL        string    `dynamodbav:"url"`
	Name       string    `dynamodbav:"name"`
	CreateTime time.Time `dynamodbav:"createTime"`
	UpdateTime time.Time `dynamodbav:"updateTime"`
}

func (s SubscriberDTO) ToSubscriber() notifications.Subscriber {
	return notifications.Subscriber{
		URL:  s.URL,
		Name: s.Name,
	}
}

// SubscriberRepository persists registrations so a fresh process can restore them.
type SubscriberRepository interface {
	Put(ctx context.Context, category string, subscriber notifications.Subscriber) (SubscriberDTO, error)
	Delete(ctx context.Context, category string, url string) error
	List(ctx context.Context, category string, params QueryParams) (QueryResults[SubscriberDTO], error)
	ListAll(ctx context.Context) ([]SubscriberDTO, error)
}
