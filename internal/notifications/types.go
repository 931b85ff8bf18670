package notifications

import (
	"context"
	"strings"
)

// Subscriber is an endpoint registered for a product category. The URL is the
// identity of the subscriber within a category.
type Subscriber struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

func (s Subscriber) Valid() bool {
	return strings.TrimSpace(s.URL) != ""
}

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusDeleted   Status = "DELETED"
	StatusPromotion Status = "PROMOTION"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusDeleted, StatusPromotion:
		return true
	}
	return false
}

// Event is something that happened to a product of a category.
type Event struct {
	ProductTitle string `json:"productTitle"`
	ProductURL   string `json:"productUrl"`
	Status       Status `json:"status"`
}

// Notification is the payload a single subscriber receives for an event.
type Notification struct {
	Id             string `json:"notificationId"`
	ProductTitle   string `json:"productTitle"`
	ProductType    string `json:"productType"`
	ProductURL     string `json:"productUrl"`
	SubscriberName string `json:"subscriberName"`
	Status         Status `json:"status"`
}

func NewNotification(id string, category string, event Event, subscriber Subscriber) Notification {
	return Notification{
		Id:             id,
		ProductTitle:   event.ProductTitle,
		ProductType:    category,
		ProductURL:     event.ProductURL,
		SubscriberName: subscriber.Name,
		Status:         event.Status,
	}
}

type Deliverer interface {
	Deliver(ctx context.Context, subscriber Subscriber, notification Notification) error
}

type DelivererFunc func(ctx context.Context, subscriber Subscriber, notification Notification) error

func (f DelivererFunc) Deliver(ctx context.Context, subscriber Subscriber, notification Notification) error {
	return f(ctx, subscriber, notification)
}
