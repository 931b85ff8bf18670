package subscriptions

import (
	"philcali.me/notifications/internal/exceptions"
	"philcali.me/notifications/internal/notifications"
)

type SubscriberInput struct {
	URL  *string `json:"url"`
	Name *string `json:"name"`
}

func (s *SubscriberInput) toSubscriber() (notifications.Subscriber, error) {
	if s.URL == nil {
		return notifications.Subscriber{}, exceptions.InvalidInput("subscriber url is required")
	}
	subscriber := notifications.Subscriber{URL: *s.URL}
	if s.Name != nil {
		subscriber.Name = *s.Name
	}
	return subscriber, nil
}

type EventInput struct {
	ProductTitle string `json:"productTitle"`
	ProductURL   string `json:"productUrl"`
	Status       string `json:"status"`
}

func (e *EventInput) toEvent() notifications.Event {
	return notifications.Event{
		ProductTitle: e.ProductTitle,
		ProductURL:   e.ProductURL,
		Status:       notifications.Status(e.Status),
	}
}

type SubscriberList struct {
	Category  string                     `json:"category"`
	Items     []notifications.Subscriber `json:"items"`
	NextToken string                     `json:"nextToken,omitempty"`
}

type AllSubscribers struct {
	Items map[string][]notifications.Subscriber `json:"items"`
}
