package notifications

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"philcali.me/notifications/internal/exceptions"
)

// ProtocolDeliverer picks a Deliverer from the scheme of the subscriber URL, so
// "https://..." and "arn:aws:sns:..." subscribers can live in the same category.
type ProtocolDeliverer struct {
	Protocols map[string]Deliverer
}

func NewProtocolDeliverer() *ProtocolDeliverer {
	return &ProtocolDeliverer{
		Protocols: make(map[string]Deliverer),
	}
}

func (pd *ProtocolDeliverer) Register(deliverer Deliverer, schemes ...string) *ProtocolDeliverer {
	for _, scheme := range schemes {
		pd.Protocols[strings.ToLower(scheme)] = deliverer
	}
	return pd
}

func (pd *ProtocolDeliverer) Deliver(ctx context.Context, subscriber Subscriber, notification Notification) error {
	endpoint, err := url.Parse(subscriber.URL)
	if err != nil {
		return exceptions.DeliveryFailed(subscriber.URL, err)
	}
	deliverer, ok := pd.Protocols[strings.ToLower(endpoint.Scheme)]
	if !ok {
		return exceptions.DeliveryFailed(subscriber.URL, fmt.Errorf("unsupported protocol %q", endpoint.Scheme))
	}
	return deliverer.Deliver(ctx, subscriber, notification)
}
