package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultDeliveryTimeout     = 10 * time.Second
	DefaultDispatchConcurrency = 8
)

type DeliveryStatus string

const (
	Delivered DeliveryStatus = "delivered"
	Failed    DeliveryStatus = "failed"
)

type Delivery struct {
	URL    string         `json:"url"`
	Name   string         `json:"name,omitempty"`
	Status DeliveryStatus `json:"status"`
	Error  string         `json:"error,omitempty"`
}

type DispatchReport struct {
	Id         string     `json:"id"`
	Category   string     `json:"category"`
	Status     Status     `json:"status"`
	Deliveries []Delivery `json:"deliveries"`
	Delivered  int        `json:"delivered"`
	Failed     int        `json:"failed"`
}

type Dispatcher struct {
	Deliverer   Deliverer
	Timeout     time.Duration
	Concurrency int
}

type DispatcherOption func(*Dispatcher)

func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.Timeout = timeout
		}
	}
}

func WithConcurrency(limit int) DispatcherOption {
	return func(d *Dispatcher) {
		if limit > 0 {
			d.Concurrency = limit
		}
	}
}

func NewDispatcher(deliverer Deliverer, opts ...DispatcherOption) *Dispatcher {
	dispatcher := &Dispatcher{
		Deliverer:   deliverer,
		Timeout:     DefaultDeliveryTimeout,
		Concurrency: DefaultDispatchConcurrency,
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	return dispatcher
}

// Dispatch makes exactly one delivery attempt per subscriber. A failing subscriber is
// recorded in the report and never stops the attempts to the others. Deliveries keep
// the order of the given subscribers.
func (d *Dispatcher) Dispatch(ctx context.Context, category string, event Event, subscribers []Subscriber) DispatchReport {
	report := DispatchReport{
		Id:         uuid.NewString(),
		Category:   category,
		Status:     event.Status,
		Deliveries: make([]Delivery, len(subscribers)),
	}
	var group errgroup.Group
	if d.Concurrency > 0 {
		group.SetLimit(d.Concurrency)
	}
	for i, subscriber := range subscribers {
		i, subscriber := i, subscriber
		group.Go(func() error {
			report.Deliveries[i] = d.attempt(ctx, NewNotification(report.Id, category, event, subscriber), subscriber)
			return nil
		})
	}
	_ = group.Wait()
	for _, delivery := range report.Deliveries {
		if delivery.Status == Delivered {
			report.Delivered++
		} else {
			report.Failed++
		}
	}
	log.Info().
		Str("id", report.Id).
		Str("category", category).
		Str("status", string(event.Status)).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Msg("Dispatched notification")
	return report
}

func (d *Dispatcher) attempt(ctx context.Context, notification Notification, subscriber Subscriber) (delivery Delivery) {
	delivery = Delivery{
		URL:    subscriber.URL,
		Name:   subscriber.Name,
		Status: Delivered,
	}
	defer func() {
		if r := recover(); r != nil {
			delivery.Status = Failed
			delivery.Error = fmt.Sprintf("deliverer panicked: %v", r)
			log.Error().Str("url", subscriber.URL).Interface("panic", r).Msg("Deliverer panicked")
		}
	}()
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	if err := d.Deliverer.Deliver(ctx, subscriber, notification); err != nil {
		delivery.Status = Failed
		delivery.Error = err.Error()
		log.Warn().Err(err).
			Str("id", notification.Id).
			Str("category", notification.ProductType).
			Str("url", subscriber.URL).
			Msg("Failed to deliver notification")
	}
	return delivery
}
