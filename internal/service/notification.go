// Package service is the single entry point the HTTP and stream adapters call. It
// validates input, keeps storage and the registry in step, and hands notify requests
// to the dispatcher.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"philcali.me/notifications/internal/data"
	"philcali.me/notifications/internal/exceptions"
	"philcali.me/notifications/internal/notifications"
	"philcali.me/notifications/internal/registry"
)

// NotificationService keeps the registry in step with the optional repository. With a
// repository, storage is the source of truth: reads re-hydrate the registry first so
// every process sees writes made by the others.
type NotificationService struct {
	Registry   *registry.Registry
	Dispatcher *notifications.Dispatcher
	// Repository is optional; without it registrations live for the process only.
	Repository data.SubscriberRepository

	// mu is held exclusively by Load and shared by per-category work.
	mu      sync.RWMutex
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewNotificationService(registry *registry.Registry, dispatcher *notifications.Dispatcher, repository data.SubscriberRepository) *NotificationService {
	return &NotificationService{
		Registry:   registry,
		Dispatcher: dispatcher,
		Repository: repository,
	}
}

// lockCategory serializes the storage write and registry update of one category.
func (s *NotificationService) lockCategory(productType string) func() {
	s.mu.RLock()
	s.locksMu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := s.locks[productType]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[productType] = lock
	}
	s.locksMu.Unlock()
	lock.Lock()
	return func() {
		lock.Unlock()
		s.mu.RUnlock()
	}
}

func validateProductType(productType string) error {
	if strings.TrimSpace(productType) == "" {
		return exceptions.InvalidInput("product type is required")
	}
	return nil
}

func validateEndpoint(endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return exceptions.InvalidInput("subscriber url is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" {
		return exceptions.InvalidInput("subscriber url %q is not an absolute url", endpoint)
	}
	return nil
}

// Subscribe registers the subscriber for the product type. Subscribing an already
// registered URL replaces its stored record and is reported the same way as a new
// subscription.
func (s *NotificationService) Subscribe(ctx context.Context, productType string, subscriber notifications.Subscriber) (notifications.Subscriber, error) {
	if err := validateProductType(productType); err != nil {
		return notifications.Subscriber{}, err
	}
	if err := validateEndpoint(subscriber.URL); err != nil {
		return notifications.Subscriber{}, err
	}
	unlock := s.lockCategory(productType)
	defer unlock()
	if s.Repository != nil {
		if _, err := s.Repository.Put(ctx, productType, subscriber); err != nil {
			return notifications.Subscriber{}, err
		}
	}
	stored, err := s.Registry.Subscribe(productType, subscriber)
	if err != nil {
		return notifications.Subscriber{}, err
	}
	log.Info().Str("productType", productType).Str("url", stored.URL).Msg("Subscribed")
	return stored, nil
}

func (s *NotificationService) Unsubscribe(ctx context.Context, productType string, endpoint string) error {
	if err := validateProductType(productType); err != nil {
		return err
	}
	if strings.TrimSpace(endpoint) == "" {
		return exceptions.InvalidInput("subscriber url is required")
	}
	unlock := s.lockCategory(productType)
	defer unlock()
	if s.Repository != nil {
		if err := s.Repository.Delete(ctx, productType, endpoint); err != nil {
			return err
		}
	}
	if err := s.Registry.Unsubscribe(productType, endpoint); err != nil {
		return err
	}
	log.Info().Str("productType", productType).Str("url", endpoint).Msg("Unsubscribed")
	return nil
}

// Notify delivers the event to a snapshot of the current subscribers. Delivery
// failures are part of the report, not the error.
func (s *NotificationService) Notify(ctx context.Context, productType string, event notifications.Event) (notifications.DispatchReport, error) {
	if err := validateProductType(productType); err != nil {
		return notifications.DispatchReport{}, err
	}
	if !event.Status.Valid() {
		return notifications.DispatchReport{}, exceptions.InvalidInput(
			"status %q must be one of %s, %s, %s", event.Status,
			notifications.StatusCreated, notifications.StatusDeleted, notifications.StatusPromotion)
	}
	subscribers, err := s.ListSubscribers(ctx, productType)
	if err != nil {
		return notifications.DispatchReport{}, err
	}
	return s.Dispatcher.Dispatch(ctx, productType, event, subscribers), nil
}

// ListSubscribers returns the subscribers of the product type in registration order.
func (s *NotificationService) ListSubscribers(ctx context.Context, productType string) ([]notifications.Subscriber, error) {
	if err := validateProductType(productType); err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, productType); err != nil {
		return nil, err
	}
	return s.Registry.ListSubscribers(productType), nil
}

func (s *NotificationService) ListAll(ctx context.Context) (map[string][]notifications.Subscriber, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s.Registry.ListAll(), nil
}

// PageSubscribers reads one page of a product type straight from storage, in storage
// order. Without a repository the whole registry view is a single page.
func (s *NotificationService) PageSubscribers(ctx context.Context, productType string, params data.QueryParams) (data.QueryResults[notifications.Subscriber], error) {
	if err := validateProductType(productType); err != nil {
		return data.QueryResults[notifications.Subscriber]{}, err
	}
	if s.Repository == nil {
		return data.QueryResults[notifications.Subscriber]{Items: s.Registry.ListSubscribers(productType)}, nil
	}
	page, err := s.Repository.List(ctx, productType, params)
	if err != nil {
		return data.QueryResults[notifications.Subscriber]{}, err
	}
	items := make([]notifications.Subscriber, len(page.Items))
	for i, item := range page.Items {
		items[i] = item.ToSubscriber()
	}
	return data.QueryResults[notifications.Subscriber]{Items: items, NextToken: page.NextToken}, nil
}

func byCreateTime(items []data.SubscriberDTO) []notifications.Subscriber {
	slices.SortStableFunc(items, func(a, b data.SubscriberDTO) int {
		return a.CreateTime.Compare(b.CreateTime)
	})
	subscribers := make([]notifications.Subscriber, len(items))
	for i, item := range items {
		subscribers[i] = item.ToSubscriber()
	}
	return subscribers
}

// Load replaces the whole registry with what storage holds. Categories that no longer
// have persisted subscribers are dropped.
func (s *NotificationService) Load(ctx context.Context) error {
	if s.Repository == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	items, err := s.Repository.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load subscribers: %w", err)
	}
	grouped := make(map[string][]data.SubscriberDTO)
	for _, item := range items {
		grouped[item.Category] = append(grouped[item.Category], item)
	}
	for _, category := range s.Registry.Categories() {
		if _, ok := grouped[category]; !ok {
			s.Registry.Replace(category)
		}
	}
	for category, rows := range grouped {
		if skipped := s.Registry.Replace(category, byCreateTime(rows)...); skipped > 0 {
			log.Warn().Str("productType", category).Int("skipped", skipped).Msg("Skipped invalid persisted subscribers")
		}
	}
	log.Debug().Int("subscribers", len(items)).Int("categories", len(grouped)).Dur("took", time.Since(start)).Msg("Loaded subscribers")
	return nil
}

// Refresh replaces the registry view of one product type with what storage holds.
func (s *NotificationService) Refresh(ctx context.Context, productType string) error {
	if s.Repository == nil {
		return nil
	}
	if err := validateProductType(productType); err != nil {
		return err
	}
	unlock := s.lockCategory(productType)
	defer unlock()
	var items []data.SubscriberDTO
	params := data.QueryParams{}
	for {
		page, err := s.Repository.List(ctx, productType, params)
		if err != nil {
			return fmt.Errorf("failed to refresh subscribers of %s: %w", productType, err)
		}
		items = append(items, page.Items...)
		if len(page.NextToken) == 0 {
			break
		}
		params.NextToken = page.NextToken
	}
	s.Registry.Replace(productType, byCreateTime(items)...)
	return nil
}
