// Package registry holds the in-memory category to subscriber mapping. It performs
// no I/O; durable storage is handled by the caller.
package registry

import (
	"container/list"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"philcali.me/notifications/internal/exceptions"
	"philcali.me/notifications/internal/notifications"
)

// subscriberSet keeps subscribers in insertion order with O(1) lookup and removal.
type subscriberSet struct {
	order   *list.List
	entries map[string]*list.Element
}

func newSubscriberSet() *subscriberSet {
	return &subscriberSet{
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (s *subscriberSet) put(subscriber notifications.Subscriber) {
	if element, ok := s.entries[subscriber.URL]; ok {
		element.Value = subscriber
		return
	}
	s.entries[subscriber.URL] = s.order.PushBack(subscriber)
}

func (s *subscriberSet) remove(url string) {
	if element, ok := s.entries[url]; ok {
		s.order.Remove(element)
		delete(s.entries, url)
	}
}

func (s *subscriberSet) snapshot() []notifications.Subscriber {
	subscribers := make([]notifications.Subscriber, 0, s.order.Len())
	for element := s.order.Front(); element != nil; element = element.Next() {
		subscribers = append(subscribers, element.Value.(notifications.Subscriber))
	}
	return subscribers
}

type Registry struct {
	mu         sync.RWMutex
	categories map[string]*subscriberSet
}

func NewRegistry() *Registry {
	return &Registry{
		categories: make(map[string]*subscriberSet),
	}
}

func validate(category string, subscriber notifications.Subscriber) error {
	if strings.TrimSpace(category) == "" {
		return exceptions.InvalidInput("category is required")
	}
	if !subscriber.Valid() {
		return exceptions.InvalidInput("subscriber url is required")
	}
	return nil
}

// Subscribe adds the subscriber to the category or replaces the stored record of the
// same URL. The stored record is returned.
func (r *Registry) Subscribe(category string, subscriber notifications.Subscriber) (notifications.Subscriber, error) {
	if err := validate(category, subscriber); err != nil {
		return notifications.Subscriber{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.categories[category]
	if !ok {
		set = newSubscriberSet()
		r.categories[category] = set
	}
	set.put(subscriber)
	return subscriber, nil
}

// Unsubscribe removes the subscriber with the given URL. Removing an absent subscriber
// is not an error.
func (r *Registry) Unsubscribe(category string, url string) error {
	if err := validate(category, notifications.Subscriber{URL: url}); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.categories[category]
	if !ok {
		return nil
	}
	set.remove(url)
	if set.order.Len() == 0 {
		delete(r.categories, category)
	}
	return nil
}

// Replace swaps the whole subscriber set of a category, typically with what storage
// holds. Invalid records are skipped and counted.
func (r *Registry) Replace(category string, subscribers ...notifications.Subscriber) (skipped int) {
	set := newSubscriberSet()
	for _, subscriber := range subscribers {
		if validate(category, subscriber) != nil {
			skipped++
			continue
		}
		set.put(subscriber)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if set.order.Len() == 0 {
		delete(r.categories, category)
	} else {
		r.categories[category] = set
	}
	return skipped
}

func (r *Registry) ListSubscribers(category string) []notifications.Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.categories[category]
	if !ok {
		return make([]notifications.Subscriber, 0)
	}
	return set.snapshot()
}

func (r *Registry) ListAll() map[string][]notifications.Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make(map[string][]notifications.Subscriber, len(r.categories))
	for category, set := range r.categories {
		all[category] = set.snapshot()
	}
	return all
}

// Categories returns the known categories in lexical order.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	categories := maps.Keys(r.categories)
	r.mu.RUnlock()
	slices.Sort(categories)
	return categories
}
