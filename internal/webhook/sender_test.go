package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/notifications/internal/exceptions"
	"philcali.me/notifications/internal/notifications"
	"philcali.me/notifications/internal/webhook"
)

var notification = notifications.Notification{
	Id:             "c0ffee",
	ProductTitle:   "Toaster",
	ProductType:    "electronics",
	ProductURL:     "http://shop/products/toaster",
	SubscriberName: "A",
	Status:         notifications.StatusCreated,
}

func TestSenderDeliver(t *testing.T) {
	t.Parallel()

	var received notifications.Notification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, webhook.UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "c0ffee", r.Header.Get("X-Notification-Id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	err := webhook.NewSender().Deliver(context.Background(), notifications.Subscriber{URL: server.URL, Name: "A"}, notification)
	require.NoError(t, err)
	assert.Equal(t, notification, received)
}

func TestSenderDeliverRejectedStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte("subscriber\nwent away"))
	}))
	defer server.Close()

	err := webhook.NewSender().Deliver(context.Background(), notifications.Subscriber{URL: server.URL}, notification)
	require.Error(t, err)
	var failed *exceptions.DeliveryFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, server.URL, failed.Endpoint)
	assert.ErrorIs(t, err, webhook.ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "410: subscriber went away")
}

func TestSenderDeliverTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := webhook.NewSenderWithClient(server.Client()).Deliver(ctx, notifications.Subscriber{URL: server.URL}, notification)
	assert.ErrorIs(t, err, webhook.ErrTimeout)
}

func TestSenderDeliverUnreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := webhook.NewSender().Deliver(context.Background(), notifications.Subscriber{URL: url}, notification)
	var failed *exceptions.DeliveryFailedError
	assert.True(t, errors.As(err, &failed))
}
