package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/notifications/internal/exceptions"
	"philcali.me/notifications/internal/notifications"
)

func TestRegistry(t *testing.T) {
	t.Run("SubscribeIsIdempotent", func(t *testing.T) {
		registry := NewRegistry()
		_, err := registry.Subscribe("electronics", notifications.Subscriber{URL: "http://a", Name: "first"})
		require.NoError(t, err)
		stored, err := registry.Subscribe("electronics", notifications.Subscriber{URL: "http://a", Name: "second"})
		require.NoError(t, err)
		assert.Equal(t, "second", stored.Name)

		subscribers := registry.ListSubscribers("electronics")
		assert.Equal(t, []notifications.Subscriber{{URL: "http://a", Name: "second"}}, subscribers)
	})

	t.Run("ResubscribeKeepsInsertionOrder", func(t *testing.T) {
		registry := NewRegistry()
		for _, url := range []string{"http://a", "http://b", "http://c"} {
			_, err := registry.Subscribe("books", notifications.Subscriber{URL: url})
			require.NoError(t, err)
		}
		_, err := registry.Subscribe("books", notifications.Subscriber{URL: "http://a", Name: "renamed"})
		require.NoError(t, err)
		assert.Equal(t, []notifications.Subscriber{
			{URL: "http://a", Name: "renamed"},
			{URL: "http://b"},
			{URL: "http://c"},
		}, registry.ListSubscribers("books"))
	})

	t.Run("UnsubscribeIsIdempotent", func(t *testing.T) {
		registry := NewRegistry()
		_, err := registry.Subscribe("books", notifications.Subscriber{URL: "http://a"})
		require.NoError(t, err)
		require.NoError(t, registry.Unsubscribe("books", "http://never"))
		require.NoError(t, registry.Unsubscribe("unknown", "http://a"))
		assert.Len(t, registry.ListSubscribers("books"), 1)

		require.NoError(t, registry.Unsubscribe("books", "http://a"))
		require.NoError(t, registry.Unsubscribe("books", "http://a"))
		assert.Empty(t, registry.ListSubscribers("books"))
		assert.NotContains(t, registry.ListAll(), "books")
	})

	t.Run("CategoriesAreIsolated", func(t *testing.T) {
		registry := NewRegistry()
		_, err := registry.Subscribe("electronics", notifications.Subscriber{URL: "http://a"})
		require.NoError(t, err)
		assert.Empty(t, registry.ListSubscribers("books"))
		assert.NotNil(t, registry.ListSubscribers("books"))
		assert.Empty(t, registry.ListSubscribers("Electronics"))
	})

	t.Run("InvalidInput", func(t *testing.T) {
		registry := NewRegistry()
		var invalid *exceptions.InvalidInputError
		_, err := registry.Subscribe("", notifications.Subscriber{URL: "http://a"})
		assert.True(t, errors.As(err, &invalid))
		_, err = registry.Subscribe("books", notifications.Subscriber{URL: "  "})
		assert.True(t, errors.As(err, &invalid))
		assert.True(t, errors.As(registry.Unsubscribe(" ", "http://a"), &invalid))
		assert.True(t, errors.As(registry.Unsubscribe("books", ""), &invalid))
		assert.Empty(t, registry.ListAll())
	})

	t.Run("SnapshotsAreCopies", func(t *testing.T) {
		registry := NewRegistry()
		_, err := registry.Subscribe("books", notifications.Subscriber{URL: "http://a"})
		require.NoError(t, err)
		snapshot := registry.ListSubscribers("books")
		snapshot[0].Name = "mutated"
		all := registry.ListAll()
		all["books"][0].Name = "mutated"
		assert.Equal(t, "", registry.ListSubscribers("books")[0].Name)
	})

	t.Run("ReplaceSwapsCategory", func(t *testing.T) {
		registry := NewRegistry()
		_, err := registry.Subscribe("books", notifications.Subscriber{URL: "http://stale"})
		require.NoError(t, err)
		skipped := registry.Replace("books", notifications.Subscriber{URL: "http://a"}, notifications.Subscriber{}, notifications.Subscriber{URL: "http://b"})
		assert.Equal(t, 1, skipped)
		assert.Equal(t, []notifications.Subscriber{{URL: "http://a"}, {URL: "http://b"}}, registry.ListSubscribers("books"))
		assert.Equal(t, 1, registry.Replace("", notifications.Subscriber{URL: "http://c"}))
		assert.Equal(t, []string{"books"}, registry.Categories())

		registry.Replace("books")
		assert.Empty(t, registry.ListAll())
	})
}

func TestRegistryConcurrentSubscribe(t *testing.T) {
	registry := NewRegistry()
	const n = 200
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := registry.Subscribe("electronics", notifications.Subscriber{URL: fmt.Sprintf("http://subscriber/%d", i)})
			errs <- err
			registry.ListSubscribers("electronics")
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, registry.ListSubscribers("electronics"), n)
}
