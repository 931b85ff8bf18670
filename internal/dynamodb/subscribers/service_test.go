package subscribers_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/notifications/internal/data"
	"philcali.me/notifications/internal/dynamodb/subscribers"
	"philcali.me/notifications/internal/dynamodb/token"
	"philcali.me/notifications/internal/notifications"
	"philcali.me/notifications/internal/test"
)

func NewSubscriberRepository(t *testing.T) (data.SubscriberRepository, *test.LocalDynamo) {
	local := test.NewLocalDynamo(t, test.LocalDynamoPort+1)
	t.Logf("Created table %s on port %d", local.Table, local.Port)
	return subscribers.NewSubscriberService(local.Table, local.Client, token.NewGCM("test")), local
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, "electronics:Subscriber", subscribers.PartitionKey("electronics"))
}

func TestSubscriberRepository(t *testing.T) {
	repository, local := NewSubscriberRepository(t)
	ctx := context.Background()

	t.Run("PutIsUpsert", func(t *testing.T) {
		first, err := repository.Put(ctx, "electronics", notifications.Subscriber{URL: "http://a", Name: "first"})
		require.NoError(t, err)
		second, err := repository.Put(ctx, "electronics", notifications.Subscriber{URL: "http://a", Name: "second"})
		require.NoError(t, err)
		assert.Equal(t, "second", second.Name)
		assert.True(t, first.CreateTime.Equal(second.CreateTime))

		results, err := repository.List(ctx, "electronics", data.QueryParams{})
		require.NoError(t, err)
		require.Len(t, results.Items, 1)
		assert.Equal(t, notifications.Subscriber{URL: "http://a", Name: "second"}, results.Items[0].ToSubscriber())
		assert.Nil(t, results.NextToken)
	})

	t.Run("ListPages", func(t *testing.T) {
		for _, url := range []string{"http://1", "http://2", "http://3"} {
			_, err := repository.Put(ctx, "books", notifications.Subscriber{URL: url})
			require.NoError(t, err)
		}
		var seen []string
		params := data.QueryParams{Limit: 2}
		for {
			page, err := repository.List(ctx, "books", params)
			require.NoError(t, err)
			for _, item := range page.Items {
				seen = append(seen, item.URL)
			}
			if page.NextToken == nil {
				break
			}
			params.NextToken = page.NextToken
		}
		assert.ElementsMatch(t, []string{"http://1", "http://2", "http://3"}, seen)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		require.NoError(t, repository.Delete(ctx, "books", "http://1"))
		require.NoError(t, repository.Delete(ctx, "books", "http://1"))
		require.NoError(t, repository.Delete(ctx, "unknown", "http://nobody"))
		results, err := repository.List(ctx, "books", data.QueryParams{})
		require.NoError(t, err)
		assert.Len(t, results.Items, 2)
	})

	t.Run("ListAll", func(t *testing.T) {
		local.Seed(t, map[string]types.AttributeValue{
			"PK":         &types.AttributeValueMemberS{Value: "books:Product"},
			"SK":         &types.AttributeValueMemberS{Value: "dune"},
			"entityType": &types.AttributeValueMemberS{Value: "Product"},
			"url":        &types.AttributeValueMemberS{Value: "http://shop/dune"},
		})
		all, err := repository.ListAll(ctx)
		require.NoError(t, err)
		categories := make(map[string]int)
		for _, item := range all {
			categories[item.Category]++
		}
		assert.Equal(t, map[string]int{"electronics": 1, "books": 2}, categories)
	})
}
