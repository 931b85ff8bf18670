package subscriptions

import (
	"context"
	"net/url"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/notifications/internal/data"
	"philcali.me/notifications/internal/exceptions"
	"philcali.me/notifications/internal/notifications"
	"philcali.me/notifications/internal/routes"
	"philcali.me/notifications/internal/routes/util"
)

type NotificationService interface {
	Subscribe(ctx context.Context, productType string, subscriber notifications.Subscriber) (notifications.Subscriber, error)
	Unsubscribe(ctx context.Context, productType string, endpoint string) error
	Notify(ctx context.Context, productType string, event notifications.Event) (notifications.DispatchReport, error)
	ListSubscribers(ctx context.Context, productType string) ([]notifications.Subscriber, error)
	PageSubscribers(ctx context.Context, productType string, params data.QueryParams) (data.QueryResults[notifications.Subscriber], error)
	ListAll(ctx context.Context) (map[string][]notifications.Subscriber, error)
}

type SubscriptionService struct {
	notifications NotificationService
}

func NewRoute(service NotificationService) routes.Service {
	return &SubscriptionService{
		notifications: service,
	}
}

func (s *SubscriptionService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"POST:/subscribe/:category":   s.Subscribe,
		"POST:/unsubscribe/:category": s.Unsubscribe,
		"POST:/notify/:category":      s.Notify,
		"GET:/subscribers/:category":  s.ListSubscribers,
		"GET:/subscribers":            s.ListAll,
	}
}

func location(category string) string {
	return "/subscribers/" + url.PathEscape(category)
}

// Subscribe answers 201 whether the subscriber is new or was already registered.
func (s *SubscriptionService) Subscribe(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	category := routes.RequestParam(ctx, "category")
	input := SubscriberInput{}
	if err := util.DecodeBody(event, &input); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	subscriber, err := input.toSubscriber()
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	stored, err := s.notifications.Subscribe(ctx, category, subscriber)
	return util.SerializeResponseCreated(util.Identity[notifications.Subscriber], stored, err, location(category))
}

func (s *SubscriptionService) Unsubscribe(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	endpoint, ok := event.QueryStringParameters["url"]
	if !ok || endpoint == "" {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput("url query parameter is required")
	}
	return util.SerializeResponseNoContent(s.notifications.Unsubscribe(ctx, routes.RequestParam(ctx, "category"), endpoint))
}

func (s *SubscriptionService) Notify(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input := EventInput{}
	if err := util.DecodeBody(event, &input); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	report, err := s.notifications.Notify(ctx, routes.RequestParam(ctx, "category"), input.toEvent())
	return util.SerializeResponseOK(util.Identity[notifications.DispatchReport], report, err)
}

// queryParams reads the paging parameters. The second value reports whether the
// caller asked for paging at all.
func queryParams(event events.APIGatewayV2HTTPRequest) (data.QueryParams, bool, error) {
	params := data.QueryParams{}
	sLimit, hasLimit := event.QueryStringParameters["limit"]
	if hasLimit {
		limit, err := strconv.Atoi(sLimit)
		if err != nil {
			return params, true, exceptions.InvalidInput("limit parameter was not a number")
		}
		params.Limit = limit
	}
	token, hasToken := event.QueryStringParameters["nextToken"]
	if hasToken {
		params.NextToken = []byte(token)
	}
	return params, hasLimit || hasToken, nil
}

// ListSubscribers answers the whole list in registration order, or a single page in
// storage order when limit or nextToken is given.
func (s *SubscriptionService) ListSubscribers(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	category := routes.RequestParam(ctx, "category")
	params, paged, err := queryParams(event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	if paged {
		page, err := s.notifications.PageSubscribers(ctx, category, params)
		return util.SerializeResponseOK(func(page data.QueryResults[notifications.Subscriber]) SubscriberList {
			return SubscriberList{Category: category, Items: page.Items, NextToken: string(page.NextToken)}
		}, page, err)
	}
	items, err := s.notifications.ListSubscribers(ctx, category)
	return util.SerializeResponseOK(util.Identity[SubscriberList], SubscriberList{
		Category: category,
		Items:    items,
	}, err)
}

func (s *SubscriptionService) ListAll(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	items, err := s.notifications.ListAll(ctx)
	return util.SerializeResponseOK(util.Identity[AllSubscribers], AllSubscribers{
		Items: items,
	}, err)
}
