package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
	"philcali.me/notifications/internal/app"
	"philcali.me/notifications/internal/config"
	"philcali.me/notifications/internal/routes"
	"philcali.me/notifications/internal/routes/filters"
	"philcali.me/notifications/internal/routes/subscriptions"
)

type App struct {
	Router routes.Router
}

func NewApp(ctx context.Context) App {
	cfg := config.MustLoad()
	cfg.ConfigureLogging()
	notificationService, err := app.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create notification service")
	}
	if err := notificationService.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load subscribers")
	}
	router := routes.NewRouter(subscriptions.NewRoute(notificationService))
	router.Filters = []filters.RequestFilter{filters.NewCorsFilter(cfg.CorsOrigins...)}
	return App{
		Router: *router,
	}
}

func (app *App) HandleRequest(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return app.Router.Invoke(request, ctx), nil
}

func main() {
	app := NewApp(context.Background())
	lambda.Start(app.HandleRequest)
}
