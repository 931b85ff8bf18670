package main

import (
	"context"

	lambdaEvents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
	"philcali.me/notifications/internal/app"
	"philcali.me/notifications/internal/config"
	"philcali.me/notifications/internal/events"
)

type App struct {
	Handlers []events.EventFilter
}

func NewApp(ctx context.Context) App {
	cfg := config.MustLoad()
	cfg.ConfigureLogging()
	if !cfg.Persistent() {
		log.Fatal().Msg("TABLE_NAME is required to read subscribers from the stream handler")
	}
	notificationService, err := app.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create notification service")
	}
	return App{
		Handlers: []events.EventFilter{
			events.DefaultProductHandler(notificationService),
		},
	}
}

func (app *App) HandleRequest(ctx context.Context, event lambdaEvents.DynamoDBEvent) error {
	if failures := events.HandleRecords(ctx, event.Records, app.Handlers...); failures > 0 {
		log.Warn().Int("failures", failures).Int("records", len(event.Records)).Msg("Some records were not handled")
	}
	return nil
}

func main() {
	app := NewApp(context.Background())
	lambda.Start(app.HandleRequest)
}
