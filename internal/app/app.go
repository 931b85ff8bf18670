// Package app wires configuration, storage and delivery into a NotificationService
// shared by the Lambda entry points.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"
	"philcali.me/notifications/internal/config"
	"philcali.me/notifications/internal/data"
	"philcali.me/notifications/internal/dynamodb/subscribers"
	"philcali.me/notifications/internal/dynamodb/token"
	"philcali.me/notifications/internal/notifications"
	"philcali.me/notifications/internal/registry"
	"philcali.me/notifications/internal/service"
	"philcali.me/notifications/internal/sns/services"
	"philcali.me/notifications/internal/webhook"
)

func NewDeliverer(snsClient services.SNSPublisher) notifications.Deliverer {
	deliverer := notifications.NewProtocolDeliverer().
		Register(webhook.NewSender(), "http", "https")
	if snsClient != nil {
		deliverer.Register(&services.NotificationSNSService{Sns: snsClient}, "arn")
	}
	return deliverer
}

func NewService(cfg config.Config, deliverer notifications.Deliverer, repository data.SubscriberRepository) *service.NotificationService {
	dispatcher := notifications.NewDispatcher(deliverer,
		notifications.WithTimeout(cfg.DeliveryTimeout),
		notifications.WithConcurrency(cfg.DispatchConcurrency),
	)
	return service.NewNotificationService(registry.NewRegistry(), dispatcher, repository)
}

// NewFromConfig builds the service against AWS. Without a table name subscribers are
// kept in memory only.
func NewFromConfig(ctx context.Context, cfg config.Config) (*service.NotificationService, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newFromAWS(cfg, awsCfg), nil
}

func newFromAWS(cfg config.Config, awsCfg aws.Config) *service.NotificationService {
	var repository data.SubscriberRepository
	if cfg.Persistent() {
		repository = subscribers.NewSubscriberService(cfg.TableName, dynamodb.NewFromConfig(awsCfg), token.NewGCM(cfg.TokenSecret))
	} else {
		log.Warn().Msg("TABLE_NAME is not set, subscribers will not survive a restart")
	}
	return NewService(cfg, NewDeliverer(sns.NewFromConfig(awsCfg)), repository)
}
