package services

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"philcali.me/notifications/internal/exceptions"
	"philcali.me/notifications/internal/notifications"
)

type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NotificationSNSService delivers to subscribers whose URL is an SNS topic ARN.
type NotificationSNSService struct {
	Sns SNSPublisher
}

func stringAttribute(value string) types.MessageAttributeValue {
	return types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(value),
	}
}

func (n *NotificationSNSService) Deliver(ctx context.Context, subscriber notifications.Subscriber, notification notifications.Notification) error {
	message, err := json.Marshal(notification)
	if err != nil {
		return exceptions.DeliveryFailed(subscriber.URL, err)
	}
	_, err = n.Sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(subscriber.URL),
		Message:  aws.String(string(message)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"notificationId": stringAttribute(notification.Id),
			"productType":    stringAttribute(notification.ProductType),
			"status":         stringAttribute(string(notification.Status)),
		},
	})
	if err != nil {
		return exceptions.DeliveryFailed(subscriber.URL, err)
	}
	return nil
}
