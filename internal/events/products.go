package events

import (
	"context"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
	"philcali.me/notifications/internal/notifications"
)

const ProductEntity = "Product"

// Notifier reads subscribers from shared storage on every Notify, so a stream process
// never delivers from a stale view.
type Notifier interface {
	Notify(ctx context.Context, productType string, event notifications.Event) (notifications.DispatchReport, error)
}

func recordImage(record events.DynamoDBEventRecord) map[string]events.DynamoDBAttributeValue {
	if record.Change.NewImage != nil {
		return record.Change.NewImage
	}
	return record.Change.OldImage
}

func stringAttribute(image map[string]events.DynamoDBAttributeValue, name string) string {
	if value, ok := image[name]; ok && value.DataType() == events.DataTypeString {
		return value.String()
	}
	return ""
}

// productType prefers the explicit attribute and falls back to the partition key,
// which is "<productType>:Product".
func productType(image map[string]events.DynamoDBAttributeValue) string {
	if explicit := stringAttribute(image, "productType"); explicit != "" {
		return explicit
	}
	pk := stringAttribute(image, "PK")
	return strings.TrimSuffix(pk, ":"+ProductEntity)
}

func statusOf(record events.DynamoDBEventRecord) (notifications.Status, bool) {
	switch events.DynamoDBOperationType(record.EventName) {
	case events.DynamoDBOperationTypeInsert:
		return notifications.StatusCreated, true
	case events.DynamoDBOperationTypeRemove:
		return notifications.StatusDeleted, true
	case events.DynamoDBOperationTypeModify:
		return notifications.StatusPromotion, true
	}
	return "", false
}

// ProductEventHandler turns product table changes into notifications for the
// subscribers of the product type.
type ProductEventHandler struct {
	Notifier Notifier
}

func (ph *ProductEventHandler) Filter(record events.DynamoDBEventRecord) bool {
	image := recordImage(record)
	if !strings.HasSuffix(stringAttribute(image, "PK"), ":"+ProductEntity) {
		return false
	}
	_, ok := statusOf(record)
	return ok && productType(image) != ""
}

func (ph *ProductEventHandler) Apply(ctx context.Context, record events.DynamoDBEventRecord) error {
	image := recordImage(record)
	status, _ := statusOf(record)
	category := productType(image)
	report, err := ph.Notifier.Notify(ctx, category, notifications.Event{
		ProductTitle: stringAttribute(image, "name"),
		ProductURL:   stringAttribute(image, "url"),
		Status:       status,
	})
	if err != nil {
		return err
	}
	log.Debug().
		Str("eventId", record.EventID).
		Str("reportId", report.Id).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Msg("Handled product event")
	return nil
}

func DefaultProductHandler(notifier Notifier) *ProductEventHandler {
	return &ProductEventHandler{
		Notifier: notifier,
	}
}

// HandleRecords runs every matching handler for each record. A failing handler is
// logged and the remaining records are still processed.
func HandleRecords(ctx context.Context, records []events.DynamoDBEventRecord, handlers ...EventFilter) int {
	failures := 0
	for _, record := range records {
		for _, handler := range handlers {
			if !handler.Filter(record) {
				continue
			}
			if err := handler.Apply(ctx, record); err != nil {
				failures++
				log.Error().Err(err).Str("eventId", record.EventID).Str("eventName", record.EventName).Msg("Failed to handle record")
				break
			}
		}
	}
	return failures
}
