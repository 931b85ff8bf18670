package token

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

// TokenMarshaler turns a DynamoDB LastEvaluatedKey into an opaque page token bound to
// a single partition (category), and back.
type TokenMarshaler interface {
	Marshal(partition string, lastKey map[string]types.AttributeValue) ([]byte, error)

	Unmarshal(partition string, token []byte) (map[string]types.AttributeValue, error)
}
