// Package test runs DynamoDB Local for repository tests. Tests are skipped when the
// distribution or java is not available.
package test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	LocalDynamoPort = 8000
	// LocalDynamoHome names the variable pointing at an unpacked DynamoDB Local.
	LocalDynamoHome = "DYNAMODB_LOCAL_HOME"
)

// LocalDynamo is a running DynamoDB Local with a fresh single-table layout.
type LocalDynamo struct {
	Port   int
	Client *dynamodb.Client
	Table  string
}

func NewLocalDynamo(t *testing.T, port int) *LocalDynamo {
	home := os.Getenv(LocalDynamoHome)
	if home == "" {
		t.Skipf("%s is not set, skipping DynamoDB Local tests", LocalDynamoHome)
	}
	jar := filepath.Join(home, "DynamoDBLocal.jar")
	if _, err := os.Stat(jar); err != nil {
		t.Skipf("DynamoDB Local is not available at %s: %s", jar, err)
	}
	if _, err := exec.LookPath("java"); err != nil {
		t.Skip("java is not installed, skipping DynamoDB Local tests")
	}
	cmd := exec.Command("java",
		"-Djava.library.path="+filepath.Join(home, "DynamoDBLocal_lib"),
		"-jar", jar,
		"-port", strconv.Itoa(port),
		"-inMemory",
	)
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start DynamoDB Local: %s", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	local := &LocalDynamo{
		Port:   port,
		Client: localClient(port),
		Table:  tableName(t),
	}
	local.waitReady(t)
	local.createTable(t)
	return local
}

func localClient(port int) *dynamodb.Client {
	cfg := aws.Config{
		Region:           "us-east-1",
		RetryMaxAttempts: 10,
		Credentials:      credentials.NewStaticCredentialsProvider("fake", "fake", ""),
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.EndpointResolver = dynamodb.EndpointResolverFromURL(fmt.Sprintf("http://localhost:%d", port))
	})
}

// tableName derives a valid table name from the test name.
func tableName(t *testing.T) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, t.Name())
	return "NotificationData-" + name
}

func (ld *LocalDynamo) waitReady(t *testing.T) {
	deadline := time.Now().Add(10 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, err := ld.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
		cancel()
		if err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("DynamoDB Local did not come up on port %d: %s", ld.Port, err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func (ld *LocalDynamo) createTable(t *testing.T) {
	key := func(name string, keyType types.KeyType) (types.KeySchemaElement, types.AttributeDefinition) {
		return types.KeySchemaElement{AttributeName: aws.String(name), KeyType: keyType},
			types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
	}
	pk, pkAttribute := key("PK", types.KeyTypeHash)
	sk, skAttribute := key("SK", types.KeyTypeRange)
	ctx := context.Background()
	_, err := ld.Client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(ld.Table),
		KeySchema:            []types.KeySchemaElement{pk, sk},
		AttributeDefinitions: []types.AttributeDefinition{pkAttribute, skAttribute},
		BillingMode:          types.BillingModePayPerRequest,
	})
	if err != nil {
		t.Fatalf("Failed to create table %s: %s", ld.Table, err)
	}
	waiter := dynamodb.NewTableExistsWaiter(ld.Client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(ld.Table)}, 5*time.Second); err != nil {
		t.Fatalf("Table %s never became active: %s", ld.Table, err)
	}
}

// Seed writes a raw row, for data other services own in the shared table.
func (ld *LocalDynamo) Seed(t *testing.T, item map[string]types.AttributeValue) {
	_, err := ld.Client.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(ld.Table),
		Item:      item,
	})
	if err != nil {
		t.Fatalf("Failed to seed %s: %s", ld.Table, err)
	}
}
