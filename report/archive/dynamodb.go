package archive

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"

	"github.com/labfont/gpu-test-harness/report"
)

const (
	// Schema of the DynamoDB table
	tablePartitionKey   = "runId"
	successAttribute    = "success"
	statusAttribute     = "statusCode"
	finishedAttribute   = "finished"
	recordJSONAttribute = "record"
)

// DynamoDBOptions overrides the SDK defaults. Empty fields keep the defaults.
type DynamoDBOptions struct {
	Region      string
	Endpoint    string
	Credentials *credentials.Credentials
}

// DynamoDBArchive writes one item per run to a table whose partition key is "runId".
type DynamoDBArchive struct {
	dynamodb *dynamodb.DynamoDB
	table    string
}

func NewDynamoDBArchive(table string, options DynamoDBOptions) (*DynamoDBArchive, error) {
	config := &aws.Config{}
	if options.Region != "" {
		config.Region = aws.String(options.Region)
	}
	if options.Endpoint != "" {
		config.Endpoint = aws.String(options.Endpoint)
	}
	if options.Credentials != nil {
		config.Credentials = options.Credentials
	}
	sess, err := session.NewSession(config)
	if err != nil {
		return nil, err
	}
	return &DynamoDBArchive{dynamodb: dynamodb.New(sess), table: table}, nil
}

func (d *DynamoDBArchive) DSN() string {
	return "dynamodb:" + d.table
}

func (d *DynamoDBArchive) Store(ctx context.Context, record report.Record) error {
	_, err := d.dynamodb.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item: map[string]*dynamodb.AttributeValue{
			tablePartitionKey:   {S: aws.String(record.RunID)},
			successAttribute:    {BOOL: aws.Bool(record.Result.Success)},
			statusAttribute:     {N: aws.String(strconv.Itoa(record.Result.StatusCode))},
			finishedAttribute:   {S: aws.String(record.Finished.UTC().Format(time.RFC3339))},
			recordJSONAttribute: {S: aws.String(string(record.JSON()))},
		},
	})
	return err
}

func (d *DynamoDBArchive) Close() error { return nil }
