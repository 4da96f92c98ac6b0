// Package archive stores a compact record of each run in an external store, so that results
// from many machines can be collected in one place.
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/labfont/gpu-test-harness/report"
)

const keyPrefix = "gpu-test-harness"

// Archive stores run records.
type Archive interface {
	// Store writes one record. It is called once per run, after the results have been presented.
	Store(ctx context.Context, record report.Record) error

	// DSN describes where records are stored, for logging.
	DSN() string

	Close() error
}

// Open parses an archive location and connects to it. Accepted forms:
//
//	redis://host:port
//	consul            (uses the Consul client defaults, including CONSUL_HTTP_ADDR)
//	consul://host:port
//	dynamodb:table    (uses the AWS SDK default credential chain and region)
func Open(location string) (Archive, error) {
	switch {
	case strings.HasPrefix(location, "redis://"):
		return NewRedisArchive(strings.TrimPrefix(location, "redis://"))
	case location == "consul":
		return NewConsulArchive("")
	case strings.HasPrefix(location, "consul://"):
		return NewConsulArchive(strings.TrimPrefix(location, "consul://"))
	case strings.HasPrefix(location, "dynamodb:"):
		table := strings.TrimPrefix(location, "dynamodb:")
		if table == "" {
			return nil, fmt.Errorf("missing DynamoDB table name in %q", location)
		}
		return NewDynamoDBArchive(table, DynamoDBOptions{})
	}
	return nil, fmt.Errorf("unrecognized archive location %q", location)
}
