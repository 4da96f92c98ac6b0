package archive

import (
	"context"

	consul "github.com/hashicorp/consul/api"

	"github.com/labfont/gpu-test-harness/report"
)

// ConsulArchive writes each record to the KV store at gpu-test-harness/runs/<run ID>.
type ConsulArchive struct {
	consul *consul.Client
	addr   string
}

// NewConsulArchive creates a client for the given address, or for the default address if it
// is empty.
func NewConsulArchive(addr string) (*ConsulArchive, error) {
	config := consul.DefaultConfig()
	if addr != "" {
		config.Address = addr
	}
	client, err := consul.NewClient(config)
	if err != nil {
		return nil, err
	}
	return &ConsulArchive{consul: client, addr: config.Address}, nil
}

func (c *ConsulArchive) DSN() string {
	return "consul://" + c.addr
}

func (c *ConsulArchive) Store(ctx context.Context, record report.Record) error {
	options := (&consul.WriteOptions{}).WithContext(ctx)
	_, err := c.consul.KV().Put(&consul.KVPair{
		Key:   keyPrefix + "/runs/" + record.RunID,
		Value: record.JSON(),
	}, options)
	return err
}

func (c *ConsulArchive) Close() error { return nil }
