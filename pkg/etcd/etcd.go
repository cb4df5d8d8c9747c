// Package etcd is a thin service-registry client used by the server to
// advertise itself for discovery.
package etcd

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Client wraps an etcd v3 client.
type Client struct {
	cli     *clientv3.Client
	prefix  string
	timeout time.Duration
}

// NewClient connects to the given endpoints. prefix namespaces all registry
// keys (e.g. "/kanaria").
func NewClient(endpoints []string, prefix string) (*Client, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	return &Client{
		cli:     cli,
		prefix:  prefix,
		timeout: 5 * time.Second,
	}, nil
}

func (c *Client) serviceKey(serviceName, serviceAddr string) string {
	return fmt.Sprintf("%s/services/%s/%s", c.prefix, serviceName, serviceAddr)
}

// Register publishes the service under a lease and keeps it alive in the
// background. The entry disappears automatically when the process dies.
func (c *Client) Register(serviceName, serviceAddr string, ttl int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	lease, err := c.cli.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	key := c.serviceKey(serviceName, serviceAddr)
	_, err = c.cli.Put(context.Background(), key, serviceAddr, clientv3.WithLease(lease.ID))
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, err := c.cli.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		return fmt.Errorf("failed to keep alive: %w", err)
	}

	go func() {
		for range ch {
			// drain keepalive responses
		}
	}()

	logrus.Infof("[Etcd] Service registered: %s -> %s", key, serviceAddr)
	return nil
}

// Deregister removes a previously registered entry.
func (c *Client) Deregister(serviceName, serviceAddr string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	key := c.serviceKey(serviceName, serviceAddr)
	if _, err := c.cli.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	return nil
}

// Discover lists the addresses registered under a service name.
func (c *Client) Discover(serviceName string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	prefix := fmt.Sprintf("%s/services/%s/", c.prefix, serviceName)
	resp, err := c.cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to get keys with prefix %s: %w", prefix, err)
	}

	services := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		services = append(services, string(kv.Value))
	}
	return services, nil
}

// Watch streams address lists for a service name as registrations come and
// go. The current list is re-read on every change; the channel closes with
// ctx.
func (c *Client) Watch(ctx context.Context, serviceName string) (<-chan []string, error) {
	current, err := c.Discover(serviceName)
	if err != nil {
		return nil, err
	}

	out := make(chan []string, 1)
	out <- current

	prefix := fmt.Sprintf("%s/services/%s/", c.prefix, serviceName)
	watchCh := c.cli.Watch(ctx, prefix, clientv3.WithPrefix())

	go func() {
		defer close(out)
		for resp := range watchCh {
			if resp.Err() != nil {
				logrus.Warnf("[Etcd] Watch error for %s: %v", prefix, resp.Err())
				return
			}
			services, err := c.Discover(serviceName)
			if err != nil {
				logrus.Warnf("[Etcd] Re-discover failed for %s: %v", serviceName, err)
				continue
			}
			out <- services
		}
	}()
	return out, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.cli.Close()
}
