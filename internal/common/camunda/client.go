// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contact-sync/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client used in zeebe trigger mode.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// ClientConfig holds configuration for the Camunda/Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
}

// NewClient creates a plaintext client and checks that the gateway answers.
func NewClient(address string) (*Client, error) {
	return NewClientWithConfig(&ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
	})
}

func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.GatewayAddress == "" {
		return nil, errors.NewConfigurationError(errors.ServiceWorkflow, "gateway address is empty")
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}
	if err := c.HealthCheck(context.Background()); err != nil {
		zeebeClient.Close()
		return nil, err
	}

	return c, nil
}

// GetClient returns the raw Zeebe client for job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck asks the gateway for its topology.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return mapZeebeError(err, c.config.GatewayAddress)
	}
	return nil
}

// mapZeebeError converts gateway errors into the application taxonomy.
func mapZeebeError(err error, address string) error {
	lowerMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lowerMsg, "permission denied") ||
		strings.Contains(lowerMsg, "unauthenticated") ||
		strings.Contains(lowerMsg, "unauthorized"):
		return errors.NewConfigurationError(errors.ServiceWorkflow,
			fmt.Sprintf("gateway %s refused credentials: %v", address, err))
	default:
		return errors.NewTransportError(errors.ServiceWorkflow,
			fmt.Errorf("gateway %s: %w", address, err))
	}
}
