// internal/common/camunda/client.go
package camunda

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"financial-analyst/internal/common/config"
)

var (
	ErrBrokerUnavailable = stderrors.New("ZEEBE_UNAVAILABLE")
	ErrBrokerTimeout     = stderrors.New("ZEEBE_TIMEOUT")
	ErrBrokerRejected    = stderrors.New("ZEEBE_REJECTED")
)

// Client wraps the Zeebe gateway client with the connection settings the analyst workers need.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig bounds retries of gateway commands that failed with a transient gRPC status.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// ConfigFromApp derives the gateway settings from the camunda section of the application config.
func ConfigFromApp(cfg config.CamundaConfig) *ClientConfig {
	requestTimeout := config.GetDuration(cfg.RequestTimeout)
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         requestTimeout,
		RetryConfig:            DefaultRetryConfig,
	}
}

func NewClient(address string) (*Client, error) {
	return NewClientWithConfig(ConfigFromApp(config.CamundaConfig{BrokerAddress: address}))
}

func NewClientWithConfig(cfg *ClientConfig) (*Client, error) {
	if cfg.GatewayAddress == "" {
		return nil, fmt.Errorf("zeebe gateway address is required")
	}
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: cfg}
	if err := c.HealthCheck(context.Background()); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", cfg.GatewayAddress, err)
	}
	return c, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// DeployProcess deploys a BPMN definition and returns the deployment key.
func (c *Client) DeployProcess(ctx context.Context, name string, definition []byte) (int64, error) {
	resp, err := retryCommand(ctx, c.config.RetryConfig, "deploy "+name, func(ctx context.Context) (int64, error) {
		ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()

		resp, err := c.client.NewDeployResourceCommand().AddResource(definition, name).Send(ctx)
		if err != nil {
			return 0, err
		}
		return resp.GetKey(), nil
	})
	if err != nil {
		return 0, err
	}
	return resp, nil
}

// RunProcess starts an instance of the latest version of processID, waits for it to finish
// and returns its final variables. The wait is bounded by ctx only.
func (c *Client) RunProcess(ctx context.Context, processID string, variables map[string]interface{}) (map[string]interface{}, error) {
	raw, err := retryCommand(ctx, c.config.RetryConfig, "run "+processID, func(ctx context.Context) (string, error) {
		cmd, err := c.client.NewCreateInstanceCommand().
			BPMNProcessId(processID).
			LatestVersion().
			VariablesFromMap(variables)
		if err != nil {
			return "", err
		}
		resp, err := cmd.WithResult().Send(ctx)
		if err != nil {
			return "", err
		}
		return resp.GetVariables(), nil
	})
	if err != nil {
		return nil, err
	}

	out := map[string]interface{}{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode variables of %s: %w", processID, err)
	}
	return out, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", classify(err, "topology", 0))
	}
	return nil
}

func retryCommand[T any](ctx context.Context, retry *RetryConfig, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !isTransient(err) || attempt >= retry.MaxRetries {
			return zero, classify(err, operation, attempt)
		}

		delay := retry.BaseDelay << attempt
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
		}
	}
}

func isTransient(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}

func classify(err error, operation string, attempt int) error {
	msg := fmt.Sprintf("zeebe %s failed", operation)
	if attempt > 0 {
		msg += fmt.Sprintf(" after %d attempts", attempt+1)
	}

	sentinel := ErrBrokerRejected
	switch {
	case stderrors.Is(err, context.DeadlineExceeded), status.Code(err) == codes.DeadlineExceeded:
		sentinel = ErrBrokerTimeout
	case status.Code(err) == codes.Unavailable, status.Code(err) == codes.ResourceExhausted:
		sentinel = ErrBrokerUnavailable
	}
	return fmt.Errorf("%w: %s: %v", sentinel, msg, err)
}
