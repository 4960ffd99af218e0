package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
)

// ArkConfig configures a Volcengine Ark chat model
type ArkConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	Temperature float32
	// Timeout bounds a single round trip, 0 leaves the ark default
	Timeout time.Duration
}

// Ark is an Ark chat model whose failures look like the completion client's.
// The sdk's own retries are off, every call is exactly one attempt.
type Ark struct {
	cm *ark.ChatModel
}

var _ model.BaseChatModel = (*Ark)(nil)

// NewArk returns an Ark backed chat model, used when the completion provider is "ark"
func NewArk(ctx context.Context, cfg ArkConfig) (*Ark, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ark api key must be set")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ark model must be set")
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	retryTimes := 0

	arkCfg := &ark.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		Region:      cfg.Region,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: &temperature,
		RetryTimes:  &retryTimes,
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		arkCfg.Timeout = &timeout
	}

	cm, err := ark.NewChatModel(ctx, arkCfg)
	if err != nil {
		return nil, errors.Wrap(err, "new ark chat model")
	}
	return &Ark{cm: cm}, nil
}

// Generate performs one round trip to the ark endpoint
func (a *Ark) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	msg, err := a.cm.Generate(ctx, input, opts...)
	if err != nil {
		return nil, arkError(err)
	}
	return msg, nil
}

// Stream opens a streamed completion on the ark endpoint
func (a *Ark) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, err := a.cm.Stream(ctx, input, opts...)
	if err != nil {
		return nil, arkError(err)
	}
	return sr, nil
}

// arkError turns ark status failures into a StatusError so rate limiting is recognized
func arkError(err error) error {
	var apiErr *arkmodel.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Code: apiErr.HTTPStatusCode, Body: truncate(apiErr.Message, maxBodyLength)}
	}
	var reqErr *arkmodel.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = truncate(reqErr.Err.Error(), maxBodyLength)
		}
		return &StatusError{Code: reqErr.HTTPStatusCode, Body: body}
	}
	return err
}
