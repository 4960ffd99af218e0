package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	cmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xackery/talktranslate/completion"
	"github.com/xackery/talktranslate/config"
	"github.com/xackery/talktranslate/model"
	"github.com/xackery/talktranslate/router"
)

// blockingModel holds every call until release is closed
type blockingModel struct {
	release chan struct{}
	started chan struct{}
}

func (b *blockingModel) Generate(ctx context.Context, input []*schema.Message, opts ...cmodel.Option) (*schema.Message, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.release:
	}
	return schema.AssistantMessage("ja", nil), nil
}

func (b *blockingModel) Stream(ctx context.Context, input []*schema.Message, opts ...cmodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("not implemented")
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.NewDefault()
	cfg.Discord.Token = "token"
	cfg.Completion.APIKey = "key"
	cfg.API.Host = "127.0.0.1"
	cfg.API.Port = 0
	cfg.IsKeepAliveEnabled = false
	cfg.Routes = config.BidirectionalRoutes("100", "200")
	for i := range cfg.Routes {
		require.NoError(t, cfg.Routes[i].Verify(cfg.Completion.Languages))
	}
	return cfg
}

func TestLivenessWhileTranslating(t *testing.T) {
	chat := &blockingModel{release: make(chan struct{}), started: make(chan struct{}, 1)}
	c, err := newClient(context.Background(), testConfig(t), chat)
	require.NoError(t, err)
	require.NoError(t, c.api.Connect(context.Background()))
	defer c.Disconnect(context.Background())

	done := make(chan model.Outcome, 1)
	ok, err := c.enqueue(context.Background(), model.InboundMessage{
		AuthorID:   "1",
		AuthorName: "shin",
		ChannelID:  "100",
		Content:    "こんにちは",
	}, done)
	require.NoError(t, err)
	require.True(t, ok)

	select {
	case <-chat.started:
	case <-time.After(2 * time.Second):
		t.Fatal("translation never started")
	}

	httpClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := httpClient.Get("http://" + c.api.Addr() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	close(chat.release)
	select {
	case out := <-done:
		// discord is not connected in tests, so dispatch fails after translating
		assert.Equal(t, model.StateErrored, out.State)
		assert.Equal(t, "ja", out.Source)
		assert.Equal(t, "en", out.Target)
	case <-time.After(2 * time.Second):
		t.Fatal("message never handled")
	}
}

func TestPumpOrder(t *testing.T) {
	chat := &blockingModel{release: make(chan struct{}), started: make(chan struct{}, 1)}
	close(chat.release)
	c, err := newClient(context.Background(), testConfig(t), chat)
	require.NoError(t, err)
	defer c.Disconnect(context.Background())

	var outs []chan model.Outcome
	for _, content := range []string{"one", "two", "three"} {
		done := make(chan model.Outcome, 1)
		outs = append(outs, done)
		_, err := c.enqueue(context.Background(), model.InboundMessage{AuthorID: "1", ChannelID: "300", Content: content}, done)
		require.NoError(t, err)
	}
	for _, done := range outs {
		select {
		case out := <-done:
			assert.Equal(t, model.StateFiltered, out.State)
			assert.Equal(t, "channel", out.Reason)
		case <-time.After(2 * time.Second):
			t.Fatal("message never handled")
		}
	}
}

func TestEnqueue_Closed(t *testing.T) {
	chat := &blockingModel{release: make(chan struct{}), started: make(chan struct{}, 1)}
	c, err := newClient(context.Background(), testConfig(t), chat)
	require.NoError(t, err)
	require.NoError(t, c.Disconnect(context.Background()))

	ok, err := c.enqueue(context.Background(), model.InboundMessage{ChannelID: "100", Content: "hello"}, nil)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestNewChatModel(t *testing.T) {
	chat, err := newChatModel(context.Background(), config.Completion{APIKey: "key"})
	require.NoError(t, err)
	assert.IsType(t, &completion.Client{}, chat)

	_, err = newChatModel(context.Background(), config.Completion{Provider: "deepseek"})
	assert.Error(t, err)

	_, err = newChatModel(context.Background(), config.Completion{Provider: "ark", APIKey: "key"})
	assert.Error(t, err)

	chat, err = newChatModel(context.Background(), config.Completion{Provider: "ark", APIKey: "key", Model: "ep-1"})
	require.NoError(t, err)
	assert.IsType(t, &completion.Ark{}, chat)

	_, err = newChatModel(context.Background(), config.Completion{Provider: "nope", APIKey: "key"})
	assert.Error(t, err)
}

func TestIsConnected(t *testing.T) {
	chat := &blockingModel{release: make(chan struct{}), started: make(chan struct{}, 1)}
	c, err := newClient(context.Background(), testConfig(t), chat)
	require.NoError(t, err)
	require.NoError(t, c.api.Connect(context.Background()))

	assert.Equal(t, map[string]bool{"discord": false, "nats": false, "api": true}, c.IsConnected())
	require.NoError(t, c.Disconnect(context.Background()))
	assert.Equal(t, map[string]bool{"discord": false, "nats": false, "api": false}, c.IsConnected())
}

func TestIsPublished(t *testing.T) {
	tests := []struct {
		name string
		out  model.Outcome
		want bool
	}{
		{name: "dispatched", out: model.Outcome{State: model.StateDispatched}, want: true},
		{name: "errored", out: model.Outcome{State: model.StateErrored}, want: true},
		{name: "emoji", out: model.Outcome{State: model.StateFiltered, Reason: router.ReasonEmoji}, want: true},
		{name: "unrouted channel", out: model.Outcome{State: model.StateFiltered, Reason: router.ReasonChannel}},
		{name: "own message", out: model.Outcome{State: model.StateFiltered, Reason: router.ReasonSelf}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPublished(tt.out))
		})
	}
}
