package router

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	cmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xackery/talktranslate/config"
	"github.com/xackery/talktranslate/model"
	"github.com/xackery/talktranslate/retry"
	"github.com/xackery/talktranslate/translate"
)

const (
	channelJA = "100"
	channelEN = "200"
)

type sent struct {
	channelID string
	message   string
}

type fakeSender struct {
	sent []sent
	err  error
}

func (f *fakeSender) Send(ctx context.Context, channelID string, message string) error {
	f.sent = append(f.sent, sent{channelID: channelID, message: message})
	if f.err != nil {
		return f.err
	}
	return nil
}

type fakeCommands struct {
	msgs []model.InboundMessage
}

func (f *fakeCommands) ProcessCommands(ctx context.Context, msg model.InboundMessage) {
	f.msgs = append(f.msgs, msg)
}

// identity detects a fixed language and echoes input back
type identity struct {
	detected   string
	detects    int
	languages  [][]string
	translates []string
	targets    []string
	err        error
	panics     bool
}

func (f *identity) DetectLanguage(ctx context.Context, text string, languages []string) string {
	f.detects++
	f.languages = append(f.languages, languages)
	return f.detected
}

func (f *identity) Translate(ctx context.Context, text string, target string) (string, error) {
	if f.panics {
		panic("boom")
	}
	f.translates = append(f.translates, text)
	f.targets = append(f.targets, target)
	if f.err != nil {
		return "", f.err
	}
	return text, nil
}

// chatModel answers with a scripted sequence of replies and errors
type chatModel struct {
	answers []string
	errs    []error
	calls   int
}

func (c *chatModel) Generate(ctx context.Context, input []*schema.Message, opts ...cmodel.Option) (*schema.Message, error) {
	idx := c.calls
	c.calls++
	if idx < len(c.errs) && c.errs[idx] != nil {
		return nil, c.errs[idx]
	}
	if idx < len(c.answers) {
		return schema.AssistantMessage(c.answers[idx], nil), nil
	}
	return schema.AssistantMessage("", nil), nil
}

func (c *chatModel) Stream(ctx context.Context, input []*schema.Message, opts ...cmodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("not implemented")
}

func bidirectional(t *testing.T) []config.Route {
	routes := config.BidirectionalRoutes(channelJA, channelEN)
	for i := range routes {
		require.NoError(t, routes[i].Verify(nil))
	}
	return routes
}

func newRouter(t *testing.T, routes []config.Route, tr Translator) (*Router, *fakeSender, *fakeCommands) {
	s := &fakeSender{}
	c := &fakeCommands{}
	r, err := New(routes, tr, s, c)
	require.NoError(t, err)
	r.SetBotID("999")
	return r, s, c
}

func message(channelID string, content string) model.InboundMessage {
	return model.InboundMessage{
		ID:          "1",
		AuthorID:    "42",
		AuthorName:  "shin",
		DisplayName: "Shin",
		ChannelID:   channelID,
		Content:     content,
	}
}

func TestHandle_Dispatch(t *testing.T) {
	tests := []struct {
		name        string
		channelID   string
		detected    string
		content     string
		wantTarget  string
		wantChannel string
	}{
		{name: "english to japanese", channelID: channelEN, detected: "en", content: "good morning", wantTarget: "ja", wantChannel: channelJA},
		{name: "japanese to english", channelID: channelJA, detected: "ja", content: "おはよう", wantTarget: "en", wantChannel: channelEN},
		{name: "other to english", channelID: channelJA, detected: "fr", content: "bonjour", wantTarget: "en", wantChannel: channelEN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &identity{detected: tt.detected}
			r, s, _ := newRouter(t, bidirectional(t), tr)

			out := r.Handle(context.Background(), message(tt.channelID, tt.content))
			assert.Equal(t, model.StateDispatched, out.State)
			assert.Equal(t, tt.detected, out.Source)
			assert.Equal(t, tt.wantTarget, out.Target)
			assert.Equal(t, []string{tt.wantTarget}, tr.targets)
			require.Len(t, s.sent, 1)
			assert.Equal(t, tt.wantChannel, s.sent[0].channelID)
			assert.Equal(t, "Shin: "+tt.content, s.sent[0].message)
			assert.Equal(t, s.sent[0].message, out.Output)
		})
	}
}

func TestHandle_Filtered(t *testing.T) {
	tests := []struct {
		name   string
		msg    model.InboundMessage
		reason string
	}{
		{name: "unknown channel", msg: message("300", "hello"), reason: "channel"},
		{name: "empty", msg: message(channelEN, "   "), reason: "empty"},
		{name: "emoji", msg: message(channelEN, "👍 🎉"), reason: "emoji"},
		{name: "custom emoji", msg: message(channelEN, "<:pepe:123456>"), reason: "emoji"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &identity{detected: "en"}
			r, s, c := newRouter(t, bidirectional(t), tr)

			out := r.Handle(context.Background(), tt.msg)
			assert.Equal(t, model.StateFiltered, out.State)
			assert.Equal(t, tt.reason, out.Reason)
			assert.Empty(t, s.sent)
			assert.Zero(t, tr.detects)
			assert.Empty(t, tr.translates)
			assert.Len(t, c.msgs, 1)
		})
	}
}

func TestHandle_BotIgnored(t *testing.T) {
	tests := []struct {
		name string
		msg  model.InboundMessage
	}{
		{name: "self", msg: model.InboundMessage{AuthorID: "999", ChannelID: channelEN, Content: "Shin: hello"}},
		{name: "other bot", msg: model.InboundMessage{AuthorID: "5", IsBot: true, ChannelID: channelEN, Content: "!ping"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &identity{detected: "en"}
			r, s, c := newRouter(t, bidirectional(t), tr)

			out := r.Handle(context.Background(), tt.msg)
			assert.Equal(t, model.StateFiltered, out.State)
			assert.Equal(t, "self", out.Reason)
			assert.Empty(t, s.sent)
			assert.Empty(t, tr.translates)
			assert.Empty(t, c.msgs)
		})
	}
}

func TestHandle_FixedRoute(t *testing.T) {
	route := config.FixedRoute("300", "400", "en")
	require.NoError(t, route.Verify(nil))
	tr := &identity{detected: "ja"}
	r, s, _ := newRouter(t, []config.Route{route}, tr)

	out := r.Handle(context.Background(), message("300", "こんにちは"))
	assert.Equal(t, model.StateDispatched, out.State)
	assert.Zero(t, tr.detects)
	require.Len(t, s.sent, 1)
	assert.Equal(t, "400", s.sent[0].channelID)
	assert.Equal(t, "**Translated (en):** こんにちは", s.sent[0].message)
}

func TestHandle_RouteLanguages(t *testing.T) {
	route := config.Route{SourceChannelID: "300", DestinationChannelID: "400", Languages: []string{"es", "fr"}}
	require.NoError(t, route.Verify([]string{"en", "ja"}))
	tr := &identity{detected: "es"}
	r, s, _ := newRouter(t, []config.Route{route}, tr)

	out := r.Handle(context.Background(), message("300", "hola"))
	assert.Equal(t, model.StateDispatched, out.State)
	assert.Equal(t, [][]string{{"es", "fr"}}, tr.languages)
	assert.Equal(t, "fr", out.Target)
	require.Len(t, s.sent, 1)
}

func TestHandle_TranslateError(t *testing.T) {
	tr := &identity{detected: "ja", err: fmt.Errorf("exhausted 3 attempts")}
	r, s, c := newRouter(t, bidirectional(t), tr)

	out := r.Handle(context.Background(), message(channelJA, "おはよう"))
	assert.Equal(t, model.StateErrored, out.State)
	require.Error(t, out.Err)
	require.Len(t, s.sent, 1)
	assert.Equal(t, channelJA, s.sent[0].channelID)
	assert.Equal(t, "Error: could not translate the message from Shin (ja → en).", s.sent[0].message)
	assert.Len(t, c.msgs, 1)
}

func TestHandle_SendError(t *testing.T) {
	tr := &identity{detected: "en"}
	r, s, _ := newRouter(t, bidirectional(t), tr)
	s.err = fmt.Errorf("missing permissions")

	out := r.Handle(context.Background(), message(channelEN, "hello"))
	assert.Equal(t, model.StateErrored, out.State)
	require.Len(t, s.sent, 2)
	assert.Equal(t, channelJA, s.sent[0].channelID)
	assert.Equal(t, channelEN, s.sent[1].channelID)
	assert.True(t, strings.HasPrefix(s.sent[1].message, "Error: could not translate the message from Shin"))
}

func TestHandle_Panic(t *testing.T) {
	tr := &identity{detected: "en", panics: true}
	r, _, c := newRouter(t, bidirectional(t), tr)

	var out model.Outcome
	assert.NotPanics(t, func() {
		out = r.Handle(context.Background(), message(channelEN, "hello"))
	})
	assert.Equal(t, model.StateErrored, out.State)
	assert.Error(t, out.Err)
	assert.Len(t, c.msgs, 1)
}

func TestHandle_Scenario(t *testing.T) {
	chat := &chatModel{answers: []string{"ja", "Hello"}}
	tr, err := translate.New(chat, retry.Default(), translate.Options{})
	require.NoError(t, err)
	r, s, _ := newRouter(t, bidirectional(t), tr)

	out := r.Handle(context.Background(), message(channelJA, "こんにちは"))
	assert.Equal(t, model.StateDispatched, out.State)
	assert.Equal(t, 2, chat.calls)
	require.Len(t, s.sent, 1)
	assert.Equal(t, channelEN, s.sent[0].channelID)
	assert.Equal(t, "Shin: Hello", s.sent[0].message)
}

func TestHandle_RetryThenDispatch(t *testing.T) {
	fail := fmt.Errorf("connection reset")
	chat := &chatModel{errs: []error{fail, fail}, answers: []string{"", "", "こんにちは"}}
	var delays []time.Duration
	policy := retry.Default()
	policy.Sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	tr, err := translate.New(chat, policy, translate.Options{})
	require.NoError(t, err)

	route := config.FixedRoute(channelEN, channelJA, "ja")
	require.NoError(t, route.Verify(nil))
	r, s, _ := newRouter(t, []config.Route{route}, tr)

	out := r.Handle(context.Background(), message(channelEN, "hello"))
	assert.Equal(t, model.StateDispatched, out.State)
	assert.Equal(t, 3, chat.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, delays)
	require.Len(t, s.sent, 1)
	assert.Equal(t, "**Translated (ja):** こんにちは", s.sent[0].message)
}

func TestHandle_RetryExhausted(t *testing.T) {
	fail := fmt.Errorf("connection reset")
	chat := &chatModel{errs: []error{fail, fail, fail, fail}}
	policy := retry.Default()
	policy.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	tr, err := translate.New(chat, policy, translate.Options{})
	require.NoError(t, err)

	route := config.FixedRoute(channelEN, channelJA, "ja")
	require.NoError(t, route.Verify(nil))
	r, s, _ := newRouter(t, []config.Route{route}, tr)

	out := r.Handle(context.Background(), message(channelEN, "hello"))
	assert.Equal(t, model.StateErrored, out.State)
	assert.ErrorIs(t, out.Err, fail)
	assert.Equal(t, 3, chat.calls)
	require.Len(t, s.sent, 1)
	assert.Equal(t, channelEN, s.sent[0].channelID)
	assert.Equal(t, "Error: could not translate the message from Shin (to ja).", s.sent[0].message)
}

func TestNew_DuplicateSource(t *testing.T) {
	routes := append(bidirectional(t), config.FixedRoute(channelJA, "400", "en"))
	_, err := New(routes, &identity{}, &fakeSender{}, nil)
	assert.Error(t, err)
}

func TestErrorNotice(t *testing.T) {
	assert.Equal(t, "Error: could not translate the message from Shin.", ErrorNotice("Shin", "", ""))
}
