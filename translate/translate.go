// Package translate detects languages and translates text through a chat model.
package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	cmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/xackery/talktranslate/language"
	"github.com/xackery/talktranslate/model"
	"github.com/xackery/talktranslate/retry"
	"github.com/xackery/talktranslate/telemetry"
)

// Untranslatable is returned as a successful translation when the model answers with an empty body
const Untranslatable = "[untranslatable]"

const (
	defaultTemperature float32 = 0.7
	detectTemperature  float32 = 0
)

// Options tunes a Translator
type Options struct {
	// Languages are the two languages detection is biased toward
	Languages [2]string
	// Fallback is returned by DetectLanguage when the answer is ambiguous or every attempt failed
	Fallback string
	// Temperature is the sampling temperature of translate calls, zero uses 0.7
	Temperature float32
}

// Translator wraps a chat model with detect and translate operations.
// Every remote call goes through the retry policy.
type Translator struct {
	chat        cmodel.BaseChatModel
	policy      *retry.Policy
	languages   [2]string
	fallback    string
	temperature float32
}

// New creates a new translator
func New(chat cmodel.BaseChatModel, policy *retry.Policy, opts Options) (*Translator, error) {
	if chat == nil {
		return nil, fmt.Errorf("chat model must be set")
	}
	if policy == nil {
		policy = retry.Default()
	}
	t := &Translator{
		chat:        chat,
		policy:      policy,
		languages:   opts.Languages,
		fallback:    opts.Fallback,
		temperature: opts.Temperature,
	}
	if t.temperature == 0 {
		t.temperature = defaultTemperature
	}
	if t.languages[0] == "" {
		t.languages[0] = language.English
	}
	if t.languages[1] == "" {
		t.languages[1] = language.Japanese
	}
	if t.fallback == "" {
		t.fallback = language.English
	}
	return t, nil
}

// DetectLanguage returns the two letter ISO 639-1 code of text.
// Detection is biased toward languages when it holds a pair, otherwise toward the translator's own pair.
// It never fails: on exhausted retries or an unusable answer the fallback code is returned.
func (t *Translator) DetectLanguage(ctx context.Context, text string, languages []string) string {
	logger := model.NewLogger(ctx)
	ctx, span := telemetry.Tracer().Start(ctx, "translate.detect")
	defer span.End()

	pair, fallback := t.bias(languages)
	answer, err := t.complete(ctx, detectPrompt(pair, fallback), text, detectTemperature)
	if err != nil {
		logger.Warn().Err(err).Str("fallback", fallback).Msg("detect language failed, using fallback")
		telemetry.CompletionRequests.WithLabelValues("detect", "fallback").Inc()
		span.RecordError(err)
		return fallback
	}

	code := language.Normalize(answer)
	if code == "" {
		logger.Debug().Str("answer", answer).Str("fallback", fallback).Msg("detect language answer ambiguous, using fallback")
		telemetry.CompletionRequests.WithLabelValues("detect", "fallback").Inc()
		return fallback
	}
	telemetry.CompletionRequests.WithLabelValues("detect", "ok").Inc()
	span.SetAttributes(attribute.String("language", code))
	return code
}

// bias returns the language pair detection leans toward and the code to fall back to.
// The configured fallback is kept when it belongs to the pair, else the pair's first language is used.
func (t *Translator) bias(languages []string) ([2]string, string) {
	if len(languages) != 2 || languages[0] == "" || languages[1] == "" {
		return t.languages, t.fallback
	}
	pair := [2]string{languages[0], languages[1]}
	if t.fallback == pair[0] || t.fallback == pair[1] {
		return pair, t.fallback
	}
	return pair, pair[0]
}

// Translate returns text translated to target.
// An empty answer from the model yields Untranslatable, not an error.
// An error is returned only once the retry policy is exhausted.
func (t *Translator) Translate(ctx context.Context, text string, target string) (string, error) {
	start := time.Now()
	defer telemetry.ObserveSince(telemetry.TranslationDuration, start)

	ctx, span := telemetry.Tracer().Start(ctx, "translate.translate")
	defer span.End()
	span.SetAttributes(attribute.String("target", target))

	answer, err := t.complete(ctx, translatePrompt(target), text, t.temperature)
	if err != nil {
		telemetry.CompletionRequests.WithLabelValues("translate", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "translate failed")
		return "", errors.Wrapf(err, "translate to %s", target)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		telemetry.CompletionRequests.WithLabelValues("translate", "untranslatable").Inc()
		return Untranslatable, nil
	}
	telemetry.CompletionRequests.WithLabelValues("translate", "ok").Inc()
	return answer, nil
}

func (t *Translator) complete(ctx context.Context, system string, text string, temperature float32) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(text),
	}

	var answer string
	err := t.policy.Do(ctx, func(ctx context.Context) error {
		msg, err := t.chat.Generate(ctx, messages, cmodel.WithTemperature(temperature))
		if err != nil {
			return err
		}
		if msg == nil {
			return fmt.Errorf("empty response message")
		}
		answer = msg.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

func detectPrompt(languages [2]string, fallback string) string {
	return fmt.Sprintf("You are a language detector. Identify the language of the user's message and reply with only its two-letter ISO 639-1 code, nothing else. "+
		"The message is most likely %s (%s) or %s (%s). If the language is ambiguous, reply %s.",
		language.Name(languages[0]), languages[0], language.Name(languages[1]), languages[1], fallback)
}

func translatePrompt(target string) string {
	return fmt.Sprintf("You are a translator. Translate the following text to %s (%s). Provide only the translated text.",
		language.Name(target), target)
}
