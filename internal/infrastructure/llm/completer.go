package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyforge-api/internal/config"
	"storyforge-api/pkg/metrics"
)

var tracer = otel.Tracer("llm")

// Completer 把 ChatModel 封装为单轮补全调用
// 每次调用携带独立的采样参数，由各流水线阶段传入
type Completer struct {
	factory  *EinoFactory
	provider string
	model    string
}

// NewCompleter 创建补全客户端
func NewCompleter(factory *EinoFactory, cfg *config.Config) *Completer {
	provider := cfg.LLM.DefaultProvider
	modelName := ""
	if p, ok := cfg.LLM.Providers[provider]; ok {
		modelName = p.Model
	}
	return &Completer{
		factory:  factory,
		provider: provider,
		model:    modelName,
	}
}

// Complete 执行单轮文本补全
func (c *Completer) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.Complete",
		trace.WithAttributes(
			attribute.String("llm.provider", c.provider),
			attribute.String("llm.model", c.model),
			attribute.Int("llm.max_tokens", maxTokens),
			attribute.Float64("llm.temperature", temperature),
		))
	defer span.End()

	chatModel, err := c.factory.Get(ctx, c.provider)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	opts := []model.Option{
		model.WithMaxTokens(maxTokens),
		model.WithTemperature(float32(temperature)),
	}

	start := time.Now()
	outMsg, err := chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, opts...)
	metrics.LLMCallDuration.WithLabelValues(c.provider, c.model).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		metrics.LLMCallTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return "", fmt.Errorf("llm call failed: %w", err)
	}
	if outMsg == nil {
		metrics.LLMCallTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		return "", fmt.Errorf("empty llm response")
	}

	metrics.LLMCallTotal.WithLabelValues(c.provider, c.model, "ok").Inc()
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(c.provider, c.model, "prompt").Add(float64(outMsg.ResponseMeta.Usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(c.provider, c.model, "completion").Add(float64(outMsg.ResponseMeta.Usage.CompletionTokens))
	}

	return strings.TrimSpace(outMsg.Content), nil
}
