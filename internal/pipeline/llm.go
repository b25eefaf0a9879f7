package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	oai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"github.com/hubenschmidt/voice-gateway/internal/metrics"
)

// apologyText is the single fixed reply emitted when every LLM provider fails.
const apologyText = "Xin lỗi, hiện tại mình chưa kết nối được với trợ lý. Bạn thử lại sau nhé."

// ChatTurn is one turn of conversation history.
type ChatTurn struct {
	Role    string // user | assistant
	Content string
}

// LLMProvider is one configured OpenAI-chat-completions-compatible endpoint.
// Every provider in the ordered list speaks the same API shape regardless
// of which vendor backs it.
type LLMProvider struct {
	Name    string
	Model   string
	BaseURL string

	client oai.Client
}

// NewLLMProvider builds a provider client for one (name, base_url, model, api_key) record.
func NewLLMProvider(name, baseURL, model, apiKey string) *LLMProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &LLMProvider{
		Name:    name,
		Model:   model,
		BaseURL: baseURL,
		client:  oai.NewClient(opts...),
	}
}

// LLMAdapter implements chat_stream and chat_json over an ordered provider
// list using the try-in-order-with-commit-after-first-success combinator.
type LLMAdapter struct {
	Providers    []*LLMProvider
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// NewLLMAdapter creates an adapter bound to a fixed persona prompt,
// independent of whatever prompt chat_json callers supply.
func NewLLMAdapter(providers []*LLMProvider, systemPrompt string, maxTokens int, temperature float64) *LLMAdapter {
	return &LLMAdapter{Providers: providers, SystemPrompt: systemPrompt, MaxTokens: maxTokens, Temperature: temperature}
}

// ChatStream streams text deltas to onDelta. Providers are tried in order;
// each is read until its first non-empty delta, after which the adapter
// commits to it and forwards every subsequent delta. If every provider
// fails to produce any content, onDelta is invoked once with a fixed
// apology and the call returns. Retries within a single provider are
// disabled — failover across the list is the only recovery.
func (a *LLMAdapter) ChatStream(ctx context.Context, userText string, history []ChatTurn, onDelta func(string)) {
	messages := a.buildMessages(userText, history)

	_, ok := TryInOrder(a.Providers, func(p *LLMProvider, _ int) (struct{}, bool) {
		return struct{}{}, a.attemptStream(ctx, p, messages, onDelta)
	}, func(p *LLMProvider, _ int) {
		metrics.ProviderFailovers.WithLabelValues(p.Name).Inc()
	})

	if !ok {
		onDelta(apologyText)
	}
}

func (a *LLMAdapter) attemptStream(ctx context.Context, p *LLMProvider, messages []oai.ChatCompletionMessageParamUnion, onDelta func(string)) bool {
	params := a.completionParams(p, messages)

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	committed := false
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		committed = true
		onDelta(delta)
	}
	if err := stream.Err(); err != nil {
		metrics.Errors.WithLabelValues("llm", "stream").Inc()
		return committed
	}
	return committed
}

// ChatJSON issues a non-streaming completion per provider, first requesting
// a strict JSON object; on refusal it retries the same provider once
// without the strict-format hint. Returns nil if every provider fails to
// produce a parseable JSON object.
func (a *LLMAdapter) ChatJSON(ctx context.Context, userText, systemPrompt string, maxTokens int, temperature float64) map[string]any {
	messages := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(systemPrompt),
		oai.UserMessage(userText),
	}

	result, ok := TryInOrder(a.Providers, func(p *LLMProvider, _ int) (map[string]any, bool) {
		return a.attemptJSON(ctx, p, messages, maxTokens, temperature)
	}, func(p *LLMProvider, _ int) {
		metrics.ProviderFailovers.WithLabelValues(p.Name).Inc()
	})
	if !ok {
		return nil
	}
	return result
}

func (a *LLMAdapter) attemptJSON(ctx context.Context, p *LLMProvider, messages []oai.ChatCompletionMessageParamUnion, maxTokens int, temperature float64) (map[string]any, bool) {
	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.Model),
		Messages: messages,
	}
	if temperature != 0 {
		params.Temperature = param.NewOpt(temperature)
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(maxTokens))
	}

	strict := params
	strict.ResponseFormat = oai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
	}

	resp, err := p.client.Chat.Completions.New(ctx, strict)
	if err != nil {
		resp, err = p.client.Chat.Completions.New(ctx, params)
		if err != nil {
			metrics.Errors.WithLabelValues("llm", "json_http").Inc()
			return nil, false
		}
	}
	if len(resp.Choices) == 0 {
		return nil, false
	}

	parsed, ok := parseJSONContent(resp.Choices[0].Message.Content)
	if !ok {
		metrics.Errors.WithLabelValues("llm", "json_parse").Inc()
		return nil, false
	}
	return parsed, true
}

func (a *LLMAdapter) completionParams(p *LLMProvider, messages []oai.ChatCompletionMessageParamUnion) oai.ChatCompletionNewParams {
	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.Model),
		Messages: messages,
	}
	if a.Temperature != 0 {
		params.Temperature = param.NewOpt(a.Temperature)
	}
	if a.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(a.MaxTokens))
	}
	return params
}

func (a *LLMAdapter) buildMessages(userText string, history []ChatTurn) []oai.ChatCompletionMessageParamUnion {
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, oai.SystemMessage(a.SystemPrompt))
	for _, turn := range history {
		switch turn.Role {
		case "assistant":
			messages = append(messages, oai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, oai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, oai.UserMessage(userText))
	return messages
}

// parseJSONContent applies the three-tier fallback: direct parse, then
// strip markdown code fences, then take the substring between the first
// '{' and the last '}'.
func parseJSONContent(content string) (map[string]any, bool) {
	if m, ok := tryUnmarshalObject(content); ok {
		return m, true
	}
	if m, ok := tryUnmarshalObject(stripMarkdownFences(content)); ok {
		return m, true
	}
	if sub, ok := extractBraces(content); ok {
		if m, ok := tryUnmarshalObject(sub); ok {
			return m, true
		}
	}
	return nil, false
}

func tryUnmarshalObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &m); err != nil {
		return nil, false
	}
	return m, true
}

func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func extractBraces(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
