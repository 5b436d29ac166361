package worker

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// ClaudeConfig configures the bundled Claude-backed worker.
type ClaudeConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock switches to AWS Bedrock instead of the direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// SystemPrompt describes the worker's role to the model.
	SystemPrompt string
	// MaxTokens caps the response length. Default 8192.
	MaxTokens int64
}

// ClaudeWorker satisfies the Worker contract with a Claude call. It
// exists so the engine ships with one real worker; orchestration only
// ever sees the Worker interface.
type ClaudeWorker struct {
	inner     anthropic.Client
	model     anthropic.Model
	system    string
	maxTokens int64
	usage     *usageTracker
}

// NewClaudeWorker builds a Claude-backed worker, direct API or Bedrock.
func NewClaudeWorker(cfg ClaudeConfig) (*ClaudeWorker, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = bedrockModel(model)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	return &ClaudeWorker{
		inner:     anthropic.NewClient(opts...),
		model:     model,
		system:    cfg.SystemPrompt,
		maxTokens: maxTokens,
		usage:     &usageTracker{},
	}, nil
}

// Invoke sends the goal and collaboration context to the model and
// returns the text response.
func (w *ClaudeWorker) Invoke(ctx context.Context, req Request) (Output, error) {
	resp, err := w.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     w.model,
		MaxTokens: w.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: w.systemPrompt(req)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req))),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return Output{}, ctx.Err()
		}
		return Output{}, fmt.Errorf("claude call: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	tokens := resp.Usage.InputTokens + resp.Usage.OutputTokens
	w.usage.add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	return Output{Text: text.String(), TokensUsed: tokens}, nil
}

// Usage returns the cumulative input and output token counts.
func (w *ClaudeWorker) Usage() (input, output int64) {
	return w.usage.total()
}

func (w *ClaudeWorker) systemPrompt(req Request) string {
	system := w.system
	if system == "" {
		system = "You are a focused worker agent. Complete the given subtask and report your result concisely."
	}
	if len(req.Scopes) > 0 {
		system += "\n\nYou may only touch these resources: " + strings.Join(req.Scopes, ", ")
	}
	return system
}

// userPrompt folds the shared collaboration context into the goal so
// the model sees prior findings.
func userPrompt(req Request) string {
	if len(req.Context) == 0 {
		return req.Goal
	}
	keys := make([]string, 0, len(req.Context))
	for k := range req.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(req.Goal)
	b.WriteString("\n\n## Shared context\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, req.Context[k])
	}
	return b.String()
}

// bedrockModel converts standard model names to Bedrock cross-region
// inference profile format: us.anthropic.{model}-v1:0.
func bedrockModel(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if m, ok := bedrockModels[model]; ok {
		return anthropic.Model(m)
	}
	return model
}

// usageTracker accumulates token usage across calls.
type usageTracker struct {
	mu     sync.Mutex
	input  int64
	output int64
}

func (t *usageTracker) add(in, out int64) {
	t.mu.Lock()
	t.input += in
	t.output += out
	t.mu.Unlock()
}

func (t *usageTracker) total() (int64, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.input, t.output
}
