package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
	openai "github.com/sashabaranov/go-openai"

	"leafai-server-go/internal/domain/analysis"
	"leafai-server-go/internal/platform/config"
	"leafai-server-go/internal/platform/logging"
	"leafai-server-go/internal/platform/observability"
)

const defaultMaxTokens = 1024

// Provider sends leaf images to an OpenAI-compatible vision model. It
// implements analysis.Analyzer so controllers and transports stay agnostic
// of where the answer comes from.
type Provider struct {
	cfg          config.VisionConfig
	systemPrompt string
	client       *openai.Client
	logger       *logging.Logger
}

// NewProvider builds a provider from the selected vision model config. A
// missing API key is tolerated here so the server can boot without
// credentials; the first Analyze call reports it instead.
func NewProvider(cfg config.VisionConfig, systemPrompt string, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	p := &Provider{
		cfg:          cfg,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
	p.initialize()
	return p
}

func (p *Provider) initialize() {
	if p.cfg.APIKey == "" {
		p.logger.WarnTag("VISION", "no api key configured, analyze calls will be rejected")
		return
	}

	clientConfig := openai.DefaultConfig(p.cfg.APIKey)
	if p.cfg.BaseURL != "" {
		clientConfig.BaseURL = p.cfg.BaseURL
	}
	p.client = openai.NewClientWithConfig(clientConfig)
	p.logger.InfoTag("VISION", "provider ready: model=%s url=%s", p.cfg.ModelName, p.cfg.BaseURL)
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.cfg.ModelName
}

// Analyze implements analysis.Analyzer against the upstream vision model.
// The upload is inlined as a base64 data URI; the response is re-encoded
// to its chat-completion JSON so the caller normalizes it like any other
// analyzer output.
func (p *Provider) Analyze(ctx context.Context, upload analysis.Upload, prompt string) (json.RawMessage, error) {
	if p.client == nil {
		return nil, &analysis.RequestError{
			StatusCode: 500,
			Detail:     "PERPLEXITY_API_KEY is not configured",
		}
	}

	ctx, end := observability.StartSpan(ctx, "vision", "analyze")

	dataURI := fmt.Sprintf("data:%s;base64,%s",
		upload.MIME, base64.StdEncoding.EncodeToString(upload.Data))

	request := openai.ChatCompletionRequest{
		Model: p.cfg.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: p.systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: dataURI,
						},
					},
				},
			},
		},
		Temperature: float32(p.cfg.Temperature),
		MaxTokens:   p.cfg.MaxTokens,
	}
	if p.cfg.TopP > 0 {
		request.TopP = float32(p.cfg.TopP)
	}

	p.logger.DebugTag("VISION", "requesting completion: model=%s image_bytes=%d prompt_len=%d",
		p.cfg.ModelName, upload.Size(), len(prompt))

	resp, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		end(err)
		return nil, translateError(err)
	}
	end(nil)

	raw, err := sonic.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode completion response: %w", err)
	}
	return raw, nil
}

// translateError maps upstream API errors onto RequestError so callers see
// the upstream status and message the same way they see the backend's own
// rejections.
func translateError(err error) error {
	if apiErr, ok := err.(*openai.APIError); ok {
		return &analysis.RequestError{
			StatusCode: apiErr.HTTPStatusCode,
			Detail:     apiErr.Message,
		}
	}
	return fmt.Errorf("vision completion failed: %w", err)
}
