// Package anthropic wraps the official SDK for invoice extraction calls.
// Requests carry the document bytes; responses return the raw model text for
// the parser plus token usage for cost attribution.
package anthropic

import (
	"context"
	"encoding/base64"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/invoice-cli/internal/resilience"
)

// Client defines the Anthropic API operations used by the extraction pipeline.
type Client interface {
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)
}

// ExtractRequest is a single document extraction call.
type ExtractRequest struct {
	Model       string
	MaxTokens   int64
	Temperature *float64
	Prompt      string
	MediaType   string // "image/jpeg", "image/png", "application/pdf", ...
	Data        []byte // raw document bytes
}

// ExtractResponse carries the model's text output and token accounting.
type ExtractResponse struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// modelPricing holds per-million-token pricing for known models.
var modelPricing = map[string][2]float64{
	// model → {input $/MTok, output $/MTok}
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-6":            {15.00, 75.00},
}

// EstimateCost computes an estimated cost in USD from a TokenUsage and model ID.
// Returns 0 for unknown models.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	inCost := (float64(u.InputTokens) / 1e6) * pricing[0]
	outCost := (float64(u.OutputTokens) / 1e6) * pricing[1]
	return inCost + outCost
}

// LogCost logs token usage and estimated cost with structured zap fields.
func (u TokenUsage) LogCost(model, file string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("file", file),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client  sdk.Client
	limiter *rate.Limiter
	retry   resilience.Policy
}

// NewClient creates an Anthropic client. requestsPerMin caps the call rate;
// zero disables limiting. maxRetries is the total attempt count for
// transient API failures; zero uses the default.
func NewClient(apiKey string, requestsPerMin, maxRetries int) Client {
	var limiter *rate.Limiter
	if requestsPerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerMin)/60, 1)
	}
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
		limiter: limiter,
		retry:   resilience.NewPolicy(maxRetries),
	}
}

func (c *sdkClient) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	if len(req.Data) == 0 {
		return nil, eris.New("anthropic: empty document")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "anthropic: rate limit wait")
		}
	}

	encoded := base64.StdEncoding.EncodeToString(req.Data)

	var docBlock sdk.ContentBlockParamUnion
	if req.MediaType == "application/pdf" {
		docBlock = sdk.NewDocumentBlock(sdk.Base64PDFSourceParam{Data: encoded})
	} else {
		docBlock = sdk.NewImageBlockBase64(req.MediaType, encoded)
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				docBlock,
				sdk.NewTextBlock(req.Prompt),
			),
		},
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := resilience.Do(ctx, c.retry, "anthropic.extract",
		func(ctx context.Context) (*sdk.Message, error) {
			return c.client.Messages.New(ctx, params)
		})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	return fromSDKMessage(msg), nil
}

func fromSDKMessage(msg *sdk.Message) *ExtractResponse {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return &ExtractResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       sb.String(),
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}
