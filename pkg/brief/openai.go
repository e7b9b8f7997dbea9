package brief

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"golang.org/x/time/rate"

	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
	"github.com/otherjamesbrown/prepbrief/pkg/logging"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-5-mini"

	// DefaultRequestsPerMinute paces calls when no rate is configured.
	DefaultRequestsPerMinute = 20

	// DefaultMaxOutputTokens caps a single brief.
	DefaultMaxOutputTokens = 1500

	sourceName = "openai"
	maxRetries = 3
)

const instructions = `You prepare short pre-meeting briefs for a sales team.
Use only the facts in the meeting details and history you are given.
When the history says the meeting is a first-time interaction, do not refer to earlier conversations.
Other teams' threads are listed only so the team is aware they exist; never guess what was discussed in them.
Carry open action items from the history into follow_ups. Keep every list item to one sentence.`

// OpenAIConfig configures an OpenAIDrafter.
type OpenAIConfig struct {
	Model             string
	RequestsPerMinute int
	MaxOutputTokens   int64
}

// OpenAIDrafter drafts briefs with the Responses API using a strict JSON
// schema derived from Brief.
type OpenAIDrafter struct {
	client    *openai.Client
	model     string
	maxTokens int64
	schema    map[string]any
	limiter   *rate.Limiter
	logger    logging.Logger

	rateLimitWaits   []time.Duration
	serverErrorWaits []time.Duration
	sleep            func(ctx context.Context, d time.Duration) error
}

// NewOpenAIDrafter creates a drafter authenticated with apiKey. Extra
// request options are passed through to the client.
func NewOpenAIDrafter(apiKey string, cfg OpenAIConfig, logger logging.Logger, opts ...option.RequestOption) (*OpenAIDrafter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai api key is empty: %w", pberrors.ErrValidation)
	}
	schema, err := GenerateSchema[Brief]()
	if err != nil {
		return nil, fmt.Errorf("generating brief schema: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIDrafter{
		client:           &client,
		model:            cfg.Model,
		maxTokens:        cfg.MaxOutputTokens,
		schema:           schema,
		limiter:          rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		logger:           logger,
		rateLimitWaits:   []time.Duration{65 * time.Second, 100 * time.Second},
		serverErrorWaits: []time.Duration{5 * time.Second, 30 * time.Second},
		sleep:            sleepContext,
	}, nil
}

// Model returns the configured model name.
func (d *OpenAIDrafter) Model() string {
	return d.model
}

// Draft implements Drafter.
func (d *OpenAIDrafter) Draft(ctx context.Context, req Request) (Brief, error) {
	params := responses.ResponseNewParams{
		Model:           d.model,
		MaxOutputTokens: openai.Int(d.maxTokens),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(Prompt(req), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "MeetingBrief",
					Schema:      d.schema,
					Strict:      openai.Bool(true),
					Description: openai.String("Pre-meeting sales brief"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := d.callWithRetry(ctx, params)
	if err != nil {
		return Brief{}, pberrors.ClassifySourceError(err, sourceName)
	}

	var out Brief
	if err := decodeModelJSON(resp.OutputText(), &out); err != nil {
		return Brief{}, pberrors.ClassifySourceError(fmt.Errorf("decoding brief: %w", err), sourceName)
	}
	out.Headline = strings.TrimSpace(out.Headline)
	return out, nil
}

func (d *OpenAIDrafter) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := d.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		var waits []time.Duration
		switch {
		case isRateLimitError(err):
			waits = d.rateLimitWaits
		case isServerError(err):
			waits = d.serverErrorWaits
		}
		if attempt >= len(waits) || attempt >= maxRetries-1 {
			return nil, err
		}

		d.logger.Warn("Retrying brief draft",
			logging.F("attempt", attempt+1),
			logging.F("wait", waits[attempt].String()),
			logging.Err(err))
		if err := d.sleep(ctx, waits[attempt]); err != nil {
			return nil, err
		}
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	s := strings.ToLower(err.Error())
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(s, code) {
			return true
		}
	}
	return strings.Contains(s, "internal server error") ||
		strings.Contains(s, "server_error")
}

// decodeModelJSON unmarshals model output, falling back to the outermost
// JSON object when the model wrapped it in prose.
func decodeModelJSON(text string, v any) error {
	s := strings.TrimSpace(text)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object in model output (len=%d): %w", len(s), pberrors.ErrValidation)
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("unmarshal extracted JSON: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
