package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/doc-insight/internal/infrastructure/resilience"
)

// Client talks to an Ollama server: OpenAI-compatible /v1/embeddings for
// vectors and /api/generate for text and JSON generation. All outbound calls
// share one rate limiter and one resilience executor.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client

	limiter  *rate.Limiter
	executor *resilience.Executor

	embedBatchSize   int
	embedMaxParallel int
}

type Options struct {
	RequestTimeout   time.Duration
	RateRPS          float64
	RateBurst        int
	EmbedBatchSize   int
	EmbedMaxParallel int
	Executor         *resilience.Executor
}

func New(baseURL, genModel, embedModel string, options Options) *Client {
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	batchSize := options.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	maxParallel := options.EmbedMaxParallel
	if maxParallel <= 0 {
		maxParallel = 4
	}
	executor := options.Executor
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}

	var limiter *rate.Limiter
	if options.RateRPS > 0 {
		burst := options.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(options.RateRPS), burst)
	}

	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		genModel:         genModel,
		embedModel:       embedModel,
		httpClient:       &http.Client{Timeout: timeout},
		limiter:          limiter,
		executor:         executor,
		embedBatchSize:   batchSize,
		embedMaxParallel: maxParallel,
	}
}

func (c *Client) waitQuota(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	})
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	})
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}

	call := func(callCtx context.Context) error {
		if err := c.waitQuota(callCtx); err != nil {
			return err
		}
		return c.postJSON(callCtx, "/api/generate", reqBody, &response, "generate")
	}
	if err := c.executor.Execute(ctx, "ollama.generate", call, classifyUpstreamError); err != nil {
		return "", wrapTemporaryIfNeeded("generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
