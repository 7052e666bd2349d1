package ollama

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed vectorizes texts through the OpenAI-compatible /v1/embeddings
// endpoint. Inputs are partitioned into batches issued concurrently; the
// returned slice keeps input order regardless of provider response order.
// Any batch failure fails the whole call.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.embedMaxParallel)

	for offset := 0; offset < len(texts); offset += c.embedBatchSize {
		start := offset
		end := min(start+c.embedBatchSize, len(texts))

		group.Go(func() error {
			return c.embedBatch(groupCtx, texts[start:end], out[start:end])
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string, out [][]float32) error {
	reqBody := embeddingsRequest{
		Model: c.embedModel,
		Input: batch,
	}
	var response embeddingsResponse

	call := func(callCtx context.Context) error {
		if err := c.waitQuota(callCtx); err != nil {
			return err
		}
		return c.postJSON(callCtx, "/v1/embeddings", reqBody, &response, "embeddings")
	}
	if err := c.executor.Execute(ctx, "ollama.embeddings", call, classifyUpstreamError); err != nil {
		return wrapTemporaryIfNeeded("embeddings", err)
	}

	if len(response.Data) != len(batch) {
		return fmt.Errorf("embeddings: got %d vectors for %d inputs", len(response.Data), len(batch))
	}
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(batch) {
			return fmt.Errorf("embeddings: vector index %d out of range for batch of %d", item.Index, len(batch))
		}
		if len(item.Embedding) == 0 {
			return fmt.Errorf("embeddings: empty vector at index %d", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	for i, vector := range out {
		if vector == nil {
			return fmt.Errorf("embeddings: missing vector for input %d", i)
		}
	}
	return nil
}
