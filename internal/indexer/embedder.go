package indexer

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// DefaultEmbeddingDimension matches text-embedding-3-large.
const DefaultEmbeddingDimension = 3072

// NoOpEmbedder returns zero vectors.
// Useful for testing or when embeddings are not needed.
type NoOpEmbedder struct {
	dimension int
}

// NewNoOpEmbedder creates a no-op embedder.
func NewNoOpEmbedder(dimension int) *NoOpEmbedder {
	return &NoOpEmbedder{dimension: dimension}
}

// Embed returns a zero vector.
func (e *NoOpEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, e.dimension), nil
}

// Dimension returns the embedding dimension.
func (e *NoOpEmbedder) Dimension() int {
	return e.dimension
}

// EmbedderConfig selects and configures the embedding service.
type EmbedderConfig struct {
	Provider  string // azure, openai, or any OpenAI-compatible provider
	APIKey    string
	Endpoint  string // Azure resource endpoint or OpenAI base URL
	Model     string // Model name (deployment name on Azure)
	Dimension int
}

// OpenAIEmbedder calls the OpenAI (or Azure OpenAI) embeddings API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder creates an embedder for OpenAI or an OpenAI-compatible endpoint.
// Common models: "text-embedding-3-small" (1536 dims), "text-embedding-3-large" (3072 dims)
func NewOpenAIEmbedder(config EmbedderConfig) *OpenAIEmbedder {
	var clientConfig openai.ClientConfig
	if config.Provider == "azure" {
		clientConfig = openai.DefaultAzureConfig(config.APIKey, config.Endpoint)
		// Azure addresses models by deployment name; use it verbatim.
		clientConfig.AzureModelMapperFunc = func(model string) string { return model }
	} else {
		clientConfig = openai.DefaultConfig(config.APIKey)
		if config.Endpoint != "" {
			clientConfig.BaseURL = config.Endpoint
		}
	}

	model := config.Model
	if model == "" {
		model = "text-embedding-3-large"
	}
	dimension := config.Dimension
	if dimension == 0 {
		dimension = DefaultEmbeddingDimension
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		dimension: dimension,
	}
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, e.embeddingRequest(texts))
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return vectors, nil
}

// embeddingRequest builds the request for texts. Only text-embedding-3
// models accept a dimensions field; older models reject it.
func (e *OpenAIEmbedder) embeddingRequest(texts []string) openai.EmbeddingRequest {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	}
	if strings.HasPrefix(e.model, "text-embedding-3") {
		req.Dimensions = e.dimension
	}
	return req
}

// Dimension returns the embedding dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// NewEmbedder creates the embedder for a provider name.
func NewEmbedder(config EmbedderConfig) (Embedder, error) {
	switch config.Provider {
	case "noop":
		dim := config.Dimension
		if dim == 0 {
			dim = DefaultEmbeddingDimension
		}
		return NewNoOpEmbedder(dim), nil
	case "":
		return nil, fmt.Errorf("embedding provider not set")
	default:
		if config.APIKey == "" {
			return nil, fmt.Errorf("embedding API key not set")
		}
		return NewOpenAIEmbedder(config), nil
	}
}

// encodeVector encodes a float32 vector to bytes.
// Uses little-endian encoding for compatibility.
func encodeVector(vector []float32) []byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vector); err != nil {
		// This should never happen with float32 slices
		panic(fmt.Sprintf("failed to encode vector: %v", err))
	}
	return buf.Bytes()
}

// DecodeVector decodes a byte slice back to a float32 vector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data length: %d", len(data))
	}

	vector := make([]float32, len(data)/4)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &vector); err != nil {
		return nil, fmt.Errorf("failed to decode vector: %w", err)
	}
	return vector, nil
}
