package mocks

import "context"

// Embedder is a mock implementation of ports.Embedder. Vectors maps texts
// to embeddings; other texts get EmbeddingResult.
type Embedder struct {
	EmbeddingResult []float32
	Vectors         map[string][]float32
	Err             error
}

// Embed returns the configured embedding or error.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	return m.EmbeddingResult, nil
}

// EmbedBatch returns embeddings for multiple texts.
func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i], _ = m.Embed(ctx, text)
	}
	return result, nil
}
