package embed

import (
	"context"
	"sync"
	"sync/atomic"
)

// mockEmbedder counts calls and returns a vector derived from the text
// length so different texts get different vectors.
type mockEmbedder struct {
	embedCalls atomic.Int64
	batchCalls atomic.Int64
	batchSizes []int
	mu         sync.Mutex
	dimensions int
	modelName  string
	err        error
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dimensions: dims, modelName: "mock-model"}
}

func (m *mockEmbedder) vector(text string) []float32 {
	vec := make([]float32, m.dimensions)
	vec[len(text)%m.dimensions] = 1
	return vec
}

func (m *mockEmbedder) Embed(_ context.Context, text string, _ TaskType) ([]float32, error) {
	m.embedCalls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string, _ TaskType) ([][]float32, error) {
	m.batchCalls.Add(1)
	m.mu.Lock()
	m.batchSizes = append(m.batchSizes, len(texts))
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int  { return m.dimensions }
func (m *mockEmbedder) ModelName() string { return m.modelName }
func (m *mockEmbedder) Close() error      { return nil }

// mapSecondLevel is an in-memory SecondLevel.
type mapSecondLevel struct {
	mu      sync.Mutex
	data    map[string][]float32
	gets    int
	sets    int
	failGet error
}

func newMapSecondLevel() *mapSecondLevel {
	return &mapSecondLevel{data: map[string][]float32{}}
}

func (s *mapSecondLevel) Get(_ context.Context, key string) ([]float32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.failGet != nil {
		return nil, false, s.failGet
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *mapSecondLevel) Set(_ context.Context, key string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	s.data[key] = vec
	return nil
}
