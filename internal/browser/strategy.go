package browser

import (
	"io"
)

// BodyConsumptionStrategy reads a response body to the end and reports how
// many bytes it contained.
type BodyConsumptionStrategy interface {
	Consume(body io.Reader) (int64, error)
	Name() string
}

// StreamingStrategy counts bytes while reading fixed-size chunks.
type StreamingStrategy struct {
	ChunkSize int
}

// Consume drains body chunk by chunk
func (s StreamingStrategy) Consume(body io.Reader) (int64, error) {
	size := s.ChunkSize
	if size <= 0 {
		size = 64 * 1024
	}
	return io.CopyBuffer(io.Discard, body, make([]byte, size))
}

func (StreamingStrategy) Name() string { return "streaming" }

// BufferedStrategy loads the whole body into memory before counting it, which
// mirrors how Safari exposes fetch bodies.
type BufferedStrategy struct{}

// Consume reads body fully
func (BufferedStrategy) Consume(body io.Reader) (int64, error) {
	data, err := io.ReadAll(body)
	return int64(len(data)), err
}

func (BufferedStrategy) Name() string { return "buffered" }

// StrategyFor selects the body consumption strategy for a profile.
func StrategyFor(p Profile) BodyConsumptionStrategy {
	if p.IsSafari {
		return BufferedStrategy{}
	}
	return StreamingStrategy{ChunkSize: 64 * 1024}
}
