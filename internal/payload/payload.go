// Package payload generates the filler bytes exchanged by throughput probes.
package payload

import "sync"

const (
	KiB = 1024
	MiB = 1024 * KiB

	// MaxSize is the largest payload the server will produce
	MaxSize = 10 * MiB
	// DefaultSize is used when a requested size is missing or invalid
	DefaultSize = 1 * MiB
)

// CommonSizes are pre-generated by the cache
var CommonSizes = []int{64 * KiB, 128 * KiB, 256 * KiB, 512 * KiB, 1 * MiB}

// Filler returns size bytes of the (i*41) % 256 pattern. The pattern does not
// repeat within 256 bytes, which defeats naive transfer compression.
func Filler(size int) []byte {
	if size <= 0 {
		return []byte{}
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte((i * 41) % 256)
	}
	return buf
}

// ClampSize normalizes a requested payload size
func ClampSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// Cache holds pre-generated payloads for common sizes plus the largest
// buffer generated on demand. Returned slices are shared and must not be
// modified.
type Cache struct {
	buffers map[int][]byte // read-only after NewCache

	mu      sync.RWMutex
	largest []byte
}

// NewCache creates a cache warmed with CommonSizes
func NewCache() *Cache {
	c := &Cache{buffers: make(map[int][]byte, len(CommonSizes))}
	for _, size := range CommonSizes {
		c.buffers[size] = Filler(size)
	}
	c.largest = c.buffers[CommonSizes[len(CommonSizes)-1]]
	return c
}

// Get returns a payload of the given size. The pattern depends only on the
// byte position, so any buffer at least as large can be sliced.
func (c *Cache) Get(size int) []byte {
	if buf, ok := c.buffers[size]; ok {
		return buf
	}

	c.mu.RLock()
	largest := c.largest
	c.mu.RUnlock()
	if len(largest) >= size {
		return largest[:max(size, 0)]
	}

	buf := Filler(size)
	c.mu.Lock()
	if len(buf) > len(c.largest) {
		c.largest = buf
	}
	c.mu.Unlock()
	return buf
}

// Sizes returns the number of pre-generated buffers
func (c *Cache) Sizes() int {
	return len(c.buffers)
}

// Largest returns the size of the largest buffer held
func (c *Cache) Largest() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.largest)
}
