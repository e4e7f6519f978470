package img2aa

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// recognitionCache memoises backend outputs for one line decode. Sibling
// beams often stand at the same cursor with identical patches, and the
// backend is the expensive part of a step.
//
// The key is an FNV-64a hash over the patch geometry and every channel
// value. Failed calls are cached as nil so a broken patch is not retried
// by each sibling.
type recognitionCache struct {
	entries map[uint64][]float32
	hits    int
	misses  int
}

func newRecognitionCache() *recognitionCache {
	return &recognitionCache{entries: make(map[uint64][]float32)}
}

func patchKey(p Patch) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(p.Width))
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], uint32(p.Height))
	h.Write(buf[:])
	for _, ch := range p.Channels {
		for _, v := range ch {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

// get returns the cached output and whether the key was present.
func (c *recognitionCache) get(k uint64) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.entries[k]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *recognitionCache) put(k uint64, v []float32) {
	if c == nil {
		return
	}
	c.misses++
	c.entries[k] = v
}
