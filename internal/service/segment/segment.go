// Package segment names the numbered files produced by a silence split.
package segment

import (
	"fmt"
	"sync/atomic"
)

// Generator hands out sequential segment indexes and file names.
// Safe for concurrent use.
type Generator struct {
	next atomic.Int64
}

// NewGenerator returns a generator whose first index is startIndex, clamped to 1.
func NewGenerator(startIndex int) *Generator {
	if startIndex < 1 {
		startIndex = 1
	}
	g := &Generator{}
	g.next.Store(int64(startIndex))
	return g
}

// Next returns the next index and its file name.
func (g *Generator) Next() (int, string) {
	n := int(g.next.Add(1) - 1)
	return n, FileName(n)
}

// FileName returns the zero-padded WAV name for index, e.g. 7 -> "007.wav".
func FileName(index int) string {
	return fmt.Sprintf("%03d.wav", index)
}
