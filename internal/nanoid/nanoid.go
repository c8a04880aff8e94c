// Package nanoid produces short random identifiers for plans and channel entries.
package nanoid

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	mrand "math/rand"
)

const (
	// Alphabet is the 62-symbol set identifiers are drawn from.
	Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// Size is the identifier length.
	Size = 12
)

// Generator draws identifiers from Reader, falling back to math/rand when
// the reader is nil or fails.
type Generator struct {
	Reader io.Reader
}

var defaultGenerator = &Generator{Reader: rand.Reader}

// New returns a fresh identifier from the process-wide generator.
func New() string {
	return defaultGenerator.NewID()
}

// NewID returns a Size-character identifier.
func (g *Generator) NewID() string {
	buf := make([]byte, Size)
	if g != nil && g.Reader != nil {
		values := make([]byte, Size*4)
		if _, err := io.ReadFull(g.Reader, values); err == nil {
			for i := range buf {
				v := binary.LittleEndian.Uint32(values[i*4:])
				buf[i] = Alphabet[v%uint32(len(Alphabet))]
			}
			return string(buf)
		}
	}
	for i := range buf {
		buf[i] = Alphabet[mrand.Intn(len(Alphabet))]
	}
	return string(buf)
}
