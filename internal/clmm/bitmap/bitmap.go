// Package bitmap tracks initialized ticks as a sparse set of 256-bit words
// keyed by compressed tick >> 8.
package bitmap

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/holiman/uint256"
)

var ErrTickMisaligned = errors.New("tick not aligned to tick spacing")

type Bitmap struct {
	words map[int32]uint256.Int
}

func New() *Bitmap {
	return &Bitmap{words: make(map[int32]uint256.Int)}
}

// Compress divides tick by spacing, rounding toward negative infinity.
func Compress(tick int32, spacing uint32) int32 {
	s := int32(spacing)
	c := tick / s
	if tick < 0 && tick%s != 0 {
		c--
	}
	return c
}

// Position splits a compressed tick into its word index and bit position.
func Position(compressed int32) (word int32, bit uint8) {
	return compressed >> 8, uint8(compressed & 0xff)
}

func (b *Bitmap) FlipTick(tick int32, spacing uint32) error {
	if spacing == 0 || tick%int32(spacing) != 0 {
		return fmt.Errorf("%w: tick %d spacing %d", ErrTickMisaligned, tick, spacing)
	}
	word, bit := Position(tick / int32(spacing))
	w := b.words[word]
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bit))
	w.Xor(&w, mask)
	if w.IsZero() {
		delete(b.words, word)
	} else {
		b.words[word] = w
	}
	return nil
}

func (b *Bitmap) IsInitialized(tick int32, spacing uint32) bool {
	if spacing == 0 || tick%int32(spacing) != 0 {
		return false
	}
	word, bit := Position(tick / int32(spacing))
	w, ok := b.words[word]
	if !ok {
		return false
	}
	return w[bit/64]&(1<<(bit%64)) != 0
}

// NextInitializedTickWithinOneWord searches the word holding tick (lte) or
// the word holding the next compressed tick (gt). When nothing is set it
// returns the word edge, which may lie outside the valid tick range.
func (b *Bitmap) NextInitializedTickWithinOneWord(tick int32, spacing uint32, lte bool) (int32, bool) {
	compressed := Compress(tick, spacing)
	s := int32(spacing)

	if lte {
		word, bit := Position(compressed)
		w := b.words[word]
		// all bits at or below bit
		mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bit))
		mask.Sub(mask, uint256.NewInt(1))
		mask.Add(mask, new(uint256.Int).Lsh(uint256.NewInt(1), uint(bit)))
		masked := new(uint256.Int).And(&w, mask)
		if masked.IsZero() {
			return (compressed - int32(bit)) * s, false
		}
		msb := int32(masked.BitLen() - 1)
		return (compressed - (int32(bit) - msb)) * s, true
	}

	word, bit := Position(compressed + 1)
	w := b.words[word]
	// all bits at or above bit
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bit))
	mask.Sub(mask, uint256.NewInt(1))
	mask.Not(mask)
	masked := new(uint256.Int).And(&w, mask)
	if masked.IsZero() {
		return (compressed + 1 + int32(255-bit)) * s, false
	}
	lsb := int32(leastSignificantBit(masked))
	return (compressed + 1 + (lsb - int32(bit))) * s, true
}

func leastSignificantBit(x *uint256.Int) int {
	for i := 0; i < 4; i++ {
		if x[i] != 0 {
			return i*64 + bits.TrailingZeros64(x[i])
		}
	}
	return 256
}

// Words returns a copy of the non-empty words.
func (b *Bitmap) Words() map[int32]uint256.Int {
	out := make(map[int32]uint256.Int, len(b.words))
	for k, v := range b.words {
		out[k] = v
	}
	return out
}

// Restore replaces the bitmap contents.
func (b *Bitmap) Restore(words map[int32]uint256.Int) {
	b.words = make(map[int32]uint256.Int, len(words))
	for k, v := range words {
		if !v.IsZero() {
			b.words[k] = v
		}
	}
}

func (b *Bitmap) Len() int {
	return len(b.words)
}
