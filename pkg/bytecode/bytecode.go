// Package bytecode implements the CUEL bytecode container: a flat
// little-endian u32 word stream with a fixed magic first word, shared
// by the compiler's writer and every reader (cuelvm, cueldis, cueldbg).
package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/rmay/cuel/pkg/vm"
)

// ErrInvalidFile reports a file too short or not word-aligned.
var ErrInvalidFile = errors.New("Invalid bytecode file.")

// ErrMissingMagic reports a correctly-sized file whose first word is not
// the CUEL magic number.
var ErrMissingMagic = errors.New("Invalid bytecode file. Missing magic number.")

// IOError reports an operating-system failure opening, reading, or
// writing a source or bytecode file, mirroring the reference
// compiler's "I/O error(errno): strerror" rendering.
type IOError struct {
	Errno int
	Msg   string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("I/O error(%d): %s", e.Errno, e.Msg)
}

// WrapIOError converts an *os.PathError (as returned by os.Open,
// os.ReadFile, os.WriteFile, ...) into an *IOError carrying its errno
// and strerror text. Returns err unchanged if it is not a PathError
// wrapping a syscall.Errno.
func WrapIOError(err error) error {
	pathErr, ok := err.(*os.PathError)
	if !ok {
		return err
	}
	errno, ok := pathErr.Err.(syscall.Errno)
	if !ok {
		return err
	}
	return &IOError{Errno: int(errno), Msg: errno.Error()}
}

// Encode packs a word buffer (word 0 must already be vm.Magic) into its
// on-disk little-endian byte form.
func Encode(words []uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// Decode validates and unpacks raw file bytes into a word buffer,
// enforcing two size checks, minimum length (3 words) and word
// alignment, before the magic check, so a
// truncated file never reaches the magic comparison with an
// out-of-bounds read.
func Decode(data []byte) ([]uint32, error) {
	if len(data) < 3*4 || len(data)%4 != 0 {
		return nil, ErrInvalidFile
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if words[0] != vm.Magic {
		return nil, ErrMissingMagic
	}
	return words, nil
}
