package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Faultbox/meshloader/pkg/encoding"
)

// ErrInvalidElementCount is returned when a stored element count exceeds the
// format's limit.
var ErrInvalidElementCount = errors.New("invalid element count")

// binReader is a little-endian reader with a sticky error: after the first
// failure every read is a no-op and err holds the cause. Short reads set err
// to truncated.
type binReader struct {
	r         *bytes.Reader
	err       error
	truncated error
}

func (b *binReader) read(v any) {
	if b.err != nil {
		return
	}
	if err := binary.Read(b.r, binary.LittleEndian, v); err != nil {
		b.err = b.truncated
	}
}

func (b *binReader) skip(n int64) {
	if b.err != nil {
		return
	}
	if n < 0 || int64(b.r.Len()) < n {
		b.err = b.truncated
		return
	}
	b.r.Seek(n, io.SeekCurrent)
}

// fixedString reads a null-padded EUC-KR field of n bytes.
func (b *binReader) fixedString(n int) string {
	buf := make([]byte, n)
	b.read(buf)
	return encoding.FixedString(buf)
}

// count reads an int32 element count. Negative counts are treated as empty;
// counts above limit are rejected.
func (b *binReader) count(limit int32, what string) int {
	var n int32
	b.read(&n)
	if b.err != nil || n <= 0 {
		return 0
	}
	if n > limit {
		b.err = fmt.Errorf("%w: %d %s", ErrInvalidElementCount, n, what)
		return 0
	}
	return int(n)
}
