// Package encoding converts the EUC-KR text stored in Ragnarok Online files.
// Model node names, texture names and archive paths are all EUC-KR on disk.
package encoding

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// EUCKRToUTF8 converts EUC-KR encoded bytes to a UTF-8 string.
// Returns the bytes unchanged if conversion fails.
func EUCKRToUTF8(data []byte) string {
	result, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToEUCKR converts a UTF-8 string to EUC-KR bytes.
// Returns the string's bytes unchanged if it has no EUC-KR form.
func UTF8ToEUCKR(s string) []byte {
	result, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// FixedString decodes a null-padded EUC-KR field.
func FixedString(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return EUCKRToUTF8(data)
}

// PutFixedString encodes s as EUC-KR into dst and zero-fills the rest.
// It fails when the encoded form does not fit.
func PutFixedString(dst []byte, s string) error {
	encoded := UTF8ToEUCKR(s)
	if len(encoded) > len(dst) {
		return fmt.Errorf("%q is %d bytes encoded, field holds %d", s, len(encoded), len(dst))
	}
	n := copy(dst, encoded)
	clear(dst[n:])
	return nil
}
