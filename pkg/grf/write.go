package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"sort"

	"github.com/Faultbox/meshloader/pkg/encoding"
)

// Write encodes files as a version 0x200 archive with zlib-compressed
// entries. Entry data is padded to 8 bytes.
func Write(w io.Writer, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var body, table bytes.Buffer
	for _, name := range names {
		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(files[name]); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}

		aligned := compressed.Len()
		if aligned%8 != 0 {
			aligned += 8 - aligned%8
		}
		offset := body.Len()
		body.Write(compressed.Bytes())
		body.Write(make([]byte, aligned-compressed.Len()))

		table.Write(encoding.UTF8ToEUCKR(name))
		table.WriteByte(0)
		var rec [entrySize]byte
		binary.LittleEndian.PutUint32(rec[0:], uint32(compressed.Len()))
		binary.LittleEndian.PutUint32(rec[4:], uint32(aligned))
		binary.LittleEndian.PutUint32(rec[8:], uint32(len(files[name])))
		rec[12] = FlagFile
		binary.LittleEndian.PutUint32(rec[13:], uint32(offset))
		table.Write(rec[:])
	}

	var ztable bytes.Buffer
	zw := zlib.NewWriter(&ztable)
	if _, err := zw.Write(table.Bytes()); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	h := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(names)) + 7,
		Version:     version200,
	}
	copy(h.Magic[:], grfMagic)

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, [2]uint32{uint32(ztable.Len()), uint32(table.Len())}); err != nil {
		return err
	}
	_, err := w.Write(ztable.Bytes())
	return err
}
