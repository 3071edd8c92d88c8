package image

import (
	"encoding/binary"
	"fmt"
	"io"
)

// LabelEntry is one row of the label table: a qualified state name and the
// byte offset (inside the state-record region) it names.
type LabelEntry struct {
	Name        string
	StateOffset int32
}

// WriteTo encodes one label-table entry.
func (l LabelEntry) WriteTo(w io.Writer) error {
	if len(l.Name) > 255 {
		return fmt.Errorf("label name %q exceeds 255 bytes", l.Name)
	}
	if _, err := w.Write([]byte{byte(len(l.Name))}); err != nil {
		return err
	}
	if _, err := io.WriteString(w, l.Name); err != nil {
		return err
	}
	var off [4]byte
	binary.LittleEndian.PutUint32(off[:], uint32(l.StateOffset))
	_, err := w.Write(off[:])
	return err
}

// ReadLabelEntry decodes one label-table entry from buf, returning the
// number of bytes consumed.
func ReadLabelEntry(buf []byte) (LabelEntry, int, error) {
	if len(buf) < 1 {
		return LabelEntry{}, 0, fmt.Errorf("truncated label entry")
	}
	n := int(buf[0])
	pos := 1
	if pos+n+4 > len(buf) {
		return LabelEntry{}, 0, fmt.Errorf("truncated label entry name/offset")
	}
	name := string(buf[pos : pos+n])
	pos += n
	off := int32(binary.LittleEndian.Uint32(buf[pos : pos+4]))
	pos += 4
	return LabelEntry{Name: name, StateOffset: off}, pos, nil
}
