// Package image implements the states-DSL compiled binary format (spec
// §3 "Image", §4.A): the on-disk/in-memory layout of state records, the
// label and spawn tables, and the shared bytecode region, plus the
// dedup-while-assembling writer and the zero-copy loader.
package image

import (
	"encoding/binary"
	"fmt"
	"io"
)

// StateSize is the fixed on-disk size in bytes of one StateRecord: id(4) +
// ticks(4) + directional(1) + think_offs(4) + action_offs(4) + next(4).
// Spec §3 calls this STATE_SIZE and requires the compiler and loader to
// agree on it (§8 property 2, §9 "STATE_SIZE is layout-fragile").
const StateSize = 21

// StateRecord is the atomic animation/behaviour unit (spec §3).
type StateRecord struct {
	ID          int32
	Ticks       int32
	Directional bool
	ThinkOffs   int32
	ActionOffs  int32
	Next        int32
}

// WriteTo encodes r in StateSize bytes, little-endian.
func (r StateRecord) WriteTo(w io.Writer) error {
	var buf [StateSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.ID))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(r.Ticks))
	if r.Directional {
		buf[8] = 1
	}
	binary.LittleEndian.PutUint32(buf[9:13], uint32(r.ThinkOffs))
	binary.LittleEndian.PutUint32(buf[13:17], uint32(r.ActionOffs))
	binary.LittleEndian.PutUint32(buf[17:21], uint32(r.Next))
	_, err := w.Write(buf[:])
	return err
}

// ReadStateRecord decodes one StateRecord from buf, requiring at least
// StateSize bytes.
func ReadStateRecord(buf []byte) (StateRecord, error) {
	if len(buf) < StateSize {
		return StateRecord{}, fmt.Errorf("truncated state record: need %d bytes, have %d", StateSize, len(buf))
	}
	return StateRecord{
		ID:          int32(binary.LittleEndian.Uint32(buf[0:4])),
		Ticks:       int32(binary.LittleEndian.Uint32(buf[4:8])),
		Directional: buf[8] != 0,
		ThinkOffs:   int32(binary.LittleEndian.Uint32(buf[9:13])),
		ActionOffs:  int32(binary.LittleEndian.Uint32(buf[13:17])),
		Next:        int32(binary.LittleEndian.Uint32(buf[17:21])),
	}, nil
}
