package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Image is the decoded, in-memory view of a compiled states image (spec
// §4.A, §4.E). The label table is materialised as a map for O(1) lookup
// and the spawn table as a slice in declared order; the state-record and
// bytecode regions are retained as a
// single byte slice and indexed by offset, matching the "byte offsets from
// the start of the state-record region" addressing rule.
type Image struct {
	labels  map[string]int32
	spawns  []SpawnInfo
	// tail is everything from the start of the state-record region to the
	// end of the file: state records followed by the bytecode region.
	tail []byte
}

// Labels returns every qualified state-label name known to the image.
func (img *Image) Labels() map[string]int32 {
	out := make(map[string]int32, len(img.labels))
	for k, v := range img.labels {
		out[k] = v
	}
	return out
}

// Spawns returns the spawn table in declared order.
func (img *Image) Spawns() []SpawnInfo { return img.spawns }

// FindState looks up a qualified label by name (spec §4.E "find_state").
func (img *Image) FindState(label string) (int32, error) {
	off, ok := img.labels[label]
	if !ok {
		return 0, fmt.Errorf("unknown state label %q", label)
	}
	return off, nil
}

// ReadState decodes the StateRecord at the given byte offset (spec §4.E
// "read_state").
func (img *Image) ReadState(offset int32) (StateRecord, error) {
	if offset < 0 || int(offset)+StateSize > len(img.tail) {
		return StateRecord{}, fmt.Errorf("state offset %d out of bounds", offset)
	}
	return ReadStateRecord(img.tail[offset : offset+StateSize])
}

// Bytecode returns the program bytes starting at the given offset, which
// must lie inside the bytecode region (i.e. at or past the end of the
// state-record region). The executor reads until it yields; callers do not
// need the program's length up front.
func (img *Image) Bytecode(offset int32) ([]byte, error) {
	if offset < 0 || int(offset) > len(img.tail) {
		return nil, fmt.Errorf("bytecode offset %d out of bounds", offset)
	}
	return img.tail[offset:], nil
}

// Load parses an in-memory image blob (spec §4.E "Image::load"). The
// returned Image retains a slice over buf rather than copying the
// state/bytecode tail, so callers that mmap the source file get true
// zero-copy loading.
func Load(buf []byte) (*Image, error) {
	pos := 0
	if len(buf) < 4 {
		return nil, fmt.Errorf("truncated image: missing label-table count")
	}
	numLabels := binary.LittleEndian.Uint32(buf[pos : pos+4])
	pos += 4

	labels := make(map[string]int32, numLabels)
	for i := uint32(0); i < numLabels; i++ {
		entry, n, err := ReadLabelEntry(buf[pos:])
		if err != nil {
			return nil, fmt.Errorf("label table entry %d: %w", i, err)
		}
		labels[entry.Name] = entry.StateOffset
		pos += n
	}

	if pos+4 > len(buf) {
		return nil, fmt.Errorf("truncated image: missing spawn-table count")
	}
	numSpawns := binary.LittleEndian.Uint32(buf[pos : pos+4])
	pos += 4

	spawns := make([]SpawnInfo, 0, numSpawns)
	for i := uint32(0); i < numSpawns; i++ {
		entry, n, err := ReadSpawnInfo(buf[pos:])
		if err != nil {
			return nil, fmt.Errorf("spawn table entry %d: %w", i, err)
		}
		spawns = append(spawns, entry)
		pos += n
	}

	return &Image{
		labels: labels,
		spawns: spawns,
		tail:   buf[pos:],
	}, nil
}

// encodeHeader serializes the label and spawn tables, the part of the
// on-disk layout that precedes the state records. Assembled.Encode in
// write.go appends the state records and bytecode after it.
func encodeHeader(labels []LabelEntry, spawns []SpawnInfo) ([]byte, error) {
	var buf bytes.Buffer
	var tmp [4]byte

	binary.LittleEndian.PutUint32(tmp[:], uint32(len(labels)))
	buf.Write(tmp[:])
	for _, l := range labels {
		if err := l.WriteTo(&buf); err != nil {
			return nil, err
		}
	}

	binary.LittleEndian.PutUint32(tmp[:], uint32(len(spawns)))
	buf.Write(tmp[:])
	for _, s := range spawns {
		if err := s.WriteTo(&buf); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
