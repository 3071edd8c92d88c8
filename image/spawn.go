package image

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/xyproto/wolfstate/internal/engine"
)

// SpawnInfo describes one map-spawnable actor kind (spec §3 "Spawn info").
type SpawnInfo struct {
	ID           int32
	Direction    engine.Direction
	StateLabel   string
	SpawnOnDeath int32 // -1 means None
}

// HasSpawnOnDeath reports whether this entry names a follow-up spawn.
func (s SpawnInfo) HasSpawnOnDeath() bool { return s.SpawnOnDeath >= 0 }

// WriteTo encodes one spawn-table entry per the on-disk layout in spec §3.
func (s SpawnInfo) WriteTo(w io.Writer) error {
	var hdr [5]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(s.ID))
	hdr[4] = s.Direction.Byte()
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(s.StateLabel) > 255 {
		return fmt.Errorf("state label %q exceeds 255 bytes", s.StateLabel)
	}
	if _, err := w.Write([]byte{byte(len(s.StateLabel))}); err != nil {
		return err
	}
	if _, err := io.WriteString(w, s.StateLabel); err != nil {
		return err
	}
	var tail [4]byte
	binary.LittleEndian.PutUint32(tail[:], uint32(s.SpawnOnDeath))
	_, err := w.Write(tail[:])
	return err
}

// ReadSpawnInfo decodes one spawn-table entry from buf, returning the
// number of bytes consumed.
func ReadSpawnInfo(buf []byte) (SpawnInfo, int, error) {
	if len(buf) < 5 {
		return SpawnInfo{}, 0, fmt.Errorf("truncated spawn entry header")
	}
	id := int32(binary.LittleEndian.Uint32(buf[0:4]))
	dir, err := engine.DirectionFromByte(buf[4])
	if err != nil {
		return SpawnInfo{}, 0, err
	}
	pos := 5
	if pos >= len(buf) {
		return SpawnInfo{}, 0, fmt.Errorf("truncated spawn entry label length")
	}
	n := int(buf[pos])
	pos++
	if pos+n+4 > len(buf) {
		return SpawnInfo{}, 0, fmt.Errorf("truncated spawn entry label/tail")
	}
	label := string(buf[pos : pos+n])
	pos += n
	death := int32(binary.LittleEndian.Uint32(buf[pos : pos+4]))
	pos += 4
	return SpawnInfo{ID: id, Direction: dir, StateLabel: label, SpawnOnDeath: death}, pos, nil
}

// ExpandDirectional turns one "directional" spawn declaration into the four
// consecutive-id records the loader expects (spec §3: "directional spawn
// entries expand into four records (East/North/West/South) with
// consecutive ids").
func ExpandDirectional(baseID int32, label string, spawnOnDeath int32) []SpawnInfo {
	out := make([]SpawnInfo, len(engine.DirectionalExpansion))
	for i, dir := range engine.DirectionalExpansion {
		out[i] = SpawnInfo{
			ID:           baseID + int32(i),
			Direction:    dir,
			StateLabel:   label,
			SpawnOnDeath: spawnOnDeath,
		}
	}
	return out
}
