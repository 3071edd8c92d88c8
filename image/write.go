package image

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Annotation is one (bytecode-range -> source description) row written to
// the .map sidecar (spec §4.C "Outputs").
type Annotation struct {
	Start int32
	End   int32
	Text  string
}

// Assembled is the output of the two-pass assembler in compiler/, ready to
// be written to disk.
type Assembled struct {
	Labels      []LabelEntry
	Spawns      []SpawnInfo
	States      []StateRecord
	Bytecode    []byte
	Annotations []Annotation
	Enums       map[string]int32
}

// Encode produces the final image byte string: header (labels, spawns),
// then the densely packed state records, then the bytecode region (spec
// §3 "Image").
func (a Assembled) Encode() ([]byte, error) {
	header, err := encodeHeader(a.Labels, a.Spawns)
	if err != nil {
		return nil, err
	}
	var states bytes.Buffer
	for i, s := range a.States {
		if err := s.WriteTo(&states); err != nil {
			return nil, fmt.Errorf("state record %d: %w", i, err)
		}
	}
	out := make([]byte, 0, len(header)+states.Len()+len(a.Bytecode))
	out = append(out, header...)
	out = append(out, states.Bytes()...)
	out = append(out, a.Bytecode...)
	return out, nil
}

// MapSidecar renders the .map debug file: one line per annotated bytecode
// range (spec §4.C "a sibling .map text file mapping bytecode ranges to
// their source annotation").
func (a Assembled) MapSidecar() string {
	var b strings.Builder
	for _, ann := range a.Annotations {
		fmt.Fprintf(&b, "%d-%d %s\n", ann.Start, ann.End, ann.Text)
	}
	return b.String()
}

// EnumsSidecar renders the .enums file: the global enum name->id table, one
// "name id" line per entry sorted by name for a stable diff-friendly
// output.
func (a Assembled) EnumsSidecar() string {
	names := make([]string, 0, len(a.Enums))
	for name := range a.Enums {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s %d\n", name, a.Enums[name])
	}
	return b.String()
}

// WriteFile writes the image plus its .map and .enums sidecars to path,
// rotating any existing file to .bak and writing through a .tmp file that
// is atomically renamed into place on success (spec §4.C "Outputs": "A
// previous image is renamed to .bak before overwrite; writes go to a .tmp
// file and are atomically renamed on success").
func (a Assembled) WriteFile(path string) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}

	if err := writeAtomic(path, data); err != nil {
		return err
	}
	if err := os.WriteFile(path+".map", []byte(a.MapSidecar()), 0o644); err != nil {
		return fmt.Errorf("writing .map sidecar: %w", err)
	}
	if err := os.WriteFile(path+".enums", []byte(a.EnumsSidecar()), 0o644); err != nil {
		return fmt.Errorf("writing .enums sidecar: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".bak"); err != nil {
			return fmt.Errorf("rotating previous image to .bak: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp image: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming temp image into place: %w", err)
	}
	return nil
}
