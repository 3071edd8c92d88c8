// Package spawnpolicy holds the spawn_on_death lookup table as a small
// injectable interface, kept outside the compiler core (spec §9 "Open
// question — spawn_on_death mapping": "This is a policy table that belongs
// outside the core; keep it behind a small lookup interface injected into
// the compiler").
package spawnpolicy

// Policy maps the identifier a spawn_entry names in its third field (e.g.
// "ammo") to the spawn id that should replace the dying actor, if any.
type Policy interface {
	// Lookup returns the spawn id associated with name, and whether one
	// exists. An empty name always reports (0, false).
	Lookup(name string) (int32, bool)
}

// mapPolicy is the simplest possible Policy: a fixed table.
type mapPolicy map[string]int32

func (m mapPolicy) Lookup(name string) (int32, bool) {
	if name == "" {
		return 0, false
	}
	v, ok := m[name]
	return v, ok
}

// Default reproduces the table hard-coded in the original source: ammo,
// silver_key and grofaz each resurrect as a specific spawn id on death.
func Default() Policy {
	return mapPolicy{
		"ammo":       49,
		"silver_key": 43,
		"grofaz":     224,
	}
}

// Empty returns a Policy with no entries, useful for tests and for DSL
// sources that never reference spawn_on_death.
func Empty() Policy {
	return mapPolicy{}
}
