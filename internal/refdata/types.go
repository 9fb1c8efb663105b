package refdata

import "time"

type Kind string

const (
	KindShip      Kind = "ship"
	KindComponent Kind = "component"
)

func (k Kind) Valid() bool {
	return k == KindShip || k == KindComponent
}

// ReferenceSpec is one patch-stamped baseline record. Records are immutable
// once imported; a new patch appends a new record under the same ID, so the
// (ID, Version) pair is the true key.
type ReferenceSpec struct {
	ID           string
	Name         string
	Kind         Kind
	Version      string
	Manufacturer string
	Source       string
	ImportedAt   time.Time
	Capabilities []string
	Roles        []string
}
