package runtime

import "j5.nz/kbcvm/value"

// Fixed class-ids the reference heap and interpreter recognize
// structurally (spec §4.1 names only SmallInt's; the rest are this
// reference runtime's concrete choices, analogous to Dart's
// kMintCid/kDoubleCid/kArrayCid/... predefined class table entries).
const (
	BoolClassID    value.ClassID = 2
	MintClassID    value.ClassID = 3
	DoubleClassID  value.ClassID = 4
	ArrayClassID   value.ClassID = 5
	ContextClassID value.ClassID = 6
	ClosureClassID value.ClassID = 7
	StringClassID  value.ClassID = 8

	// FirstUserClassID is the lowest class-id a guest-defined Class may
	// use; ids below it are reserved for the kinds above.
	FirstUserClassID value.ClassID = 64
)
