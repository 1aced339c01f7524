package cpu

// Quirks selects between behaviours that differ across CHIP-8
// interpreter revisions. ROMs written for one revision can misbehave on
// another, so every variant stays reachable at runtime.
type Quirks struct {
	// ShiftUsesVY makes 8XY6/8XYE shift VY into VX. When unset VX is
	// shifted in place and VY is ignored.
	ShiftUsesVY bool

	// IncrementIndex makes FX55/FX65 leave I pointing past the last
	// register transferred (I += X + 1).
	IncrementIndex bool

	// WrapSprites wraps sprite pixels past the right and bottom edge to
	// the opposite side instead of clipping them.
	WrapSprites bool

	// ResetFlagOnLogic clears VF after 8XY1, 8XY2 and 8XY3.
	ResetFlagOnLogic bool
}

// DefaultQuirks returns the behaviour of the original COSMAC VIP
// interpreter.
func DefaultQuirks() Quirks {
	return Quirks{
		ShiftUsesVY:      true,
		IncrementIndex:   true,
		WrapSprites:      false,
		ResetFlagOnLogic: true,
	}
}

// ModernQuirks returns the behaviour most interpreters written after
// CHIP-48 implement.
func ModernQuirks() Quirks {
	return Quirks{}
}
