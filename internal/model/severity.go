package model

// PatternType classifies a finding as manipulative, ambiguous, or ethical.
//
// Design decision: We use string constants rather than iota because the
// values appear verbatim in the JSON contract (`pattern_type`) and in the
// history database, where readable values are easier to query.
type PatternType string

const (
	// PatternDark is a UI pattern that deliberately deceives or manipulates
	// users against their own interest.
	PatternDark PatternType = "dark"

	// PatternGrey is an ethically ambiguous pattern that pressures or nudges
	// users without outright deception.
	PatternGrey PatternType = "grey"

	// PatternWhite is a pattern that supports user autonomy, transparency,
	// or accessibility.
	PatternWhite PatternType = "white"
)

// String returns the pattern type value.
func (p PatternType) String() string {
	return string(p)
}

// Label returns a human-readable heading for the pattern type.
func (p PatternType) Label() string {
	switch p {
	case PatternDark:
		return "Dark patterns (manipulative)"
	case PatternGrey:
		return "Grey patterns (questionable)"
	case PatternWhite:
		return "White patterns (ethical)"
	default:
		return "Unknown patterns"
	}
}

// Valid reports whether p is one of the known pattern types.
func (p PatternType) Valid() bool {
	switch p {
	case PatternDark, PatternGrey, PatternWhite:
		return true
	default:
		return false
	}
}

// PatternTypes lists the pattern types in report order.
func PatternTypes() []PatternType {
	return []PatternType{PatternDark, PatternGrey, PatternWhite}
}

// Impact describes how strongly a finding affects users.
// White findings always carry ImpactPositive.
type Impact string

const (
	// ImpactLow marks minor friction.
	ImpactLow Impact = "low"

	// ImpactMedium marks pressure that can change user decisions.
	ImpactMedium Impact = "medium"

	// ImpactHigh marks patterns that routinely cost users money, data, or control.
	ImpactHigh Impact = "high"

	// ImpactPositive marks patterns that benefit users.
	ImpactPositive Impact = "positive"
)

// String returns the impact value.
func (i Impact) String() string {
	return string(i)
}

// rank orders impacts for sorting; positive sorts last.
func (i Impact) rank() int {
	switch i {
	case ImpactHigh:
		return 3
	case ImpactMedium:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}

// MoreSevere reports whether i is more severe than other.
func (i Impact) MoreSevere(other Impact) bool {
	return i.rank() > other.rank()
}
