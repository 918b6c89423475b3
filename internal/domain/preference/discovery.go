package preference

// ExcludeAllKnown is the ExcludeKnown value meaning every known artist
// is excluded, regardless of how many there are.
const ExcludeAllKnown = -1

// DefaultDiscoveryLevel is applied when a request carries a missing or
// out-of-range level.
const DefaultDiscoveryLevel = 3

// DiscoveryPolicy describes how much of the user's known listening
// history to suppress or foreground at a given discovery level.
// Exactly one of the three behaviors is active per level:
// exclude everything known, exclude the first N known artists, or
// include known artists as positive hints.
type DiscoveryPolicy struct {
	Level        int
	Label        string
	ExcludeKnown int  // ExcludeAllKnown, a positive N, or 0 for none
	IncludeKnown bool // known artists become positive prompt hints
}

// discoveryLevels is the fixed 1-5 policy table. Read-only after init;
// safe for concurrent use.
var discoveryLevels = map[int]DiscoveryPolicy{
	1: {Level: 1, Label: "Pure Discovery", ExcludeKnown: ExcludeAllKnown},
	2: {Level: 2, Label: "Mostly New", ExcludeKnown: 50},
	3: {Level: 3, Label: "Balanced Mix", ExcludeKnown: 20},
	4: {Level: 4, Label: "Familiar Leaning", ExcludeKnown: 10},
	5: {Level: 5, Label: "Comfort Zone", ExcludeKnown: 0, IncludeKnown: true},
}

// ResolveDiscoveryLevel returns the policy for the given level, falling
// back to the default policy when the level is outside 1-5.
func ResolveDiscoveryLevel(level int) DiscoveryPolicy {
	if p, ok := discoveryLevels[level]; ok {
		return p
	}
	return discoveryLevels[DefaultDiscoveryLevel]
}
