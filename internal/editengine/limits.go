package editengine

import "time"

// Default search limits. Operators can tune these through limits.yaml; the
// zero-value guards in DefaultLimits keep a malformed config from disabling
// the budgets entirely.
const (
	// DefaultMaxDistanceEvaluations caps how many edit-distance computations
	// one fuzzy search may perform.
	DefaultMaxDistanceEvaluations = 100_000
	// DefaultMaxSearchDuration caps the wall time of one fuzzy search.
	DefaultMaxSearchDuration = 5 * time.Second
	// DefaultMaxFuzzyTargetChars is the length at which a target becomes too
	// long for Levenshtein search.
	DefaultMaxFuzzyTargetChars = 256
)

// Limits bounds the expensive parts of matching. Breaching a limit is a
// reported COMPUTE_BUDGET_EXCEEDED or INVALID_TARGET failure, never a silent
// truncation of results.
type Limits struct {
	MaxDistanceEvaluations int
	MaxSearchDuration      time.Duration
	MaxFuzzyTargetChars    int
}

// DefaultLimits returns the built-in search limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDistanceEvaluations: DefaultMaxDistanceEvaluations,
		MaxSearchDuration:      DefaultMaxSearchDuration,
		MaxFuzzyTargetChars:    DefaultMaxFuzzyTargetChars,
	}
}

// withDefaults fills unset fields so a partially-populated Limits from
// configuration still bounds every search.
func (l Limits) withDefaults() Limits {
	if l.MaxDistanceEvaluations <= 0 {
		l.MaxDistanceEvaluations = DefaultMaxDistanceEvaluations
	}
	if l.MaxSearchDuration <= 0 {
		l.MaxSearchDuration = DefaultMaxSearchDuration
	}
	if l.MaxFuzzyTargetChars <= 0 {
		l.MaxFuzzyTargetChars = DefaultMaxFuzzyTargetChars
	}
	return l
}
