package editengine

// trigramSet is the set of contiguous 3-rune substrings of a string, used
// for cheap approximate-similarity screening before computing edit
// distances. Strings shorter than three runes contribute themselves as a
// single gram so that short targets still screen meaningfully.
type trigramSet map[string]struct{}

func trigramsOf(s string) trigramSet {
	runes := []rune(s)
	set := make(trigramSet)
	if len(runes) < 3 {
		if len(runes) > 0 {
			set[string(runes)] = struct{}{}
		}
		return set
	}
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// jaccard returns |a ∩ b| / |a ∪ b| for two trigram sets. Two empty sets
// have similarity 0, not 1: an empty string is never a useful fuzzy target.
func jaccard(a, b trigramSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for gram := range small {
		if _, ok := large[gram]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
