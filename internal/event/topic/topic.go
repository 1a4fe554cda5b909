package topic

import "strings"

const (
	// Separator is the character used to separate topic segments.
	Separator = "."

	// SubTopicSeparator separates sub-topics within a single segment.
	SubTopicSeparator = "-"

	// Wildcard is the index key used for an omitted pattern segment.
	// Published segments are never empty keys, so it cannot collide with a literal.
	Wildcard = ""
)

// Split returns the segments of a topic or pattern.
// An empty string yields a single empty (wildcard) segment.
func Split(s string) []string {
	return strings.Split(s, Separator)
}

// Join joins segments into a topic.
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// SubTopicPrefixes returns the prefixes of a segment that end at a sub-topic
// boundary, longest first, starting with the segment itself.
//
// Example: "a-b-c" -> ["a-b-c", "a-b", "a"]
func SubTopicPrefixes(segment string) []string {
	if segment == "" {
		return nil
	}
	prefixes := []string{segment}
	current := segment
	for {
		idx := strings.LastIndex(current, SubTopicSeparator)
		if idx <= 0 {
			return prefixes
		}
		current = current[:idx]
		prefixes = append(prefixes, current)
	}
}

// HasSubTopics returns true if the segment contains a sub-topic separator.
func HasSubTopics(segment string) bool {
	return strings.Contains(segment, SubTopicSeparator)
}

// Weight orders subscriptions by specificity. It is a pure function of the
// pattern string and is used only for ordering, never for matching.
type Weight struct {
	// Segments is the number of non-wildcard segments.
	Segments int

	// SubTopics is the number of sub-topic separators across those segments.
	SubTopics int
}

// ComputeWeight calculates the specificity weight of a subscription pattern.
func ComputeWeight(pattern string) Weight {
	var w Weight
	for _, seg := range Split(pattern) {
		if seg == "" {
			continue
		}
		w.Segments++
		w.SubTopics += strings.Count(seg, SubTopicSeparator)
	}
	return w
}

// Compare returns -1, 0 or +1 depending on whether w is less specific than,
// as specific as, or more specific than other.
func (w Weight) Compare(other Weight) int {
	switch {
	case w.Segments != other.Segments:
		if w.Segments < other.Segments {
			return -1
		}
		return 1
	case w.SubTopics != other.SubTopics:
		if w.SubTopics < other.SubTopics {
			return -1
		}
		return 1
	default:
		return 0
	}
}
