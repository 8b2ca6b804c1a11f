package domain

import (
	"sort"
	"strings"
)

// The answer codec turns a contestant's selection into the canonical
// comparable string stored on the attempt and compared against the
// correct-answer specification. The format is a byte-for-byte contract
// between the encode and compare sides, so both go through these functions.

// EncodeSelection encodes selected option labels for a question.
// single_selection and binary require exactly one label; multiple_selection
// accepts any number, the empty set encoding to "" (visited but unanswered).
// The multi-select encoding is a deduplicated, sorted, comma-joined set, so
// re-encoding any permutation of the same labels yields the same string.
func EncodeSelection(answerType AnswerType, labels []string) (string, error) {
	switch answerType {
	case SingleSelection, Binary:
		cleaned := dedupeLabels(labels)
		if len(cleaned) != 1 {
			return "", NewInvalidSelectionError("exactly one option label is required")
		}
		return cleaned[0], nil
	case MultipleSelection:
		cleaned := dedupeLabels(labels)
		sort.Strings(cleaned)
		return strings.Join(cleaned, ","), nil
	default:
		return "", NewInvalidSelectionError("unknown answer type: " + string(answerType))
	}
}

// DecodeSelection decodes a stored answer string back into a label set. It is
// total: legacy or malformed values decode to whatever valid labels they
// contain, and garbage decodes to an empty set rather than failing, so a bad
// stored value degrades to "unanswered" instead of breaking rehydration.
func DecodeSelection(answerType AnswerType, raw string) []string {
	if raw == "" {
		return []string{}
	}
	if answerType == SingleSelection || answerType == Binary {
		// A single-valued answer should never contain a separator, but a
		// legacy multi-valued string is decoded to its first label.
		if i := strings.IndexByte(raw, ','); i >= 0 {
			raw = raw[:i]
		}
		label := strings.TrimSpace(raw)
		if label == "" {
			return []string{}
		}
		return []string{label}
	}
	labels := dedupeLabels(strings.Split(raw, ","))
	sort.Strings(labels)
	return labels
}

// IsComplete reports whether the stored value counts as an answered question.
func IsComplete(answerType AnswerType, raw string) bool {
	return len(DecodeSelection(answerType, raw)) > 0
}

func dedupeLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
