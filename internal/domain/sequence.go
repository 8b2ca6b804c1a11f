package domain

import "math/rand"

// ShuffleQuestions produces a uniform random permutation of question ids via
// Fisher-Yates. The permutation is generated once at attempt creation and
// persisted with the attempt; rehydration replays the stored order instead of
// reshuffling, keeping question numbering and the navigator grid stable
// across reloads. A nil rng falls back to the shared source.
func ShuffleQuestions(questions []QuestionDefinition, rng *rand.Rand) []string {
	order := make([]string, len(questions))
	for i, q := range questions {
		order[i] = q.ID
	}
	for i := len(order) - 1; i > 0; i-- {
		var j int
		if rng != nil {
			j = rng.Intn(i + 1)
		} else {
			j = rand.Intn(i + 1)
		}
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// OrderQuestions arranges questions according to a persisted permutation.
// Unknown ids are skipped and questions missing from the permutation are
// appended in definition order, so a quiz edited after the attempt started
// still renders every question exactly once.
func OrderQuestions(questions []QuestionDefinition, order []string) []QuestionDefinition {
	byID := make(map[string]int, len(questions))
	for i, q := range questions {
		byID[q.ID] = i
	}
	out := make([]QuestionDefinition, 0, len(questions))
	used := make(map[string]bool, len(order))
	for _, id := range order {
		if i, ok := byID[id]; ok && !used[id] {
			out = append(out, questions[i])
			used[id] = true
		}
	}
	for _, q := range questions {
		if !used[q.ID] {
			out = append(out, q)
		}
	}
	return out
}
