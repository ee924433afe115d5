// Package scoring holds the pure answer-grading rule: exact match against the
// single correct option, no partial credit.
package scoring

import "quizrank-service/internal/domain"

// Score reports whether selected answers q correctly. domain.NoAnswer (and any
// out-of-range index) is always wrong.
func Score(q domain.Question, selected int) bool {
	if selected < 0 || selected >= len(q.Options) {
		return false
	}
	return selected == q.CorrectIndex
}
