package quiz

import "sort"

// OrderAnswers merges the correct answer into the incorrect ones and sorts
// them by their raw string form, entities and markup included.
func OrderAnswers(correct string, incorrect []string) []string {
	answers := make([]string, 0, len(incorrect)+1)
	answers = append(answers, incorrect...)
	answers = append(answers, correct)
	sort.Strings(answers)
	return answers
}
