package quizgen

import (
	"fmt"
	"strings"

	"quizgenai/internal/models"
)

// BuildPrompt renders the instruction sent to the model for one chunk.
// The output depends only on its inputs.
func BuildPrompt(chunk string, cfg models.QuizConfig) string {
	var b strings.Builder

	b.WriteString("Generate a multiple-choice quiz based ONLY on the content below.\n\n")

	b.WriteString("CONTENT:\n\"\"\"\n")
	b.WriteString(chunk)
	b.WriteString("\n\"\"\"\n\n")

	b.WriteString("REQUIREMENTS:\n")
	fmt.Fprintf(&b, "- Generate exactly %d questions in total.\n", cfg.TotalQuestions)
	if cfg.SingleCorrect > 0 {
		fmt.Fprintf(&b, "- Questions 1 to %d: type \"single\", exactly ONE correct answer each.\n", cfg.SingleCorrect)
	}
	if cfg.MultipleCorrect > 0 {
		first := cfg.SingleCorrect + 1
		fmt.Fprintf(&b, "- Questions %d to %d: type \"multiple\", at least TWO correct answers each.\n", first, cfg.TotalQuestions)
	}
	fmt.Fprintf(&b, "- Every question must have exactly %d options.\n", cfg.OptionsPerQuestion)
	b.WriteString("- List all \"single\" questions first, then all \"multiple\" questions.\n\n")

	b.WriteString("OUTPUT FORMAT:\n")
	b.WriteString("A JSON array of question objects, in order:\n")
	var examples []string
	if cfg.SingleCorrect > 0 {
		examples = append(examples, exampleQuestion(models.QuestionTypeSingle, cfg.OptionsPerQuestion, []int{0}))
	}
	if cfg.MultipleCorrect > 0 {
		examples = append(examples, exampleQuestion(models.QuestionTypeMultiple, cfg.OptionsPerQuestion, []int{0, 1}))
	}
	b.WriteString("[\n")
	b.WriteString(strings.Join(examples, ",\n"))
	b.WriteString("\n]\n\n")

	b.WriteString("STRICT RULES:\n")
	b.WriteString("- \"correctAnswers\" holds 0-based indices into \"options\".\n")
	fmt.Fprintf(&b, "- Every index must be between 0 and %d.\n", cfg.OptionsPerQuestion-1)
	b.WriteString("- Options are plain text without letter prefixes.\n")
	b.WriteString("- Output ONLY the JSON array. No explanations, no markdown, no text before or after it.\n")

	return b.String()
}

func exampleQuestion(t models.QuestionType, options int, answers []int) string {
	opts := make([]string, options)
	for i := range opts {
		opts[i] = fmt.Sprintf("%q", fmt.Sprintf("Option %d", i+1))
	}
	idx := make([]string, len(answers))
	for i, a := range answers {
		idx[i] = fmt.Sprint(a)
	}
	return fmt.Sprintf(`  {"question": "Question text?", "type": %q, "options": [%s], "correctAnswers": [%s]}`,
		string(t), strings.Join(opts, ", "), strings.Join(idx, ", "))
}
