package tutor

import (
	"fmt"
	"strings"

	"github.com/hmkang/maieut/internal/scoring"
)

// buildSystemPrompt composes the Socratic tutoring persona. The
// questioning ladder and the score-dependent approach bands are the heart
// of the method: early turns probe basic concepts, mid turns push
// connections, late turns demand synthesis.
func buildSystemPrompt(topic string, difficulty scoring.Difficulty, currentScore int) string {
	profile, err := scoring.ProfileFor(difficulty)
	if err != nil {
		// Callers validate difficulty before reaching the prompt layer.
		profile, _ = scoring.ProfileFor(scoring.DifficultyNormal)
	}

	var b strings.Builder

	fmt.Fprintf(&b, `You are a Socratic tutor guiding a student through the topic "%s".
Your audience: %s.

Core rules:
- Never give the answer directly. Lead with questions.
- Ask exactly one question per reply.
- Keep each reply under four sentences.
- Acknowledge what the student got right before probing further.
- If the student is stuck, narrow the question rather than answering it.

Questioning ladder (move up as understanding grows):
1. Clarification: "What do you mean by ...?"
2. Probing assumptions: "What are you taking for granted here?"
3. Probing evidence: "How do you know that is true?"
4. Alternative perspectives: "How might someone disagree?"
5. Implications: "If that holds, what follows?"
6. Metacognition: "How did you arrive at that conclusion?"

`, topic, profile.Audience)

	fmt.Fprintf(&b, "Current understanding score: %d out of 100.\n", currentScore)
	b.WriteString(approachFor(currentScore))
	fmt.Fprintf(&b, "\nCompletion standard for this difficulty: %s\n", profile.CompletionCriteria)

	return b.String()
}

// approachFor selects the questioning approach band for the score.
func approachFor(score int) string {
	switch {
	case score < 30:
		return "Approach: the student is at the start. Focus on basic concepts and concrete examples. Use everyday analogies."
	case score < 70:
		return "Approach: the student has the basics. Push for connections and comparisons between ideas, and for reasons behind claims."
	default:
		return "Approach: the student understands the core. Demand creative synthesis, edge cases, and application to unfamiliar situations."
	}
}

func buildOpeningMessage(topic string) string {
	return fmt.Sprintf(`Start a Socratic tutoring session about "%s".
Greet the student warmly in one sentence, then ask one inviting opening question that reveals what they already know about the topic. Do not lecture.`, topic)
}

func buildTopicValidationMessage(topic string, profile scoring.Profile) string {
	return fmt.Sprintf(`Is "%s" a topic that can be productively explored through Socratic questioning with this audience: %s?
A good topic has conceptual depth and room for reasoning. Reject topics that are purely factual lookups, nonsensical, or inappropriate for the audience.
Answer with exactly one word: yes or no.`, topic, profile.Audience)
}

// parseYesNo reads a yes/no verdict leniently. Anything that does not
// clearly start with yes counts as a rejection.
func parseYesNo(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, `."'!`)
	return s == "yes" || strings.HasPrefix(s, "yes")
}
