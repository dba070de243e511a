package session

import "fmt"

// ProgressFeedback renders the learner-facing progress line for a score.
// The bands match the assessment rubric tiers.
func ProgressFeedback(score int) string {
	var level, feedback string
	switch {
	case score <= 20:
		level = "Getting started"
		feedback = "You have just begun exploring. Let's figure it out together!"
	case score <= 40:
		level = "Basic understanding"
		feedback = "The basics are taking shape. Ready to go deeper?"
	case score <= 60:
		level = "Building fluency"
		feedback = "You understand the concept well. Look for the connections!"
	case score <= 80:
		level = "Strong understanding"
		feedback = "Excellent grasp. Time to think critically!"
	default:
		level = "Advanced"
		feedback = "You are showing expert-level depth!"
	}
	return fmt.Sprintf("%s: %s", level, feedback)
}
