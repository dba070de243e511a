package scoring

import "fmt"

// Difficulty selects how strictly understanding is judged and how fast the
// score may move per turn.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// ErrInvalidDifficulty is returned when a caller supplies a difficulty
// outside the known set. Callers must reject such input, not repair it.
type ErrInvalidDifficulty struct {
	Value string
}

func (e *ErrInvalidDifficulty) Error() string {
	return fmt.Sprintf("invalid difficulty: %q", e.Value)
}

// Profile bounds how much an understanding score may rise or fall in a
// single turn, expressed as fractions of the 100-point scale.
type Profile struct {
	// MaxIncreasePct is the largest allowed per-turn increase (e.g. 0.5 = 50 points).
	MaxIncreasePct float64

	// MaxDecreasePct is the largest allowed per-turn decrease.
	// Deliberately much smaller than MaxIncreasePct: one weak answer
	// should not undo accumulated understanding.
	MaxDecreasePct float64

	// Audience describes the expected learner level, embedded in prompts.
	Audience string

	// CompletionCriteria describes what a completed topic looks like at
	// this difficulty, embedded in prompts.
	CompletionCriteria string
}

var profiles = map[Difficulty]Profile{
	DifficultyEasy: {
		MaxIncreasePct:     0.60,
		MaxDecreasePct:     0.03,
		Audience:           "upper elementary school students",
		CompletionCriteria: "understands the basic concept and can give a simple example",
	},
	DifficultyNormal: {
		MaxIncreasePct:     0.50,
		MaxDecreasePct:     0.05,
		Audience:           "middle school students",
		CompletionCriteria: "understands the core concept and can connect it to related ideas",
	},
	DifficultyHard: {
		MaxIncreasePct:     0.40,
		MaxDecreasePct:     0.07,
		Audience:           "high school students and above",
		CompletionCriteria: "shows deep understanding, critical thinking, and creative application",
	},
}

// ParseDifficulty validates a raw difficulty string.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(s)
	if _, ok := profiles[d]; !ok {
		return "", &ErrInvalidDifficulty{Value: s}
	}
	return d, nil
}

// ProfileFor returns the rate-limit profile for a difficulty.
func ProfileFor(d Difficulty) (Profile, error) {
	p, ok := profiles[d]
	if !ok {
		return Profile{}, &ErrInvalidDifficulty{Value: string(d)}
	}
	return p, nil
}

// MaxIncrease returns the per-turn increase cap in points.
func (p Profile) MaxIncrease() int {
	return int(p.MaxIncreasePct * 100)
}

// MaxDecrease returns the per-turn decrease cap in points.
func (p Profile) MaxDecrease() int {
	return int(p.MaxDecreasePct * 100)
}
