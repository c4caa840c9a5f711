// Package dice evaluates dice formulas of the form "NdS+M" (e.g. "2d6+3",
// "d20-1") against an injected random source. Pure computation; no I/O.
package dice

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"

	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
)

// Formula bounds. Violations are reported as ErrInvalidDiceFormula.
const (
	MinCount    = 1
	MaxCount    = 100
	MinSides    = 2
	MaxSides    = 1000
	MinModifier = -1000
	MaxModifier = 1000
)

// RNG is the random source consumed by the roller. *math/rand.Rand satisfies
// it; tests inject fixed sequences.
type RNG interface {
	// Intn returns a uniform int in [0, n).
	Intn(n int) int
}

// SystemRNG returns the process-wide random source used outside tests.
func SystemRNG() RNG {
	return systemRNG{}
}

type systemRNG struct{}

func (systemRNG) Intn(n int) int { return rand.IntN(n) }

var formulaRe = regexp.MustCompile(`^(\d+)?[dD](\d+)([+-]\d+)?$`)

// Parse validates a formula and returns (count, sides, modifier).
func Parse(formula string) (count, sides, modifier int, err error) {
	m := formulaRe.FindStringSubmatch(formula)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", domain.ErrInvalidDiceFormula, formula)
	}

	count = 1
	if m[1] != "" {
		count, err = strconv.Atoi(m[1])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q", domain.ErrInvalidDiceFormula, formula)
		}
	}
	sides, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", domain.ErrInvalidDiceFormula, formula)
	}
	if m[3] != "" {
		modifier, err = strconv.Atoi(m[3])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q", domain.ErrInvalidDiceFormula, formula)
		}
	}

	if count < MinCount || count > MaxCount {
		return 0, 0, 0, fmt.Errorf("%w: dice count %d out of range [%d,%d]",
			domain.ErrInvalidDiceFormula, count, MinCount, MaxCount)
	}
	if sides < MinSides || sides > MaxSides {
		return 0, 0, 0, fmt.Errorf("%w: sides %d out of range [%d,%d]",
			domain.ErrInvalidDiceFormula, sides, MinSides, MaxSides)
	}
	if modifier < MinModifier || modifier > MaxModifier {
		return 0, 0, 0, fmt.Errorf("%w: modifier %d out of range [%d,%d]",
			domain.ErrInvalidDiceFormula, modifier, MinModifier, MaxModifier)
	}

	return count, sides, modifier, nil
}

// Roll evaluates a formula against the given RNG.
func Roll(rng RNG, formula string) (*game.DiceRoll, error) {
	count, sides, modifier, err := Parse(formula)
	if err != nil {
		return nil, err
	}

	rolls := make([]int, count)
	total := modifier
	for i := range rolls {
		rolls[i] = rng.Intn(sides) + 1
		total += rolls[i]
	}

	return &game.DiceRoll{
		Formula:  formula,
		Rolls:    rolls,
		Modifier: modifier,
		Total:    total,
	}, nil
}
