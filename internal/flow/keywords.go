package flow

import "strings"

// Decision is the classification of a free-text mode answer
type Decision int

const (
	DecisionUnrecognized Decision = iota
	DecisionShared
	DecisionPrivate
	DecisionMulti
	DecisionManual
)

func (d Decision) String() string {
	switch d {
	case DecisionShared:
		return "shared"
	case DecisionPrivate:
		return "private"
	case DecisionMulti:
		return "multi"
	case DecisionManual:
		return "manual"
	default:
		return "unrecognized"
	}
}

// Keywords holds the answer keyword sets for mode and sharing
// decisions. Sets are matched whole-word, case-insensitively.
type Keywords struct {
	Yes     []string
	No      []string
	Shared  []string
	Private []string
	Multi   []string
	Manual  []string
}

// DefaultKeywords returns the built-in Polish and English keyword sets
func DefaultKeywords() Keywords {
	return Keywords{
		Yes:     []string{"t", "tak", "y", "yes"},
		No:      []string{"n", "nie", "no"},
		Shared:  []string{"w", "wspolne", "wspólne", "s", "shared"},
		Private: []string{"p", "prywatne", "private"},
		Multi:   []string{"m", "multi", "mieszane"},
		Manual:  []string{"manual", "recznie", "ręcznie"},
	}
}

func matches(answer string, words []string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	for _, w := range words {
		if answer == w {
			return true
		}
	}
	return false
}

// Classify maps a free-text answer onto the closed decision set. It is
// a pure function; callers reject DecisionUnrecognized before any
// state transition depends on the answer.
func (k Keywords) Classify(answer string) Decision {
	switch {
	case matches(answer, k.Shared):
		return DecisionShared
	case matches(answer, k.Private):
		return DecisionPrivate
	case matches(answer, k.Multi):
		return DecisionMulti
	case matches(answer, k.Manual):
		return DecisionManual
	default:
		return DecisionUnrecognized
	}
}

// IsYes reports whether answer matches the yes keyword set
func (k Keywords) IsYes(answer string) bool {
	return matches(answer, k.Yes)
}

// IsNo reports whether answer matches the no keyword set
func (k Keywords) IsNo(answer string) bool {
	return matches(answer, k.No)
}
