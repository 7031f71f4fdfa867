package codec

import (
	"fmt"

	"github.com/roach88/lifeline/internal/model"
)

type row[E ~string] struct {
	value E
	token string
}

var componentTable = [...]row[model.ComponentType]{
	{model.ComponentWholeBlood, "wb"},
	{model.ComponentPlatelets, "pl"},
	{model.ComponentPlasma, "pa"},
}

var urgencyTable = [...]row[model.Urgency]{
	{model.UrgencyCritical, "c"},
	{model.UrgencyHigh, "h"},
	{model.UrgencyMedium, "m"},
	{model.UrgencyLow, "l"},
}

// Each table must have exactly one row per enum value; a mismatch in length
// is a compile error.
var (
	_ = [1]struct{}{}[len(componentTable)-len(model.ComponentTypes)]
	_ = [1]struct{}{}[len(urgencyTable)-len(model.Urgencies)]
)

func init() {
	if err := verifyTable("componentType", componentTable[:], model.ComponentTypes[:]); err != nil {
		panic(err)
	}
	if err := verifyTable("urgency", urgencyTable[:], model.Urgencies[:]); err != nil {
		panic(err)
	}
}

// verifyTable checks that rows is a bijection between values and tokens.
func verifyTable[E ~string](name string, rows []row[E], values []E) error {
	seenTokens := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.token == "" {
			return fmt.Errorf("%s table: empty token for %q", name, r.value)
		}
		if seenTokens[r.token] {
			return fmt.Errorf("%s table: token %q used twice", name, r.token)
		}
		seenTokens[r.token] = true
	}
	for _, v := range values {
		n := 0
		for _, r := range rows {
			if r.value == v {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("%s table: %q has %d rows, want 1", name, v, n)
		}
	}
	return nil
}

func toToken[E ~string](rows []row[E], v E) (string, bool) {
	for _, r := range rows {
		if r.value == v {
			return r.token, true
		}
	}
	return "", false
}

func fromToken[E ~string](rows []row[E], token string) (E, bool) {
	for _, r := range rows {
		if r.token == token {
			return r.value, true
		}
	}
	var zero E
	return zero, false
}

// ComponentToken returns the wire token for c.
func ComponentToken(c model.ComponentType) (string, bool) {
	return toToken(componentTable[:], c)
}

// UrgencyToken returns the wire token for u.
func UrgencyToken(u model.Urgency) (string, bool) {
	return toToken(urgencyTable[:], u)
}
