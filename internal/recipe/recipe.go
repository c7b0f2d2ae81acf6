// Package recipe maps drink types to their ingredient requirements.
package recipe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ecw74/coffe-tech-demo/internal/ledger"
)

// Drink is a canonical beverage type.
type Drink string

const (
	Espresso   Drink = "espresso"
	Coffee     Drink = "coffee"
	Cappuccino Drink = "cappuccino"
)

// ErrUnknownDrink is returned for a beverage type outside the menu.
var ErrUnknownDrink = errors.New("unknown drink type")

// synonyms maps every accepted spelling to its canonical drink. Matching
// is an explicit equivalence table, not free-form parsing; "kaffee" is the
// accepted alias for coffee.
var synonyms = map[string]Drink{
	"espresso":   Espresso,
	"coffee":     Coffee,
	"kaffee":     Coffee,
	"cappuccino": Cappuccino,
}

// requirements lists the ingredient amounts per drink. The slice order is
// the deterministic order in which stock checks are made and the first
// insufficient ingredient is reported.
var requirements = map[Drink][]ledger.Amount{
	Espresso: {
		{Ingredient: "beans", Quantity: 1},
	},
	Coffee: {
		{Ingredient: "beans", Quantity: 2},
		{Ingredient: "milk", Quantity: 1},
	},
	Cappuccino: {
		{Ingredient: "beans", Quantity: 1},
		{Ingredient: "milk", Quantity: 2},
	},
}

// Parse resolves a requested beverage type to its canonical drink.
// Matching is case-insensitive over the synonym table.
func Parse(requested string) (Drink, error) {
	drink, ok := synonyms[strings.ToLower(requested)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDrink, requested)
	}
	return drink, nil
}

// RequirementsFor returns the ingredient amounts needed to prepare the
// given beverage type. The returned slice must not be mutated.
func RequirementsFor(requested string) ([]ledger.Amount, error) {
	drink, err := Parse(requested)
	if err != nil {
		return nil, err
	}
	return requirements[drink], nil
}
