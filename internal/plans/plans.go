// Package plans is the static plan catalog shown on the pricing page
package plans

import (
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ledger"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

// Currency of every catalog price
const Currency = "INR"

// Plan is one catalog entry
type Plan struct {
	Name        models.Plan `json:"name"`
	DisplayName string      `json:"displayName"`
	Price       int         `json:"price"`
	Currency    string      `json:"currency"`
	Credits     int         `json:"credits"`
	Features    []string    `json:"features"`

	// Current marks the caller's plan when the request is signed in
	Current bool `json:"current,omitempty"`
}

var catalog = []Plan{
	{
		Name:        models.PlanFree,
		DisplayName: "Free",
		Price:       0,
		Features: []string{
			"3 credits",
			"Image editing",
			"Standard processing",
		},
	},
	{
		Name:        models.PlanBasic,
		DisplayName: "Basic",
		Price:       499,
		Features: []string{
			"50 credits",
			"Image editing",
			"Text to video",
			"Generation history",
		},
	},
	{
		Name:        models.PlanPro,
		DisplayName: "Pro",
		Price:       1499,
		Features: []string{
			"200 credits",
			"All Basic features",
			"Image to video",
			"Audio to video",
			"Priority processing",
		},
	},
	{
		Name:        models.PlanEnterprise,
		DisplayName: "Enterprise",
		Price:       4999,
		Features: []string{
			"1000 credits",
			"All Pro features",
			"Higher generation limits",
			"Dedicated support",
		},
	},
}

// All returns the catalog in display order
func All() []Plan {
	out := make([]Plan, len(catalog))
	for i, p := range catalog {
		out[i] = withDerived(p)
	}
	return out
}

// Get returns the catalog entry for a plan
func Get(name models.Plan) (Plan, bool) {
	for _, p := range catalog {
		if p.Name == name {
			return withDerived(p), true
		}
	}
	return Plan{}, false
}

// Price returns the catalog price of a plan, 0 when unknown
func Price(name models.Plan) int {
	p, ok := Get(name)
	if !ok {
		return 0
	}
	return p.Price
}

func withDerived(p Plan) Plan {
	p.Currency = Currency
	p.Credits = ledger.CreditsForPlan(string(p.Name))
	p.Features = append([]string(nil), p.Features...)
	return p
}
