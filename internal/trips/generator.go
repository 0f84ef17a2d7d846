package trips

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/wayfarer-backend/pkg/ai"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

// Generator produces an itinerary for a set of preferences.
type Generator interface {
	GenerateItinerary(ctx context.Context, prefs TripPreferences) (*Itinerary, error)
}

// CoverFinder looks up a cover image for a destination.
type CoverFinder interface {
	CoverURL(ctx context.Context, query string) (string, error)
}

type textModel interface {
	Generate(ctx context.Context, req ai.Request) (string, error)
}

const itinerarySystemPrompt = `You are a travel planner. Answer with a single JSON object and nothing else.
Schema:
{"tripName": string, "destinationOverview": string, "currency": ISO 4217 code,
 "days": [{"day": integer starting at 1, "theme": string,
   "activities": [{"time": "HH:MM", "name": string, "description": string, "location": string, "estimatedCost": number}]}],
 "totalEstimatedCost": number}
Costs are totals for the whole party in the stated currency. Never use negative costs.`

// AIGenerator builds itineraries with a generative language model.
type AIGenerator struct {
	model           textModel
	defaultCurrency string
}

// NewAIGenerator wraps model. defaultCurrency is used when the answer omits one.
func NewAIGenerator(model textModel, defaultCurrency string) (*AIGenerator, error) {
	if model == nil {
		return nil, fmt.Errorf("text model required")
	}
	if strings.TrimSpace(defaultCurrency) == "" {
		defaultCurrency = "INR"
	}
	return &AIGenerator{model: model, defaultCurrency: strings.ToUpper(defaultCurrency)}, nil
}

func (g *AIGenerator) GenerateItinerary(ctx context.Context, prefs TripPreferences) (*Itinerary, error) {
	text, err := g.model.Generate(ctx, ai.Request{
		System:   itinerarySystemPrompt,
		Messages: []ai.Message{{Role: ai.RoleUser, Text: buildItineraryPrompt(prefs)}},
		JSON:     true,
	})
	if err != nil {
		return nil, err
	}

	var it Itinerary
	if err := json.Unmarshal([]byte(ai.ExtractJSON(text)), &it); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "itinerary response is not valid json")
	}
	if err := normalizeGenerated(&it, g.defaultCurrency); err != nil {
		return nil, err
	}
	return &it, nil
}

func buildItineraryPrompt(p TripPreferences) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan a %d-day trip from %s to %s", p.DurationDays(), p.Origin, p.Destination)
	if len(p.AdditionalDestinations) > 0 {
		fmt.Fprintf(&sb, " also visiting %s", strings.Join(p.AdditionalDestinations, ", "))
	}
	fmt.Fprintf(&sb, ", %s to %s.\n", p.StartDate, p.EndDate)
	fmt.Fprintf(&sb, "Travelers: %s party of %d adults, %d children, %d seniors, %d infants.\n",
		p.TravelerType, p.Adults, p.Children, p.Seniors, p.Infants)
	fmt.Fprintf(&sb, "Budget tier: %s", p.BudgetTier)
	if p.Budget.IsPositive() {
		fmt.Fprintf(&sb, " (about %s in total)", p.Budget.StringFixed(0))
	}
	sb.WriteString(".\n")
	if len(p.TransportModes) > 0 {
		modes := make([]string, 0, len(p.TransportModes))
		for _, m := range p.TransportModes {
			modes = append(modes, m.String())
		}
		fmt.Fprintf(&sb, "Preferred transport: %s.\n", strings.Join(modes, ", "))
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(&sb, "Interests: %s.\n", strings.Join(p.Interests, ", "))
	}
	return sb.String()
}

// normalizeGenerated orders days, rejects malformed plans and recomputes the total.
func normalizeGenerated(it *Itinerary, defaultCurrency string) error {
	if len(it.Days) == 0 {
		return pkgerrors.New(pkgerrors.CodeDependency, "generated itinerary has no days")
	}
	sort.SliceStable(it.Days, func(i, j int) bool { return it.Days[i].Day < it.Days[j].Day })
	seen := make(map[int]struct{}, len(it.Days))
	for i := range it.Days {
		day := &it.Days[i]
		if day.Day < 1 {
			day.Day = i + 1
		}
		if _, dup := seen[day.Day]; dup {
			return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("generated itinerary repeats day %d", day.Day))
		}
		seen[day.Day] = struct{}{}
		for j := range day.Activities {
			a := &day.Activities[j]
			a.EstimatedCost = a.EstimatedCost.Round(CostScale)
			if err := CheckCost(a.EstimatedCost); err != nil {
				return pkgerrors.New(pkgerrors.CodeDependency, "generated itinerary cost "+err.Error())
			}
		}
	}
	if strings.TrimSpace(it.Currency) == "" {
		it.Currency = defaultCurrency
	}
	it.Currency = strings.ToUpper(strings.TrimSpace(it.Currency))
	it.RecomputeTotal()
	return nil
}
