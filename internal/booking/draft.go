package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/internal/trips"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

// ErrIndexOutOfRange is wrapped by edits addressing a missing day or activity.
var ErrIndexOutOfRange = errors.New("index out of range")

// ActivityField names an editable activity attribute.
type ActivityField string

const (
	FieldTime          ActivityField = "time"
	FieldName          ActivityField = "name"
	FieldDescription   ActivityField = "description"
	FieldLocation      ActivityField = "location"
	FieldEstimatedCost ActivityField = "estimatedCost"
)

// Draft is a working copy of an itinerary. Every mutation keeps
// TotalEstimatedCost equal to the sum of activity costs.
type Draft struct {
	Itinerary trips.Itinerary `json:"itinerary"`
}

// NewDraft copies it so edits never reach the caller's slices.
func NewDraft(it trips.Itinerary) *Draft {
	d := &Draft{Itinerary: it.Clone()}
	d.Itinerary.RecomputeTotal()
	return d
}

func (d *Draft) activity(dayIndex, activityIndex int) (*trips.Activity, error) {
	if dayIndex < 0 || dayIndex >= len(d.Itinerary.Days) {
		return nil, indexError(dayIndex, activityIndex)
	}
	acts := d.Itinerary.Days[dayIndex].Activities
	if activityIndex < 0 || activityIndex >= len(acts) {
		return nil, indexError(dayIndex, activityIndex)
	}
	return &acts[activityIndex], nil
}

func indexError(dayIndex, activityIndex int) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrIndexOutOfRange, "activity does not exist").
		WithDetails(map[string]int{"dayIndex": dayIndex, "activityIndex": activityIndex})
}

// SetActivityField replaces one attribute of an activity. Text fields take a
// string; estimatedCost takes a number or a numeric string.
func (d *Draft) SetActivityField(dayIndex, activityIndex int, field ActivityField, value any) error {
	act, err := d.activity(dayIndex, activityIndex)
	if err != nil {
		return err
	}

	if field == FieldEstimatedCost {
		cost, err := parseCost(value)
		if err != nil {
			return err
		}
		act.EstimatedCost = cost
		d.Itinerary.RecomputeTotal()
		return nil
	}

	text, ok := value.(string)
	if !ok {
		return fieldError(field, "must be text")
	}
	switch field {
	case FieldTime:
		act.Time = text
	case FieldName:
		act.Name = text
	case FieldDescription:
		act.Description = text
	case FieldLocation:
		act.Location = text
	default:
		return fieldError(field, "is not editable")
	}
	d.Itinerary.RecomputeTotal()
	return nil
}

// DeleteActivity removes an activity, keeping the order of the rest.
func (d *Draft) DeleteActivity(dayIndex, activityIndex int) error {
	if _, err := d.activity(dayIndex, activityIndex); err != nil {
		return err
	}
	day := &d.Itinerary.Days[dayIndex]
	day.Activities = append(day.Activities[:activityIndex:activityIndex], day.Activities[activityIndex+1:]...)
	d.Itinerary.RecomputeTotal()
	return nil
}

func (d *Draft) SetTripName(name string) {
	d.Itinerary.TripName = name
}

func (d *Draft) SetDestinationOverview(overview string) {
	d.Itinerary.DestinationOverview = overview
}

func parseCost(value any) (decimal.Decimal, error) {
	var (
		cost decimal.Decimal
		err  error
	)
	switch v := value.(type) {
	case decimal.Decimal:
		cost = v
	case string:
		cost, err = decimal.NewFromString(strings.TrimSpace(v))
	case json.Number:
		cost, err = decimal.NewFromString(v.String())
	case float64:
		cost = decimal.NewFromFloat(v)
	case float32:
		cost = decimal.NewFromFloat32(v)
	case int:
		cost = decimal.NewFromInt(int64(v))
	case int64:
		cost = decimal.NewFromInt(v)
	default:
		return decimal.Zero, fieldError(FieldEstimatedCost, "must be a number")
	}
	if err != nil {
		return decimal.Zero, fieldError(FieldEstimatedCost, "must be a number")
	}
	if err := trips.CheckCost(cost); err != nil {
		return decimal.Zero, fieldError(FieldEstimatedCost, err.Error())
	}
	return cost, nil
}

func fieldError(field ActivityField, problem string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s %s", field, problem)).
		WithDetails(map[string]string{string(field): problem})
}
