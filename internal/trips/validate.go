package trips

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Validate checks field constraints, enum membership and the date range.
func (p TripPreferences) Validate() error {
	details := map[string]string{}
	if err := validate.Struct(p); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid trip preferences")
		}
		for _, fe := range errs {
			details[fe.Field()] = fieldMessage(fe)
		}
	}

	if p.BudgetTier != "" && !p.BudgetTier.IsValid() {
		details["budgetTier"] = "is invalid"
	}
	if p.TravelerType != "" && !p.TravelerType.IsValid() {
		details["travelerType"] = "is invalid"
	}
	for _, mode := range p.TransportModes {
		if !mode.IsValid() {
			details["transportModes"] = fmt.Sprintf("%q is invalid", mode)
			break
		}
	}
	if p.Budget.IsNegative() {
		details["budget"] = "must not be negative"
	}
	if _, ok := details["startDate"]; !ok {
		if _, ok := details["endDate"]; !ok {
			start, _ := time.Parse(dateLayout, p.StartDate)
			end, _ := time.Parse(dateLayout, p.EndDate)
			if end.Before(start) {
				details["endDate"] = "must not be before startDate"
			}
		}
	}

	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid trip preferences").WithDetails(details)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	}
	return "is invalid"
}
