package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/secretsanta/internal/errs"
)

// Limits bounds the size of a group.
type Limits struct {
	MaxParticipants int
	MaxNameLength   int
}

// DefaultLimits are used when a zero Limits is passed to a constructor.
var DefaultLimits = Limits{
	MaxParticipants: 500,
	MaxNameLength:   100,
}

func (l Limits) withDefaults() Limits {
	if l.MaxParticipants <= 0 {
		l.MaxParticipants = DefaultLimits.MaxParticipants
	}
	if l.MaxNameLength <= 0 {
		l.MaxNameLength = DefaultLimits.MaxNameLength
	}
	return l
}

// normalizeNames trims every name and drops the empty ones. Duplicates are kept.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// checkGroupInput validates already-normalized CreateGroup input.
func checkGroupInput(v *validator.Validate, limits Limits, name string, names []string) error {
	if name == "" {
		return errs.Invalid("name", "is required")
	}
	if len(names) < 2 {
		return errs.TooFewParticipants(len(names))
	}

	// Emptiness is handled above; the validator owns the length limits.
	if err := v.Var(name, fmt.Sprintf("max=%d", limits.MaxNameLength)); err != nil {
		return translate("name", err)
	}
	rule := fmt.Sprintf("max=%d,dive,max=%d", limits.MaxParticipants, limits.MaxNameLength)
	if err := v.Var(names, rule); err != nil {
		return translate("participant_names", err)
	}
	return nil
}

// translate turns validator output into an errs.FieldError.
func translate(field string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate %s: %w", field, err)
	}

	fe := verrs[0]
	if strings.HasPrefix(fe.Field(), "[") {
		field += fe.Field()
	}

	switch fe.Tag() {
	case "max":
		if fe.Kind().String() == "slice" {
			return errs.Invalid(field, fmt.Sprintf("must have at most %s entries", fe.Param()))
		}
		return errs.Invalid(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
	default:
		return errs.Invalid(field, fmt.Sprintf("failed %q check", fe.Tag()))
	}
}
