// Package validation registers the request validators shared by every handler
// and turns validator errors into readable messages.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register installs the custom tags on gin's binding validator. Call once at
// startup before any route is served.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return RegisterOn(v)
}

// RegisterOn installs the custom tags on v.
func RegisterOn(v *validator.Validate) error {
	rules := map[string][]string{
		"schedule_type":  {entity.ScheduleGeneral, entity.SchedulePriority},
		"job_status":     {entity.JobStatusPending, entity.JobStatusInProgress, entity.JobStatusAtRisk, entity.JobStatusCompleted},
		"machine_status": entity.MachineStatuses,
		"criticality":    {entity.CriticalityLow, entity.CriticalityMedium, entity.CriticalityHigh},
	}
	for tag, allowed := range rules {
		if err := v.RegisterValidation(tag, oneOf(allowed)); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if value == a {
				return true
			}
		}
		return false
	}
}

// Message converts a binding error into a short human readable string.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fieldMessage(fe))
	}
	return strings.Join(messages, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "email":
		return field + " must be a valid email"
	case "uuid":
		return field + " must be a valid id"
	case "oneof", "schedule_type", "job_status", "machine_status", "criticality":
		return fmt.Sprintf("%s has invalid value %v", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
