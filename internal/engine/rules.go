package engine

import (
	"context"
	"errors"

	"required-backend/internal/instrument"
	"required-backend/internal/logging"
	"required-backend/internal/requires"
)

// ValidateRecord checks record against graph. It returns nil when every
// requirement holds, or the first violation as an ErrorDetail. ruleset only
// labels the span and log entries.
func ValidateRecord(ctx context.Context, ruleset string, graph *requires.Graph, record requires.Record) *ErrorDetail {
	_, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "requires", "requires.validate")
	defer span.End()
	span.SetEntity(ruleset, "")
	span.SetMetadata("fields", len(record.Keys()))

	err := graph.Validate(record)
	if err == nil {
		span.SetStatus("ok")
		return nil
	}

	span.SetStatus("invalid")
	detail := toErrorDetail(err)
	logging.FromContext(ctx).Debug("record failed requirements",
		"ruleset", ruleset, "field", detail.Field, "dependency", detail.Dependency, "trace_id", span.TraceID())
	return detail
}

func toErrorDetail(err error) *ErrorDetail {
	var re *requires.RequirementError
	if !errors.As(err, &re) {
		return &ErrorDetail{Message: err.Error()}
	}
	return &ErrorDetail{
		Field:      re.Field,
		Dependency: re.DependencyName,
		Value:      re.DependencyValue,
		Message:    re.Message,
	}
}
