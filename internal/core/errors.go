package core

import (
	"fmt"
	"strings"

	"cg/pkg/domain"
)

// OrderError rejects a submission for violating business rules. It carries
// every blocking violation found, not just the first one, so that a
// multi-sample order surfaces all of its problems in one round trip.
type OrderError struct {
	Violations []domain.Violation
}

func (e OrderError) Error() string {
	if len(e.Violations) == 0 {
		return "order rejected"
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Severity != domain.SeverityBlock {
			continue
		}
		msgs = append(msgs, v.Message)
	}
	if len(msgs) == 0 {
		return "order rejected"
	}
	return "order rejected: " + strings.Join(msgs, "; ")
}

func orderErrorf(rule string, entity domain.EntityType, entityID, format string, args ...any) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Severity: domain.SeverityBlock,
		Message:  fmt.Sprintf(format, args...),
		Entity:   entity,
		EntityID: entityID,
	}
}
