package expr

import (
	"errors"
	"fmt"
)

// ErrEvaluation is matched by every EvaluationError.
var ErrEvaluation = errors.New("evaluation error")

// EvaluationError reports a formula that could not be parsed or
// evaluated. Token names the offending input where there is one.
type EvaluationError struct {
	Expression string
	Token      string
	Offset     int
	Reason     string
}

func (e *EvaluationError) Error() string {
	msg := e.Reason
	if e.Token != "" {
		msg = fmt.Sprintf("%s (token %q at offset %d)", msg, e.Token, e.Offset)
	}
	if e.Expression != "" {
		return fmt.Sprintf("evaluate %q: %s", e.Expression, msg)
	}
	return "evaluate: " + msg
}

// Is lets errors.Is match against ErrEvaluation.
func (e *EvaluationError) Is(target error) bool {
	return target == ErrEvaluation
}
