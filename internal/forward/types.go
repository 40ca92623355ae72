package forward

import (
	"strconv"
	"strings"
)

// ParamType is the declared kind of one forward parameter slot.
type ParamType int

// Parameter kinds.
const (
	ParamCell ParamType = iota
	ParamFloat
	ParamString
	ParamStringEx
	ParamArray
	ParamCellByRef
	ParamFloatByRef
)

// String returns a string representation of the parameter type.
func (p ParamType) String() string {
	switch p {
	case ParamCell:
		return "cell"
	case ParamFloat:
		return "float"
	case ParamString:
		return "string"
	case ParamStringEx:
		return "stringex"
	case ParamArray:
		return "array"
	case ParamCellByRef:
		return "cell&"
	case ParamFloatByRef:
		return "float&"
	default:
		return "unknown"
	}
}

// ParseParamType converts the String form back to a ParamType.
func ParseParamType(s string) (ParamType, bool) {
	switch s {
	case "cell", "int":
		return ParamCell, true
	case "float":
		return ParamFloat, true
	case "string":
		return ParamString, true
	case "stringex":
		return ParamStringEx, true
	case "array":
		return ParamArray, true
	case "cell&", "cellref":
		return ParamCellByRef, true
	case "float&", "floatref":
		return ParamFloatByRef, true
	default:
		return 0, false
	}
}

// IsByRef returns true for kinds whose value can be written back.
func (p ParamType) IsByRef() bool {
	switch p {
	case ParamStringEx, ParamArray, ParamCellByRef, ParamFloatByRef:
		return true
	default:
		return false
	}
}

// Signature formats a parameter list, e.g. "(cell, float&, string)".
func Signature(types []ParamType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ExecType selects how per-target results combine. Stop and Highest are
// flags and may be combined.
type ExecType int

// Execution policies.
const (
	ExecIgnore  ExecType = 0
	ExecStop    ExecType = 1 << 0
	ExecHighest ExecType = 1 << 1
)

// String returns a string representation of the execution policy.
func (e ExecType) String() string {
	switch e {
	case ExecIgnore:
		return "ignore"
	case ExecStop:
		return "stop"
	case ExecHighest:
		return "highest"
	case ExecStop | ExecHighest:
		return "stop|highest"
	default:
		return "exec(" + strconv.Itoa(int(e)) + ")"
	}
}

// ParseExecType converts a policy name ("ignore", "stop", "highest",
// "stop|highest") to an ExecType.
func ParseExecType(s string) (ExecType, bool) {
	var e ExecType
	for _, part := range strings.Split(s, "|") {
		switch strings.TrimSpace(part) {
		case "ignore", "":
		case "stop":
			e |= ExecStop
		case "highest":
			e |= ExecHighest
		default:
			return ExecIgnore, false
		}
	}
	return e, true
}

// Result is a plugin return code. Codes are ranked by numeric value.
type Result int32

// Reserved result codes.
const (
	// ResultIgnored means the target has no opinion. It never influences
	// the aggregate.
	ResultIgnored Result = 0

	// ResultContinue lets the event proceed.
	ResultContinue Result = 1

	// ResultChanged reports that the target edited by-reference parameters.
	ResultChanged Result = 2

	// ResultHandled lets remaining targets run but blocks the host action.
	ResultHandled Result = 3

	// ResultStop blocks the host action and halts ExecStop forwards.
	ResultStop Result = 4
)

// String returns the name of a reserved code or the number.
func (r Result) String() string {
	switch r {
	case ResultIgnored:
		return "ignored"
	case ResultContinue:
		return "continue"
	case ResultChanged:
		return "changed"
	case ResultHandled:
		return "handled"
	case ResultStop:
		return "stop"
	default:
		return strconv.Itoa(int(r))
	}
}

// Blocks returns true if the code asks the host to suppress its action.
func (r Result) Blocks() bool {
	return r >= ResultHandled
}

// aggregator folds per-target results for one execution.
type aggregator struct {
	exec   ExecType
	result Result
	seen   bool
}

// add records one target's result and reports whether iteration must stop.
func (a *aggregator) add(r Result) bool {
	if r != ResultIgnored {
		switch {
		case a.exec&ExecHighest != 0:
			if !a.seen || r > a.result {
				a.result = r
			}
			a.seen = true
		case a.exec&ExecStop != 0:
			a.result = r
			a.seen = true
		}
	}
	return a.exec&ExecStop != 0 && r == ResultStop
}
