package scope

import (
	"fmt"
	"reflect"
)

// Operator evaluates one node of an expression tree against a State.
type Operator func(st State, args []any) (any, error)

var operators = make(map[string]Operator)

func init() {
	operators["And"] = opAnd
	operators["Or"] = opOr
	operators["Not"] = opNot
	operators["Eq"] = opEq
	operators["Ne"] = opNe
	operators["Load"] = opLoad
	// Additional operators can be registered here...
}

// Register adds an operator under the given name. New operators become
// available to every expression without parser changes.
func Register(name string, op Operator) {
	operators[name] = op
}

func opAnd(st State, args []any) (any, error) {
	for i, arg := range args {
		evaluated, ok := arg.(bool)
		if !ok {
			return nil, fmt.Errorf("bad argument type for AND at index %d. Expected bool but got %s", i, reflect.TypeOf(arg))
		}
		if !evaluated {
			return false, nil
		}
	}
	return true, nil
}

func opOr(st State, args []any) (any, error) {
	for i, arg := range args {
		evaluated, ok := arg.(bool)
		if !ok {
			return nil, fmt.Errorf("bad argument type for OR at index %d. Expected bool but got %s", i, reflect.TypeOf(arg))
		}
		if evaluated {
			return true, nil
		}
	}
	return false, nil
}

func opNot(st State, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("bad argument length for NOT. Expected 1 but got %d", len(args))
	}
	evaluated, ok := args[0].(bool)
	if !ok {
		return nil, fmt.Errorf("bad argument type for NOT. Expected bool but got %s", reflect.TypeOf(args[0]))
	}
	return !evaluated, nil
}

func opEq(st State, args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("bad argument length for EQ. Expected 2 but got %d", len(args))
	}
	return looseEqual(args[0], args[1]), nil
}

func opNe(st State, args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("bad argument length for NE. Expected 2 but got %d", len(args))
	}
	return !looseEqual(args[0], args[1]), nil
}

func opLoad(st State, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("bad argument length for LOAD. Expected 1 but got %d", len(args))
	}
	path, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("bad argument type for LOAD. Expected string but got %s", reflect.TypeOf(args[0]))
	}
	value, ok := st.Lookup(path)
	if !ok {
		return nil, nil
	}
	return value, nil
}

// looseEqual compares scalars with numbers normalized to float64, since
// scope state decoded from JSON carries float64 for every number.
func looseEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Eval walks an expression tree bottom-up the way the runtime does.
func Eval(st State, expr Expr) (any, error) {
	if expr.Operator == "" {
		return expr.Const, nil
	}

	args := make([]any, 0, len(expr.Args))
	for _, arg := range expr.Args {
		result, err := Eval(st, arg)
		if err != nil {
			return nil, err
		}
		args = append(args, result)
	}

	if operatorFunc, exists := operators[expr.Operator]; exists {
		return operatorFunc(st, args)
	}

	return nil, fmt.Errorf("unknown operator: %s", expr.Operator)
}

// Truthy reduces an evaluation result to the boolean the show/hide
// bindings need.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}
