package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"teachlang/pkg/diag"
	"teachlang/pkg/lang"
	"teachlang/pkg/types"
)

// builtinNames mirrors pkg/analyzer's reserved builtin table (duplicated
// rather than imported: the analyzer's copy is unexported and analysis-
// only, and the evaluator needs the same closed set at runtime to route a
// call to evalBuiltin instead of a user function lookup).
var builtinNames = map[string]bool{
	"display":       true,
	"display_line":  true,
	"input_number":  true,
	"input_text":    true,
	"length":        true,
	"dimensions":    true,
	"lower_bound":   true,
	"upper_bound":   true,
	"round":         true,
	"floor":         true,
	"ceil":          true,
	"random_number": true,
}

func isBuiltin(name string) bool {
	return builtinNames[name]
}

// evalBuiltin implements the language's fixed built-in library. display and
// display_line are grounded on original_source's library_handler.rs
// handle_call, which prints a variadic list of values in turn before an
// optional trailing newline; the rest are spec.md §4.5's own minimum set.
func (e *Evaluator) evalBuiltin(n *lang.CallExpr) (rtValue, error) {
	args := make([]rtValue, len(n.Args))
	for i, a := range n.Args {
		v, err := e.evalExpr(a)
		if err != nil {
			return rtValue{}, err
		}
		args[i] = v
	}

	switch n.Callee {
	case "display":
		for _, v := range args {
			fmt.Fprint(e.out, e.displayText(v))
		}
		return rtValue{Kind: types.KindNothing}, nil
	case "display_line":
		for _, v := range args {
			fmt.Fprint(e.out, e.displayText(v))
		}
		fmt.Fprintln(e.out)
		return rtValue{Kind: types.KindNothing}, nil
	case "input_number":
		line, _ := e.in.ReadString('\n')
		v, perr := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if perr != nil {
			return rtValue{}, diag.New("run", diag.Arithmetic, n.Line, n.Col, "input_number: input was not a number")
		}
		return rtValue{Kind: types.KindNumber, Num: v}, nil
	case "input_text":
		line, _ := e.in.ReadString('\n')
		return rtValue{Kind: types.KindText, Text: strings.TrimRight(line, "\r\n")}, nil
	case "length":
		if args[0].Kind == types.KindText {
			return rtValue{Kind: types.KindNumber, Num: float64(len(args[0].Text))}, nil
		}
		c := e.store.Get(args[0].Addr)
		return rtValue{Kind: types.KindNumber, Num: float64(boundsLen(c.Bounds))}, nil
	case "dimensions":
		c := e.store.Get(args[0].Addr)
		children := make([]extracted, len(c.Bounds))
		for i, b := range c.Bounds {
			children[i] = extracted{kind: types.KindNumber, num: float64(b[1] - b[0] + 1)}
		}
		addr := e.store.Alloc(1)
		e.implant(addr, extracted{
			kind:     types.KindArray,
			elemType: types.Number,
			bounds:   [][2]int{{1, len(c.Bounds)}},
			children: children,
		})
		return rtValue{Kind: types.KindArray, Addr: addr}, nil
	case "lower_bound":
		c := e.store.Get(args[0].Addr)
		return rtValue{Kind: types.KindNumber, Num: float64(c.Bounds[0][0])}, nil
	case "upper_bound":
		c := e.store.Get(args[0].Addr)
		return rtValue{Kind: types.KindNumber, Num: float64(c.Bounds[0][1])}, nil
	case "round":
		return rtValue{Kind: types.KindNumber, Num: math.Round(args[0].Num)}, nil
	case "floor":
		return rtValue{Kind: types.KindNumber, Num: math.Floor(args[0].Num)}, nil
	case "ceil":
		return rtValue{Kind: types.KindNumber, Num: math.Ceil(args[0].Num)}, nil
	case "random_number":
		if len(args) == 0 {
			return rtValue{Kind: types.KindNumber, Num: e.rng.Float64()}, nil
		}
		lo, hi := args[0].Num, args[1].Num
		return rtValue{Kind: types.KindNumber, Num: lo + e.rng.Float64()*(hi-lo)}, nil
	default:
		return rtValue{}, diag.New("run", diag.Fatal, n.Line, n.Col, fmt.Sprintf("eval: unhandled builtin %q", n.Callee))
	}
}

func (e *Evaluator) displayText(v rtValue) string {
	switch v.Kind {
	case types.KindText:
		return v.Text
	case types.KindNumber:
		return formatNumber(v.Num)
	default:
		return ""
	}
}
