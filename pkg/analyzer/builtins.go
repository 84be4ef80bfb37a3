package analyzer

// builtinNames is the reserved set of built-in function names. They are
// not entered into types.Table's function registry; instead
// registerFunctionSignatures rejects a user function that reuses one of
// these names, and analyzeCall routes a call to one of them to
// analyzeBuiltinCall. Their signatures are polymorphic enough (accepting
// an array of any element type, or either an array or text) that they are
// checked ad hoc in analyzeBuiltinCall rather than fitting the fixed-arity
// types.FunctionSig shape used for user-defined functions.
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
