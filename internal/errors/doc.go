// Package errors provides structured, actionable error messages for the
// quark command line tool.
//
// Each error carries a code from a fixed registry, a category, a short
// message, a longer explanation and optionally the location in a config
// file that caused it, plus a hint on how to fix it.
//
// # Error Categories
//
//   - config: problems loading or validating quark.json / quark.yaml
//   - cli: bad flags or arguments
//   - runtime: failures raised by the reactive runtime during bench or
//     inspect runs
//
// # Error Codes
//
// Codes are grouped by category: Q100-Q199 config, Q200-Q299 cli,
// Q300-Q399 runtime.
//
// # Usage
//
//	err := errors.New("Q102").
//	    WithLocation("quark.yaml", 4, 3).
//	    WithSuggestion("Use one of: debug, info, warn, error")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR Q102: Invalid log level
//	//
//	//   quark.yaml:4:3
//	//
//	//     2 │ log:
//	//     3 │   format: text
//	//   → 4 │   level: loud
//	//       │   ^
//	//
//	//   Hint: Use one of: debug, info, warn, error
package errors
