// Package callgraph computes, without executing anything, which tunable
// declarations are reachable from an entrypoint function.
//
// # Overview
//
// LoadIndex parses every non-test Go file below a source root and records
// each function and method under its qualified name
// ("example.com/app/pipeline.Trainer.Run"), along with the calls its body
// makes. A Resolver then walks those calls from an entrypoint, keeping a
// visited set so recursive and mutually recursive graphs terminate, and
// reports the registered declarations it met.
//
// # Resolved call shapes
//
//   - name(...): a function of the caller's package
//   - pkg.Name(...): through the calling file's imports
//   - T.Method(...) and (*T).Method(...): method expressions
//   - recv.Method(...): where recv is the enclosing method's receiver
//   - F[T](...) and (f)(...): instantiations and parentheses are unwrapped
//
// # Limitations
//
// The resolver under-approximates. Calls through interfaces, function
// values, struct fields, reflection, dot imports and package-level var
// aliases are skipped without error, so a declaration reached only that way
// is missing from the result. Calls inside closures are attributed to the
// enclosing function whether or not the closure ever runs.
package callgraph
