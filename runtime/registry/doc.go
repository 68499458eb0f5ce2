// Package registry is the process-wide store of tunable declarations.
//
// # Overview
//
// A Declaration records which parameters of a function are tunable, the
// namespace path they live under in the composed configuration, the app tags
// grouping the function with an executable, and where the function lives in
// source code. Declarations are registered once, when the declaring package
// initializes, and are immutable afterwards.
//
// # Identities
//
// A function is identified by its Go runtime symbol (FuncID), for example
// "example.com/app/pipeline.(*Trainer).Run". The registry keeps two
// indexes alongside the declarations: identity to source-level qualified
// name ("example.com/app/pipeline.Trainer.Run") and the reverse. The
// call-graph resolver works purely on qualified names and uses the reverse
// index to map call expressions back to declarations.
//
// # Lifecycle
//
//	reg := registry.Default() // process-wide instance
//
//	decl, err := reg.Register(registry.Declaration{
//		ID:        "example.com/app/pipeline.Train",
//		Namespace: registry.MustParsePath("train"),
//		Apps:      []string{"train"},
//		Params:    specs,
//	})
//
//	// Query by app tag (union of intersecting declarations)
//	decls := reg.LookupByTags("train")
//
//	// Tests reset the registry for isolation
//	reg.Reset()
//
// Registration is expected to happen at start-up. The registry is guarded
// by a mutex, but concurrent writers racing readers that compose a model
// are outside its contract.
package registry
