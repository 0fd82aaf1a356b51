// Package core provides the core types shared by the parser, the executor and
// the document stores.
//
// # Identity
//
// Identity identifies the author of a write (the Git commit author for the
// git-backed store):
//
//	identity := core.Identity{
//	    Name:  "Jane Critic",
//	    Email: "jane@example.com",
//	}
//	ctx := core.WithIdentity(context.Background(), identity)
//
// # Literals
//
// A Literal is exactly one of Float, Integer or String:
//
//	core.FloatLiteral(4.5)
//	core.IntegerLiteral(3)
//	core.StringLiteral("Cafe X")
//
// # Predicates
//
// A Predicate maps a field name to a single comparison. An empty predicate
// matches every document:
//
//	predicate := core.Predicate{
//	    "avg_rating": {Operator: core.OpGte, Operand: core.FloatLiteral(4.5)},
//	}
//	predicate.Matches(core.Document{"avg_rating": 4.7}) // true
package core
