// Package op implements a document store on top of the git-backed
// persistence layer.
//
// Store satisfies the engine's DocumentStore interface. Each write that
// changes something becomes one commit authored by the identity carried in
// the context:
//
//	p, _ := ps.NewMemoryPersistence()
//	store := op.NewStore(p, core.Identity{Name: "docql", Email: "docql@localhost"})
//
//	id, _ := store.InsertOne(ctx, "users", core.Document{"name": "Ann"})
//	docs, _ := store.Find(ctx, "users", core.Predicate{
//	    "name": {Operator: core.OpEq, Operand: core.StringLiteral("Ann")},
//	})
//
// Collections can carry a JSON schema that every inserted or updated
// document must satisfy (SetSchema, LoadBuiltinSchemas).
//
// CollectionOp gives id-based reads and point-in-time restore:
//
//	users, _ := store.Collection("users")
//	doc, _ := users.Get(id)
//	users.Restore(txn, identity)
package op
