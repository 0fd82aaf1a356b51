// Package DocQL translates a small SQL dialect into document store
// operations.
//
// SELECT, INSERT, UPDATE and DELETE statements are parsed into structured
// predicates and executed against a DocumentStore: a git-backed store where
// every write is a commit, or MongoDB.
//
// # Quick Start
//
// Create an in-memory store:
//
//	persistence, _ := ps.NewMemoryPersistence()
//	instance := DocQL.OpenPersistence(persistence, identity)
//	engine := instance.Engine(core.Identity{Name: "App", Email: "app@example.com"})
//
//	engine.Execute(ctx, `INSERT INTO restaurants (name, cuisine) VALUES ("Joe's", 'Pizza')`)
//	engine.Execute(ctx, `UPDATE restaurants SET (avg_rating = 4.5) WHERE name = "Joe's"`)
//
//	result, _ := engine.Execute(ctx, "SELECT name FROM restaurants WHERE avg_rating > 4.0")
//	result.Display(os.Stdout)
//
// # Supported SQL
//
//   - SELECT <fields|*> FROM <collection> [WHERE ...]
//   - INSERT INTO <collection> (<fields>) VALUES (<values>)
//   - UPDATE <collection> SET (<field = value, ...>) [WHERE ...]
//   - DELETE FROM <collection> [WHERE ...]
//
// WHERE clauses are conjunctions of field comparisons joined by AND using
// =, !=, >, <, >= and <=. Conditions that cannot be translated are skipped
// and reported as warnings on the result.
package DocQL
