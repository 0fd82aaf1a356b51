// Package db executes parsed statements against a DocumentStore.
//
// # Engine Usage
//
//	engine := db.NewEngine(store, identity, db.WithLogger(logger))
//	result, err := engine.Execute(ctx, "SELECT * FROM restaurants WHERE avg_rating>=4.5")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display(os.Stdout)
//
// Each statement results in exactly one store call:
//
//	SELECT -> Find        -> QueryResult{Documents}
//	INSERT -> InsertOne   -> InsertResult{InsertedID}
//	UPDATE -> UpdateMany  -> UpdateResult{ModifiedCount}
//	DELETE -> DeleteMany  -> DeleteResult{DeletedCount}
//
// Parse errors (sql.ErrUnsupportedOperation, sql.ErrMalformedStatement) are
// returned without calling the store. Store errors are wrapped in
// *AdapterError and match ErrAdapterFailure.
//
// The engine holds no mutable state, so one Engine may serve concurrent
// callers. ExecuteBatch runs independent statements in parallel and
// ExecuteScript runs a script in order.
package db
