// Package mongo adapts a MongoDB database to the engine's DocumentStore
// interface using the official driver. Predicates map one to one onto
// native filters and UPDATE assignments onto $set.
package mongo
