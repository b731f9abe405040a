// Package framesync reconciles in-memory tabular datasets against SQL
// tables. One call infers a schema from the dataset's values, evolves the
// live table additively when permitted (create, add column, widen type),
// classifies rows by key into insert, update, and delete sets, and
// executes them as batched parameterized statements with per-row
// outcomes.
//
// Postgres, MySQL, and SQLite backends are supported. Datasets come from
// Go values, CSV readers, or objects in an S3-compatible store.
//
//	cfg := framesync.DefaultConfig()
//	client, err := framesync.Open(ctx, cfg)
//	...
//	result, err := client.Merge(ctx, "orders", fr, []string{"order_id"}, nil)
package framesync
