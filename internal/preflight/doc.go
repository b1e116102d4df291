// Package preflight checks that the services a frivillig deployment
// depends on are reachable before it starts serving.
//
// The checks cover:
//   - the relational database (required)
//   - the flat-file corpus shards
//   - the vector service and the Redis embedding cache (optional)
//   - disk space and write access for the local index directory
//
// Use the Checker type to run them:
//
//	checker := preflight.New(preflight.WithCheck(preflight.DatabaseCheck(st)))
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
