// Package database provides SQLite-based crawl history for ldcrawl.
//
// This package implements the ResourceDB, which stores:
//   - One row per crawl session with its seeds and timing
//   - One row per delivered resource, including its facts
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// Facts are stored in the lossless tagged JSON form of fact.MarshalCollection,
// so a stored representation loads back to an equal collection.
package database
