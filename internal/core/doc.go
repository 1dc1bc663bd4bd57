// Package core provides the ingestion logic for retail batch files.
//
// This package holds all domain rules independent of any transport or
// storage layer. It is used by the HTTP front end, the CLI and the exporters
// without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Entities: [Customer], [Product], [Transaction] and [ErasureRequest],
//     each with a constructor that enforces its domain rules and a Parse
//     function that decodes one JSON line.
//   - Registry: the admitted entities, keyed by primary key, with
//     duplicate and reference checks applied before any mutation.
//   - Session: the orchestrator that streams batches into the registry,
//     records rejects and applies erasure requests.
//   - Columnar views: [CustomerTable] and friends expose admitted rows with
//     an explicit [Schema] for writers and warehouse sinks.
//
// # Batch Loading
//
// Batches are newline-delimited JSON, optionally gzip-compressed. The flow is:
//
//  1. [Session.LoadPath] discovers *.json.gz files and orders them by
//     directory, then entity priority
//  2. [OpenBatchReader] detects gzip by magic bytes and strips a leading BOM
//  3. Lines are parsed ahead in windows on a bounded worker pool
//  4. Parsed lines are admitted strictly in input order
//
// A line that fails at any stage becomes a [Reject] carrying the exact
// input bytes and the reason. Only I/O errors, cancellation and, unless
// lenient, a malformed erasure request stop a load.
//
// # Error Handling
//
// Rejections are typed ([StructuralError], [ValidationError],
// [DuplicateKeyError], [ForeignKeyError]) and classified with [KindOf].
// [MapError] turns any error into a user-facing message with a support code:
//
//   - STR001, ERA001: Malformed lines and erasure requests
//   - VAL001-VAL008: Field validation errors
//   - KEY001, REF001-REF002: Duplicate keys and unknown references
//   - FILE001-FILE007: Batch file and output errors
//   - BAT001-BAT004: Batch control errors
//   - EXP001-EXP003: Export sink errors
package core
