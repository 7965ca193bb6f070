// Package reconcile implements the asset field reconciliation engine.
//
// The engine walks the local dataset row by row, fetches the matching remote
// record by serial number, and classifies every configured field into one of
// four states: empty in both sources, present on one side only (gap-filling),
// equal, or conflicting. Gap-fills propagate the present value to the empty
// side; conflicts are delegated to a pluggable Resolver that decides the
// direction or aborts the run.
//
// # Components
//
//  1. Normalizer (value.go): canonicalizes raw cell and field values into a
//     closed tagged union (Empty | Text | Date | Invalid). Dates are parsed
//     against an ordered format ladder and rendered as a plain calendar date
//     for the local side or a UTC timestamp for the remote side.
//
//  2. Comparator (compare.go): equality between normalized values per kind.
//
//  3. Engine (engine.go): the per-identity state machine, identity-level
//     lookup pre-checks (not found / ambiguous), and cooperative cancellation
//     checked at identity and field boundaries.
//
//  4. Dispatcher (dispatch.go): batches all staged updates for one identity
//     into a single remote call, owns the request counter, and consults the
//     continuation Gate after every Nth call.
//
//  5. Ledger (ledger.go): append-only record of every outcome, rendered as a
//     sectioned textual report plus summary counts.
//
// Execution is single-threaded and synchronous; the only suspension points
// are the resolver's decision and the continuation gate, both of which block
// awaiting an external decision. The remote service enforces a request-rate
// ceiling that the dispatcher respects cooperatively.
package reconcile
