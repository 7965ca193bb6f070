// Package lansweeper provides a client for the Lansweeper GraphQL API.
//
// The client covers exactly the two operations reconciliation needs: looking
// up assets by serial number and editing custom fields on a single asset.
// Both are plain GraphQL-over-HTTP POST calls; no schema codegen is involved.
//
// # Error Taxonomy
//
// Calls fail in one of two distinguishable ways:
//   - TransportError: the call never completed cleanly (network failure,
//     timeout, non-2xx status, undecodable body)
//   - APIError: the call completed but the service reported a GraphQL
//     errors payload
//
// Callers use errors.As to route the two kinds differently. Neither is
// retried automatically.
package lansweeper
