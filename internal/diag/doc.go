// Package diag defines the diagnostic records analysis engines return.
//
// # Purpose
//
//   - Provide a deterministic, serialisable shape for engine findings that
//     every engine adapter (built-in rules, external commands, caches) shares.
//   - Offer light-weight utilities (Reporter, Bag) that let rules emit
//     diagnostics without coupling to storage or limits.
//
// # Scope
//
// Package diag does no formatting, editor mapping or IO. Projection onto
// editor markers and quick fixes lives in internal/projection; rendering
// lives in internal/diagfmt; applying fixes to text lives in internal/fix.
//
// # Coordinates
//
// Locations use engine coordinates: Row is 1-based, Column is a 0-based count
// of code points. Editors are 1-based in both, so the projector adds one to
// columns and passes rows through.
//
// # Fixes
//
// A Fix is one contiguous replacement: the text between Location and
// EndLocation is replaced verbatim by Content. Insertions use an empty range,
// deletions an empty Content. Engines only attach a fix they consider safe
// to apply without review.
//
// # Determinism
//
// Sort orders by start, end and code with stable ties so repeated runs over
// the same input produce identical lists; the result cache and the share
// token tests depend on it.
package diag
