// Package diag defines the finding model shared by the classifier, the
// reporter and every renderer.
//
// # Data model
//
// ErrorFinding is produced by the signature table: one record per recognised
// failure category, carrying
//
//   - Code: compact numeric identifier with a stable string form (MC1001,
//     USR9000, ...). Built-in rows live in 1000..8999, rows supplied through
//     configuration start at UserSignatureBase.
//   - Category: human label; the dedup key.
//   - Reason: why this failure usually happens.
//   - Remediation: what the player should try.
//
// DependencyFinding is produced by dependency statements ("mod A requires B")
// and carries the candidate download links from package modref.
//
// # Bag
//
// Bag is the accumulator used while scanning: it enforces "one finding per
// category" and an optional upper bound, and keeps insertion order so the
// output follows table order.
//
// Package diag does no formatting or IO. Rendering lives in internal/diagfmt.
package diag
