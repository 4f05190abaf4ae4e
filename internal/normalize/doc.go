// Package normalize canonicalizes URLs so that the frontier's visited
// set and the archive index key on a single representation per page.
//
// Normalization is a pure function: no network access, no state, and
// idempotent by construction (normalizing an already-normalized URL is
// a no-op).
package normalize
