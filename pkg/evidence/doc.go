// Package evidence assembles budgeted context packs from ranked supporting
// material.
//
// Callers supply already-collected evidence (diff hunks, code-navigation
// results, search hits), the working set of actively edited files, and a
// project summary; the package extracts signals from the request, reranks
// the evidence with a weighted multi-feature score, allocates the token
// budget across competing consumers, and assembles an immutable pack. When
// budget scarcity leaves too few full items, assembly degrades gracefully to
// fixed-cost path:line references instead of full content. The package
// performs no I/O and keeps no state between builds.
package evidence
