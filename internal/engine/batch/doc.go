// Package batch walks a slice in fixed-size chunks and reports progress after
// each chunk.
//
// The bulk fill uses it to enrich search results five at a time so that a long
// tier (up to 100 items, each needing a detail-page fetch) shows steady
// progress and can be cancelled between chunks.
package batch
