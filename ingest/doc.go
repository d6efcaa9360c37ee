// Package ingest is the write path of the entity store: it embeds
// point-of-interest records concurrently and persists them through the
// storage layer.
package ingest
