// Package badger provides a BadgerDB implementation of the storage
// interfaces. Entities live under a primary record key and a secondary
// category index so that category fetches are prefix scans rather than full
// iterations.
package badger
