// Package memory is the bounded per-user conversation store.
//
// Each user's record holds at most 20 turns (10 exchanges); older turns are
// dropped FIFO on overflow. A record idle past its TTL (default 30 minutes)
// is logically expired: reads treat it as absent, and sweeps reclaim it.
// Appends refresh the expiry window.
package memory
