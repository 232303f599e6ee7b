// Package scheduler partitions a kernel's iteration window and runs the
// partitions on a fixed pool of workers.
//
// Two strategies are available: STATIC splits the window once into near equal
// parts, one per worker slot, and DYNAMIC lets idle workers claim fixed size
// chunks from a shared atomic cursor. Schedule calls on one Service are
// serialized; each call returns a run.Run describing what was dispatched.
package scheduler
