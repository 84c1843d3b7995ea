// Package device implements the Device Registry, the Nonce Coordinator,
// and the device enrollment and verification state machine.
//
// The Registry owns the two persisted device collections (enrolled and
// pending-verification) and serialises every mutation through a single
// bbolt read-write transaction, so invariants — no id collisions across
// sets, atomic promotion — hold without an additional application-level
// lock.
package device
