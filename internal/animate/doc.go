// Package animate computes transitions between two card grids.
//
// An [Engine] starts a [Session] from a source grid to a target grid. The
// session is a small state machine:
//
//	Running --Tick(progress < 1)--> Running
//	Running --Tick(progress >= 1)--> Completed
//	Running --Cancel--> Cancelled
//
// Every Tick yields an immutable [Frame], a pure function of the source,
// target, kind and progress. The frame at progress 1 is the target grid
// itself, never an approximation of it.
//
// # Thread Safety
//
// The engine hands out sessions but does not keep a current one; whoever
// starts a session owns it. Session methods are safe for concurrent use.
package animate
