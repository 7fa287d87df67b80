/*
Package manager implements the transaction manager core: identity issuance,
the enlistment index, the prepare/validate/rectify/distribute/seal pipeline,
batched commit, rollback, and the Initial→Enabled→Disabled→Closed lifecycle
that gates all of it.

# Architecture

	┌───────────────────────────── Manager ─────────────────────────────┐
	│                                                                     │
	│   Begin/Enlist ──▶ byWriteID / byClientID / byReadID (mu-guarded)  │
	│                                                                     │
	│   Commit(writeId) ──▶ pendingPrepare queue ──▶ kickPipeline        │
	│                              │                                     │
	│                              ▼                                     │
	│                    runTransaction (one at a time)                  │
	│                    prepare → validate → rectify →                  │
	│                    distribute → seal → runBatchedCommit            │
	│                              │                                     │
	│                              ▼                                     │
	│                         txlog.Log.AppendCommit                     │
	│                                                                     │
	│   Disable(abort) ──▶ drains every live record to a terminal        │
	│                      status, then closes the log                   │
	└─────────────────────────────────────────────────────────────────────┘

A single mutex replaces the cooperative single-threaded run loop the design
notes describe as equally valid (see DESIGN.md): state is touched only while
mu is held, and mu is released before every call into an ObjectStore or a
Client and before each commit append to the log. Enable (opening, creating
or recovering the log) and the end of a disable drain (closing it) run
their log calls with mu held.
*/
package manager
