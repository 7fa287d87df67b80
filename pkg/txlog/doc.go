/*
Package txlog implements the transaction manager's durable, human-readable
commit log: a single append-only JSON array per segment, rotated by size,
indexed by a status file, and reconstructable from either.

# Architecture

	┌──────────────────────── TRANSACTION LOG ─────────────────────────┐
	│                                                                    │
	│  ┌──────────────────────────────────────────────────┐           │
	│  │                    Log                             │           │
	│  │  - sysDir/txmgr.json   (status: LogFileInfo[])     │           │
	│  │  - sysDir/txlog.json   (current segment)           │           │
	│  │  - sysDir/txlog_<ts>.json  (archived segments)     │           │
	│  └─────────────────────┬────────────────────────────┘           │
	│                        │                                          │
	│  ┌─────────────────────▼────────────────────────────┐           │
	│  │                  segment                           │           │
	│  │  [                                                 │           │
	│  │    {"_op":"created","_ts":...,"_prev_tx":N},       │           │
	│  │    {"_tx":N+1,"_ts":...,"<store.path>":<seal>,...},│           │
	│  │    ...                                             │           │
	│  │  ]                                                 │           │
	│  │  append = truncate trailing "\n]", write           │           │
	│  │           ",\n<record>\n]", fsync                  │           │
	│  └─────────────────────┬────────────────────────────┘           │
	│                        │ size > maxLogSize                       │
	│                        ▼                                          │
	│  ┌────────────────────────────────────────────────────┐          │
	│  │   rotate: append "archived", rename to              │          │
	│  │   txlog_<iso>.json, create fresh txlog.json          │          │
	│  │   continuing from lastCommitted, rewrite status      │          │
	│  └────────────────────────────────────────────────────┘          │
	│                                                                    │
	└────────────────────────────────────────────────────────────────────┘

# Recovery

Open validates the status file's description of the current segment
(size, name) against the file on disk and returns ErrInconsistent on any
mismatch. Recover then either reconciles the status file (re-deriving every
segment's txIds range from its own _tx/_prev_tx entries and requiring
contiguity) or, failing that, rescans sysDir entirely, before patching the
current segment with a trailing "recovered" meta record and rewriting the
status file.
*/
package txlog
