/*
Package log provides structured logging for the transaction manager using
zerolog.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Context Loggers                     │          │
	│  │  - WithComponent("manager")                 │          │
	│  │  - WithTxID(txID)                           │          │
	│  │  - WithWriteID(writeID)                     │          │
	│  │  - WithStoreID("orders")                    │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	log.Info("transaction manager enabled")

	log.Logger.Info().Int64("write_id", writeID).Str("store_id", "orders").Msg("enlisted")

	storeLog := log.WithStoreID("orders")
	storeLog.Debug().Msg("prepare accepted")

# Design Patterns

Global Logger Pattern: a single package-level Logger, initialized once at
process start via Init, accessible from every package without threading a
logger through constructors.

Context Logger Pattern: WithTxID/WithWriteID/WithStoreID return child
loggers carrying one structured field, so call sites that already know
which transaction or store they're touching don't repeat it on every line.
*/
package log
