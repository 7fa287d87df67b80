// Command txmgrd is a small maintenance and demo binary around the txmgr
// library: txmgr itself is an in-process library with no RPC surface of its
// own, so this binary only hosts an optional metrics/health endpoint
// alongside it, not a transaction service.
//
// Subcommands:
//
//	txmgrd init           write a fresh config file and system directory
//	txmgrd status         summarize the on-disk transaction log
//	txmgrd recover        force the log recovery path offline
//	txmgrd demo           run one scripted transaction end-to-end
//	txmgrd serve-metrics  enable the manager and serve /metrics, /health, /ready, /live
package main
