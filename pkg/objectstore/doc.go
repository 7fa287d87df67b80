/*
Package objectstore grounds contract.ObjectStore in a real embedded
database, bucket-per-store-id over bbolt: one bucket per store id,
JSON-encoded values, and db.Update/db.View closures for every mutation or
read.

Writes are staged in memory between enlist and commit, since bbolt has no
notion of a transaction that outlives a single Update call; Commit applies
the staged set in one update transaction, and Rollback simply discards it.
*/
package objectstore
