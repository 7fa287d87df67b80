/*
Package clientpool is the system-Client half of contract.Catalog: a
fixed-size pool of workers the manager borrows for the duration of one
validate, rectify, or distribute phase.

No ecosystem dependency fits a bounded in-process worker pool better than
a channel of interchangeable workers, so this is a small channel-backed
semaphore, kept on the standard library deliberately (see DESIGN.md).
*/
package clientpool
