// Package txid packs and unpacks transaction identities.
//
// A single signed 64-bit integer carries every phase-tagged transaction id
// the manager hands out. Nonnegative values are read ids (snapshots);
// negative values are write ids (in-flight transactions), whose magnitude
// multiplexes a monotonically increasing counter with a 2-bit phase tag in
// its low bits. None of these functions allocate or touch shared state —
// they are pure transforms over int64, safe to call from any goroutine.
package txid

import "fmt"

// NoTx is the sentinel for "no transaction" — the minimum representable
// signed value, chosen so it can never collide with a real read or write id.
const NoTx int64 = minInt64

const minInt64 = -1 << 63

// Phase identifies which stage of the prepare pipeline a synthetic id was
// minted for. Open is not itself encoded via GenerateTxId: it is the
// implicit phase of every id produced by GenerateWriteId.
type Phase int

const (
	PhaseOpen Phase = iota
	PhaseValidating
	PhaseRectifying
	PhaseDistributing
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "Open"
	case PhaseValidating:
		return "Validating"
	case PhaseRectifying:
		return "Rectifying"
	case PhaseDistributing:
		return "Distributing"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// IsReadTx reports whether x identifies a committed snapshot.
func IsReadTx(x int64) bool { return x >= 0 }

// IsWriteTx reports whether x identifies an in-flight transaction.
func IsWriteTx(x int64) bool { return x < 0 }

// WriteTxCounter extracts the counter embedded in a write id. The low 2
// phase-tag bits are discarded, so this returns the same counter regardless
// of which phase the id was minted for.
func WriteTxCounter(writeID int64) int64 {
	if !IsWriteTx(writeID) {
		panic(fmt.Sprintf("txid: WriteTxCounter called on non-write id %d", writeID))
	}
	return (-writeID) >> 2
}

// GenerateWriteId packs counter c (c >= 1) into a fresh, Open-phase write id.
func GenerateWriteId(c int64) int64 {
	if c < 1 {
		panic(fmt.Sprintf("txid: GenerateWriteId requires c >= 1, got %d", c))
	}
	return -(c << 2)
}

// GenerateTxId produces a synthetic id for validators/rectifiers/distributors
// running against writeID during the given non-Open phase. The result is
// still a write id (negative), so IsWriteTx and WriteTxCounter both see
// through it; only the low 2 bits differ from the base write id, carrying
// the phase as a debugging/routing aid.
func GenerateTxId(writeID int64, phase Phase) int64 {
	if phase == PhaseOpen {
		panic("txid: GenerateTxId called with PhaseOpen; use the write id directly")
	}
	if !IsWriteTx(writeID) {
		panic(fmt.Sprintf("txid: GenerateTxId called on non-write id %d", writeID))
	}
	tag := int64(phase)
	return -(((-writeID) &^ 0b11) | tag)
}
