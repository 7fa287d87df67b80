package txlog

import (
	"encoding/json"
	"fmt"
	"time"
)

// isoLayout formats timestamps so lexical order equals chronological order,
// which is what makes the txlog_<ts>.json archive naming scheme sortable.
const isoLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowString(t time.Time) string { return t.UTC().Format(isoLayout) }

// TxRange is the inclusive commit-id range a log segment covers. A segment
// with no commits yet records First = lastCommitted+1, Last = lastCommitted,
// i.e. Last < First, which Empty reports as true.
type TxRange struct {
	First int64
	Last  int64
}

// Empty reports whether the range contains no commit ids.
func (r TxRange) Empty() bool { return r.Last < r.First }

// Contains reports whether id falls within the range.
func (r TxRange) Contains(id int64) bool {
	return !r.Empty() && id >= r.First && id <= r.Last
}

// MarshalJSON encodes the range as the [first,last] pair the status file
// format uses.
func (r TxRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{r.First, r.Last})
}

// UnmarshalJSON decodes the [first,last] pair.
func (r *TxRange) UnmarshalJSON(b []byte) error {
	var pair [2]int64
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("txlog: decoding txIds range: %w", err)
	}
	r.First, r.Last = pair[0], pair[1]
	return nil
}

// LogFileInfo is the immutable snapshot of one segment — current or
// archived — as recorded in txmgr.json.
type LogFileInfo struct {
	Name      string    `json:"name"`
	TxIds     TxRange   `json:"txIds"`
	Size      int64     `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// metaRecord is the shape of every non-transaction log entry: created,
// opened, closed, archived, recovered.
type metaRecord struct {
	Op     string `json:"_op"`
	Ts     string `json:"_ts"`
	PrevTx *int64 `json:"_prev_tx,omitempty"`
}
