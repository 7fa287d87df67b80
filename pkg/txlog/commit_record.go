package txlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SealEntry is one store's contribution to a commit record: the JSON key
// under which its seal fragment is written (the store's path) and the raw
// JSON fragment itself, as returned by ObjectStore.SealPrepare.
type SealEntry struct {
	Path string
	Seal string
}

// buildCommitRecord renders `{"_tx":prepareId,"_ts":<iso>,"<path>":<seal>,…}`
// with keys in call order (stores are passed in ascending store-id order by
// the caller), since encoding/json's map marshaling would otherwise scatter
// them alphabetically by path and obscure the deterministic trigger order
// the rest of the pipeline follows.
func buildCommitRecord(prepareID int64, now time.Time, entries []SealEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	fmt.Fprintf(&buf, "%q:%d", "_tx", prepareID)
	fmt.Fprintf(&buf, ",%q:%q", "_ts", nowString(now))
	for _, e := range entries {
		if !json.Valid([]byte(e.Seal)) {
			return nil, fmt.Errorf("txlog: seal for %q is not valid JSON: %s", e.Path, e.Seal)
		}
		keyJSON, err := json.Marshal(e.Path)
		if err != nil {
			return nil, fmt.Errorf("txlog: encoding store path %q: %w", e.Path, err)
		}
		buf.WriteByte(',')
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.WriteString(e.Seal)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
