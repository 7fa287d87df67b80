package txlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

const statusFileName = "txmgr.json"

// readStatus loads and parses txmgr.json. It returns (nil, nil) if the file
// does not exist — callers treat that the same as an unparsable file and
// fall back to recovery.
func readStatus(sysDir string) ([]LogFileInfo, error) {
	path := filepath.Join(sysDir, statusFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("txlog: reading %s: %w", statusFileName, err)
	}
	var infos []LogFileInfo
	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, fmt.Errorf("txlog: parsing %s: %w", statusFileName, err)
	}
	return infos, nil
}

// writeStatus rewrites txmgr.json atomically: a torn write here must never
// leave the status file referring to a segment that doesn't exist, so the
// replacement is staged and renamed into place rather than truncated in.
func writeStatus(sysDir string, infos []LogFileInfo) error {
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return fmt.Errorf("txlog: encoding %s: %w", statusFileName, err)
	}
	data = append(data, '\n')
	path := filepath.Join(sysDir, statusFileName)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("txlog: writing %s: %w", statusFileName, err)
	}
	return nil
}
