package txlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Recover reconciles (or, failing that, rebuilds from scratch) the status
// file against the segments actually on disk, then returns a freshly opened
// Log whose current segment carries a trailing `recovered` meta record.
func Recover(sysDir string, maxSize int64, now time.Time, logger zerolog.Logger) (*Log, error) {
	infos, ok := reconcileFromStatus(sysDir, logger)
	if !ok {
		var err error
		infos, err = scanSysDir(sysDir)
		if err != nil {
			return nil, err
		}
	}
	if len(infos) == 0 {
		logger.Warn().Str("sys_dir", sysDir).Msg("no segments found during recovery, creating fresh log")
		return Create(sysDir, maxSize, now, logger)
	}

	last := infos[len(infos)-1]
	if last.Name != currentSegmentName {
		return nil, fmt.Errorf("txlog: recovery found no current segment named %s (last was %q)", currentSegmentName, last.Name)
	}

	seg, err := openSegment(filepath.Join(sysDir, currentSegmentName), last.Timestamp)
	if err != nil {
		return nil, err
	}
	if err := seg.appendMeta("recovered", now); err != nil {
		seg.close()
		return nil, err
	}
	last.Size = seg.size

	l := &Log{
		sysDir:        sysDir,
		maxSize:       maxSize,
		logger:        logger,
		cur:           seg,
		curRange:      last.TxIds,
		infos:         infos[:len(infos)-1],
		lastCommitted: last.TxIds.Last,
	}
	if err := l.writeStatus(); err != nil {
		seg.close()
		return nil, err
	}
	logger.Info().Int64("last_committed", l.lastCommitted).Int("segments", len(infos)).Msg("recovered transaction log")
	return l, nil
}

// reconcileFromStatus attempts the cheap path: trust the status file's
// segment list, but re-derive every segment's txIds range from its actual
// content and require the ranges to tile contiguously. Any missing
// non-empty-range historical segment, or any non-contiguous pair, makes the
// status file unusable and this returns ok=false so the caller falls back
// to scanning sysDir from scratch.
func reconcileFromStatus(sysDir string, logger zerolog.Logger) ([]LogFileInfo, bool) {
	statusInfos, err := readStatus(sysDir)
	if err != nil || len(statusInfos) == 0 {
		return nil, false
	}

	var rebuilt []LogFileInfo
	for _, want := range statusInfos {
		path := filepath.Join(sysDir, want.Name)
		info, err := loadSegmentInfo(path)
		if err != nil {
			if os.IsNotExist(err) {
				if want.TxIds.Empty() {
					logger.Warn().Str("segment", want.Name).Msg("forgetting missing empty historical segment")
					continue
				}
				logger.Warn().Str("segment", want.Name).Msg("missing historical segment with non-empty range, status file unusable")
				return nil, false
			}
			logger.Warn().Err(err).Str("segment", want.Name).Msg("failed to reload segment, status file unusable")
			return nil, false
		}
		rebuilt = append(rebuilt, info)
	}

	if !rangesContiguous(rebuilt) {
		logger.Warn().Msg("segment ranges are non-contiguous, status file unusable")
		return nil, false
	}
	return rebuilt, true
}

func rangesContiguous(infos []LogFileInfo) bool {
	lastSeen := int64(-1)
	haveSeen := false
	for _, info := range infos {
		if info.TxIds.Empty() {
			continue
		}
		if haveSeen && info.TxIds.First != lastSeen+1 {
			return false
		}
		lastSeen = info.TxIds.Last
		haveSeen = true
	}
	return true
}

// scanSysDir rebuilds the segment list from scratch by listing sysDir for
// txlog.json and txlog_<iso>.json files, archived files oldest-first by
// name (which sorts chronologically), with the current segment always last.
func scanSysDir(sysDir string) ([]LogFileInfo, error) {
	entries, err := os.ReadDir(sysDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("txlog: scanning %s: %w", sysDir, err)
	}

	var archivedNames []string
	haveCurrent := false
	for _, e := range entries {
		name := e.Name()
		switch {
		case name == currentSegmentName:
			haveCurrent = true
		case strings.HasPrefix(name, "txlog_") && strings.HasSuffix(name, ".json"):
			archivedNames = append(archivedNames, name)
		}
	}
	sort.Strings(archivedNames)

	var infos []LogFileInfo
	for _, name := range archivedNames {
		info, err := loadSegmentInfo(filepath.Join(sysDir, name))
		if err != nil {
			return nil, fmt.Errorf("txlog: loading archived segment %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	if haveCurrent {
		info, err := loadSegmentInfo(filepath.Join(sysDir, currentSegmentName))
		if err != nil {
			return nil, fmt.Errorf("txlog: loading current segment: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// loadSegmentInfo stats and parses path, recomputing its LogFileInfo purely
// from observed _tx/_prev_tx entries rather than trusting any cached range.
func loadSegmentInfo(path string) (LogFileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LogFileInfo{}, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogFileInfo{}, fmt.Errorf("txlog: parsing %s: %w", path, err)
	}

	var createdTs time.Time
	var prevTx int64
	haveCreated := false
	var first, last int64
	haveRange := false

	for _, entry := range raw {
		var probe struct {
			Op     *string `json:"_op"`
			Ts     string  `json:"_ts"`
			PrevTx *int64  `json:"_prev_tx"`
			Tx     *int64  `json:"_tx"`
		}
		if err := json.Unmarshal(entry, &probe); err != nil {
			return LogFileInfo{}, fmt.Errorf("txlog: parsing entry in %s: %w", path, err)
		}
		if probe.Op != nil && *probe.Op == "created" {
			haveCreated = true
			if probe.PrevTx != nil {
				prevTx = *probe.PrevTx
			}
			if t, err := time.Parse(isoLayout, probe.Ts); err == nil {
				createdTs = t
			}
			continue
		}
		if probe.Tx != nil {
			if !haveRange {
				first = *probe.Tx
				haveRange = true
			}
			last = *probe.Tx
		}
	}
	if !haveCreated {
		return LogFileInfo{}, fmt.Errorf("txlog: %s has no leading created record", path)
	}

	rng := TxRange{First: prevTx + 1, Last: prevTx}
	if haveRange {
		rng = TxRange{First: first, Last: last}
	}

	info, err := os.Stat(path)
	if err != nil {
		return LogFileInfo{}, err
	}
	return LogFileInfo{
		Name:      filepath.Base(path),
		TxIds:     rng,
		Size:      info.Size(),
		Timestamp: createdTs,
	}, nil
}
