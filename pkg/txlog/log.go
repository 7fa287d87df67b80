package txlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const currentSegmentName = "txlog.json"

// ErrInconsistent is returned by Open when the status file's description of
// the current segment does not match the segment on disk, signaling that
// Recover must run before the log can be used.
var ErrInconsistent = errors.New("txlog: status file inconsistent with current segment")

// Log is the append-only JSON transaction log: the current open segment
// plus the ordered history of archived segments, mirrored in txmgr.json.
type Log struct {
	sysDir  string
	maxSize int64
	logger  zerolog.Logger

	cur           *segment
	curRange      TxRange
	infos         []LogFileInfo // oldest first; does not include cur's live entry
	lastCommitted int64
}

// Exists reports whether sysDir already holds a status file — the signal
// lifecycle uses to choose between Create and Open/Recover.
func Exists(sysDir string) bool {
	_, err := os.Stat(filepath.Join(sysDir, statusFileName))
	return err == nil
}

// Create initializes a brand-new log in sysDir, which must not already
// contain a status file or current segment.
func Create(sysDir string, maxSize int64, now time.Time, logger zerolog.Logger) (*Log, error) {
	if err := os.MkdirAll(sysDir, 0o755); err != nil {
		return nil, fmt.Errorf("txlog: creating sys dir: %w", err)
	}
	seg, err := createSegment(filepath.Join(sysDir, currentSegmentName), 0, now)
	if err != nil {
		return nil, err
	}
	l := &Log{
		sysDir:        sysDir,
		maxSize:       maxSize,
		logger:        logger,
		cur:           seg,
		curRange:      TxRange{First: 1, Last: 0},
		lastCommitted: 0,
	}
	if err := l.writeStatus(); err != nil {
		seg.close()
		return nil, err
	}
	return l, nil
}

// Open loads an existing log, validating the status file's description of
// the current segment against the file actually on disk. Any mismatch
// returns ErrInconsistent without mutating anything; the caller should run
// Recover instead.
func Open(sysDir string, maxSize int64, logger zerolog.Logger) (*Log, error) {
	infos, err := readStatus(sysDir)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: empty or missing status file", ErrInconsistent)
	}
	last := infos[len(infos)-1]
	path := filepath.Join(sysDir, currentSegmentName)
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrInconsistent, currentSegmentName, err)
	}
	if stat.Size() != last.Size || last.Name != currentSegmentName {
		return nil, fmt.Errorf("%w: recorded size %d/name %q, actual size %d",
			ErrInconsistent, last.Size, last.Name, stat.Size())
	}

	seg, err := openSegment(path, last.Timestamp)
	if err != nil {
		return nil, err
	}

	l := &Log{
		sysDir:        sysDir,
		maxSize:       maxSize,
		logger:        logger,
		cur:           seg,
		curRange:      last.TxIds,
		infos:         infos[:len(infos)-1],
		lastCommitted: last.TxIds.Last,
	}
	if err := l.cur.appendMeta("opened", time.Now()); err != nil {
		seg.close()
		return nil, err
	}
	if err := l.writeStatus(); err != nil {
		seg.close()
		return nil, err
	}
	return l, nil
}

// LastCommitted returns the highest commit id durably recorded in the
// current segment.
func (l *Log) LastCommitted() int64 { return l.lastCommitted }

// Infos returns a snapshot of every segment, oldest first, with the current
// segment last.
func (l *Log) Infos() []LogFileInfo {
	out := make([]LogFileInfo, 0, len(l.infos)+1)
	out = append(out, l.infos...)
	out = append(out, l.currentInfo())
	return out
}

func (l *Log) currentInfo() LogFileInfo {
	return LogFileInfo{
		Name:      l.cur.name,
		TxIds:     l.curRange,
		Size:      l.cur.size,
		Timestamp: l.cur.timestamp,
	}
}

// AppendCommit durably records one transaction's commit, advancing
// lastCommitted and rotating the segment if the size threshold is crossed.
// entries must be in the deterministic store-id order the rest of the
// pipeline uses.
func (l *Log) AppendCommit(prepareID int64, now time.Time, entries []SealEntry) error {
	data, err := buildCommitRecord(prepareID, now, entries)
	if err != nil {
		return err
	}
	if err := l.cur.appendRaw(data); err != nil {
		return err
	}
	if l.curRange.Empty() {
		l.curRange.First = prepareID
	}
	l.curRange.Last = prepareID
	l.lastCommitted = prepareID

	if err := l.writeStatus(); err != nil {
		return err
	}
	if l.cur.size > l.maxSize {
		return l.rotate(now)
	}
	return nil
}

// rotate archives the current segment under its timestamped name and opens
// a fresh txlog.json continuing from lastCommitted.
func (l *Log) rotate(now time.Time) error {
	if err := l.cur.appendMeta("archived", now); err != nil {
		return err
	}
	archivedName := fmt.Sprintf("txlog_%s.json", nowString(now))
	archivedInfo := LogFileInfo{Name: archivedName, TxIds: l.curRange, Size: l.cur.size, Timestamp: l.cur.timestamp}
	if err := l.cur.close(); err != nil {
		return fmt.Errorf("txlog: closing segment before rotation: %w", err)
	}
	oldPath := filepath.Join(l.sysDir, currentSegmentName)
	newPath := filepath.Join(l.sysDir, archivedName)
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("txlog: archiving %s to %s: %w", currentSegmentName, archivedName, err)
	}

	seg, err := createSegment(oldPath, l.lastCommitted, now)
	if err != nil {
		return err
	}
	l.infos = append(l.infos, archivedInfo)
	l.cur = seg
	l.curRange = TxRange{First: l.lastCommitted + 1, Last: l.lastCommitted}

	l.logger.Info().Str("archived", archivedName).Int64("last_committed", l.lastCommitted).Msg("rotated transaction log")
	return l.writeStatus()
}

// Close writes the closing meta record and final status snapshot. cause is
// nil for a graceful disable/close, non-nil when close was triggered by an
// error condition (still written as "closed"; the cause is logged only).
func (l *Log) Close(cause error, now time.Time) error {
	if cause != nil {
		l.logger.Error().Err(cause).Msg("closing transaction log due to error")
	}
	if err := l.cur.appendMeta("closed", now); err != nil {
		return err
	}
	if err := l.writeStatus(); err != nil {
		return err
	}
	return l.cur.close()
}

func (l *Log) writeStatus() error {
	return writeStatus(l.sysDir, l.Infos())
}
