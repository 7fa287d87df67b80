package txlog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const closer = "\n]"

// segment is one open log file — either the live txlog.json or, briefly
// during rotation, the file about to be archived. It keeps the invariant
// that the file on disk is always a well-formed JSON array: every write
// truncates the trailing "\n]" and re-appends it after the new record.
type segment struct {
	file      *os.File
	name      string
	size      int64
	timestamp time.Time
}

// createSegment initializes a brand-new segment at path, opening with the
// mandatory leading `created` meta record.
func createSegment(path string, prevTx int64, now time.Time) (*segment, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("txlog: creating segment %s: %w", path, err)
	}
	prev := prevTx
	rec := metaRecord{Op: "created", Ts: nowString(now), PrevTx: &prev}
	data, err := marshalOrdered(rec)
	if err != nil {
		f.Close()
		return nil, err
	}
	content := append([]byte("[\n"), data...)
	content = append(content, []byte(closer)...)
	if _, err := f.Write(content); err != nil {
		f.Close()
		return nil, fmt.Errorf("txlog: writing created record to %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, fmt.Errorf("txlog: fsyncing %s: %w", path, err)
	}
	return &segment{file: f, name: filepath.Base(path), size: int64(len(content)), timestamp: now}, nil
}

// openSegment reopens an existing segment file for further appends.
func openSegment(path string, timestamp time.Time) (*segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("txlog: opening segment %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("txlog: stat %s: %w", path, err)
	}
	return &segment{file: f, name: filepath.Base(path), size: info.Size(), timestamp: timestamp}, nil
}

// appendRaw truncates the closing "\n]" and re-appends `,\n<data>\n]`,
// preserving well-formed JSON across the write. Each call ends with an
// fsync, so the file on disk is never observed in a torn state.
func (s *segment) appendRaw(data []byte) error {
	if err := s.file.Truncate(s.size - int64(len(closer))); err != nil {
		return fmt.Errorf("txlog: truncating %s: %w", s.name, err)
	}
	if _, err := s.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("txlog: seeking %s: %w", s.name, err)
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(data)+len(closer)+2))
	buf.WriteString(",\n")
	buf.Write(data)
	buf.WriteString(closer)
	n, err := s.file.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("txlog: appending to %s: %w", s.name, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("txlog: fsyncing %s: %w", s.name, err)
	}
	s.size = s.size - int64(len(closer)) + int64(n)
	return nil
}

func (s *segment) appendMeta(op string, now time.Time) error {
	rec := metaRecord{Op: op, Ts: nowString(now)}
	data, err := marshalOrdered(rec)
	if err != nil {
		return err
	}
	return s.appendRaw(data)
}

func (s *segment) close() error {
	return s.file.Close()
}

// marshalOrdered renders a metaRecord with stable key order (_op, _ts,
// _prev_tx) instead of whatever order encoding/json's reflection-based map
// traversal would pick.
func marshalOrdered(rec metaRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	fmt.Fprintf(&buf, "%q:%q", "_op", rec.Op)
	fmt.Fprintf(&buf, ",%q:%q", "_ts", rec.Ts)
	if rec.PrevTx != nil {
		fmt.Fprintf(&buf, ",%q:%d", "_prev_tx", *rec.PrevTx)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
