// Package journal persists a session's order submissions and fills as
// checksummed segment files, so a paper run can be inspected or re-analyzed
// after the process exits. Writes happen on the caller's goroutine; the
// manager loop is already single-writer, so the journal stays lock-free.
package journal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradesim/internal/model"
)

const maxPayloadLen = uint64(^uint32(0))

var ErrClosed = errors.New("journal closed")

// Writer appends records to rotating journal segments.
type Writer struct {
	cfg    Config
	seg    *segment
	segID  uint64
	closed bool

	headerBuf   []byte
	checksumBuf [recordChecksumSize]byte
}

type segment struct {
	file *os.File
	buf  *bufio.Writer
	size int64
}

// NewWriter creates a journal writer and ensures the target directory exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{
		cfg:       cfg,
		headerBuf: make([]byte, recordHeaderSize),
	}, nil
}

// AppendFill records one executed fill.
func (w *Writer) AppendFill(ev model.FillEvent) error {
	return w.append(RecordFill, ev)
}

// AppendOrder records an order snapshot, typically at submission.
func (w *Writer) AppendOrder(rec model.OrderRecord) error {
	return w.append(RecordOrder, rec)
}

// Close flushes and closes the current segment.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.closeSegment()
}

func (w *Writer) append(kind RecordKind, v any) error {
	if w.closed {
		return ErrClosed
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if uint64(len(payload)) > maxPayloadLen {
		return ErrPayloadTooLarge
	}

	recordSize := int64(recordHeaderSize + len(payload) + recordChecksumSize)
	if w.seg == nil || w.seg.size+recordSize > w.cfg.SegmentMaxBytes {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	encodeHeader(w.headerBuf, kind, len(payload))
	binary.LittleEndian.PutUint32(w.checksumBuf[:], checksum(w.headerBuf, payload))

	if _, err := w.seg.buf.Write(w.headerBuf); err != nil {
		return err
	}
	if _, err := w.seg.buf.Write(payload); err != nil {
		return err
	}
	if _, err := w.seg.buf.Write(w.checksumBuf[:]); err != nil {
		return err
	}
	w.seg.size += recordSize
	return nil
}

func (w *Writer) rotate() error {
	if err := w.closeSegment(); err != nil {
		return err
	}
	ts := time.Now().UTC().Format("20060102-150405")
	for {
		w.segID++
		name := fmt.Sprintf("%s-%s-%06d.tsj", w.cfg.FilePrefix, ts, w.segID)
		file, err := os.OpenFile(filepath.Join(w.cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return err
		}
		w.seg = &segment{file: file, buf: bufio.NewWriterSize(file, w.cfg.BufferSize)}
		return nil
	}
}

func (w *Writer) closeSegment() error {
	if w.seg == nil {
		return nil
	}
	seg := w.seg
	w.seg = nil
	if err := seg.buf.Flush(); err != nil {
		_ = seg.file.Close()
		return err
	}
	if err := seg.file.Sync(); err != nil {
		_ = seg.file.Close()
		return err
	}
	return seg.file.Close()
}
