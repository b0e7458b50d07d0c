package journal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"

	"tradesim/internal/model"
)

// Reader decodes journal records sequentially from one segment.
type Reader struct {
	r         *bufio.Reader
	headerBuf []byte
	payload   []byte
}

// NewReader wraps an io.Reader with journal decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:         bufio.NewReader(r),
		headerBuf: make([]byte, recordHeaderSize),
	}
}

// Next returns the next record kind and payload.
// The payload is only valid until the next call to Next.
func (r *Reader) Next() (RecordKind, []byte, error) {
	n, err := io.ReadFull(r.r, r.headerBuf)
	if err != nil {
		if err == io.EOF && n == 0 {
			return 0, nil, io.EOF
		}
		return 0, nil, err
	}

	kind, payloadLen, err := decodeHeader(r.headerBuf)
	if err != nil {
		return 0, nil, err
	}
	if cap(r.payload) < int(payloadLen) {
		r.payload = make([]byte, payloadLen)
	}
	r.payload = r.payload[:payloadLen]
	if payloadLen > 0 {
		if _, err := io.ReadFull(r.r, r.payload); err != nil {
			return 0, nil, err
		}
	}

	var checksumBuf [recordChecksumSize]byte
	if _, err := io.ReadFull(r.r, checksumBuf[:]); err != nil {
		return 0, nil, err
	}
	if binary.LittleEndian.Uint32(checksumBuf[:]) != checksum(r.headerBuf, r.payload) {
		return 0, nil, ErrChecksumMismatch
	}
	return kind, r.payload, nil
}

// Session is the decoded content of one journal directory.
type Session struct {
	Orders []model.OrderRecord
	Fills  []model.FillEvent
}

// ReadDir decodes every segment in a journal directory in filename order.
func ReadDir(dir string) (Session, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Session{}, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".tsj" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	var s Session
	for _, path := range paths {
		if err := readSegment(path, &s); err != nil {
			return Session{}, err
		}
	}
	return s, nil
}

func readSegment(path string, s *Session) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	r := NewReader(file)
	for {
		kind, payload, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch kind {
		case RecordOrder:
			var rec model.OrderRecord
			if err := json.Unmarshal(payload, &rec); err != nil {
				return err
			}
			s.Orders = append(s.Orders, rec)
		case RecordFill:
			var ev model.FillEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				return err
			}
			s.Fills = append(s.Fills, ev)
		}
	}
}
