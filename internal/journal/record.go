package journal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// RecordKind tags each journal record's payload type.
type RecordKind uint16

const (
	RecordFill  RecordKind = 1
	RecordOrder RecordKind = 2
)

const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 12
	recordChecksumSize        = 4
)

var (
	recordMagic = [4]byte{'T', 'S', 'J', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic         = errors.New("journal invalid magic")
	ErrUnsupportedRecordVer = errors.New("journal unsupported record version")
	ErrInvalidRecordHeader  = errors.New("journal invalid header")
	ErrChecksumMismatch     = errors.New("journal checksum mismatch")
	ErrPayloadTooLarge      = errors.New("journal payload too large")
)

func encodeHeader(dst []byte, kind RecordKind, payloadLen int) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(kind))
	binary.LittleEndian.PutUint32(dst[8:12], uint32(payloadLen))
}

func decodeHeader(src []byte) (RecordKind, uint32, error) {
	if len(src) < recordHeaderSize {
		return 0, 0, ErrInvalidRecordHeader
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return 0, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return 0, 0, ErrUnsupportedRecordVer
	}
	kind := RecordKind(binary.LittleEndian.Uint16(src[6:8]))
	payloadLen := binary.LittleEndian.Uint32(src[8:12])
	return kind, payloadLen, nil
}

func checksum(header, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}
