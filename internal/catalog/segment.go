package catalog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

const (
	frameHeaderSize   = 28
	checksumSize      = 4
	segmentFixedBytes = 10 // magic + version + schema block length

	// Schema blocks hold a handful of short column descriptors. A length
	// beyond this is a corrupt header, not a big schema, and must not
	// drive the read buffer allocation.
	maxSchemaBlockBytes = 64 << 10
)

var (
	segmentMagic = [4]byte{'C', 'A', 'T', '1'}
	frameMagic   = [4]byte{'F', 'R', 'M', '1'}
	crcTable     = crc32.MakeTable(crc32.Castagnoli)
)

var ErrChecksumMismatch = errors.New("catalog checksum mismatch")

// encodeSegmentHeader renders the segment preamble: magic, format version
// and the schema block, protected by a trailing checksum.
func encodeSegmentHeader(s schema) []byte {
	block := s.append(nil)

	buf := make([]byte, 0, segmentFixedBytes+len(block)+checksumSize)
	buf = append(buf, segmentMagic[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, FormatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(block)))
	buf = append(buf, block...)

	sum := crc32.Checksum(buf, crcTable)
	return binary.LittleEndian.AppendUint32(buf, sum)
}

// readSegmentHeader consumes and validates the segment preamble.
func readSegmentHeader(r io.Reader) (schema, error) {
	fixed := make([]byte, segmentFixedBytes)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return schema{}, fmt.Errorf("segment preamble: %w", err)
	}
	if !bytes.Equal(fixed[0:4], segmentMagic[:]) {
		return schema{}, fmt.Errorf("bad segment magic: %w", ErrInvalidSegment)
	}
	if version := binary.LittleEndian.Uint16(fixed[4:6]); version != FormatVersion {
		return schema{}, fmt.Errorf("format version %d: %w", version, ErrUnsupportedVersion)
	}
	blockLen := binary.LittleEndian.Uint32(fixed[6:10])
	if blockLen > maxSchemaBlockBytes {
		return schema{}, fmt.Errorf("schema block length %d: %w", blockLen, ErrInvalidSegment)
	}

	rest := make([]byte, int(blockLen)+checksumSize)
	if _, err := io.ReadFull(r, rest); err != nil {
		return schema{}, fmt.Errorf("segment schema block: %w", err)
	}

	expected := binary.LittleEndian.Uint32(rest[blockLen:])
	sum := crc32.Update(crc32.Checksum(fixed, crcTable), crcTable, rest[:blockLen])
	if sum != expected {
		return schema{}, fmt.Errorf("segment header: %w", ErrChecksumMismatch)
	}

	s, _, err := decodeSchema(rest[:blockLen])
	if err != nil {
		return schema{}, err
	}
	return s, nil
}

// frame is one encoded record batch: a header with the row count and the
// covered timestamp range, then contiguous column blocks.
type frame struct {
	rowCount int
	minTs    int64
	maxTs    int64
	columns  [][]byte
}

func (f frame) encode(buf []byte) []byte {
	payloadLen := 0
	for _, block := range f.columns {
		payloadLen += 4 + len(block)
	}

	start := len(buf)
	buf = append(buf, frameMagic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(f.rowCount))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(f.minTs))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(f.maxTs))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(payloadLen))
	for _, block := range f.columns {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(block)))
		buf = append(buf, block...)
	}

	sum := crc32.Checksum(buf[start:], crcTable)
	return binary.LittleEndian.AppendUint32(buf, sum)
}

// frameReader decodes frames sequentially from one segment body.
type frameReader struct {
	r         io.Reader
	headerBuf []byte
	payload   []byte
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: r, headerBuf: make([]byte, frameHeaderSize)}
}

// next returns the next frame. The column blocks are only valid until the
// following call. io.EOF marks a clean segment end.
func (fr *frameReader) next() (frame, error) {
	n, err := io.ReadFull(fr.r, fr.headerBuf)
	if err != nil {
		if err == io.EOF && n == 0 {
			return frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return frame{}, fmt.Errorf("truncated frame header: %w", ErrInvalidSegment)
		}
		return frame{}, err
	}
	if !bytes.Equal(fr.headerBuf[0:4], frameMagic[:]) {
		return frame{}, fmt.Errorf("bad frame magic: %w", ErrInvalidSegment)
	}

	f := frame{
		rowCount: int(binary.LittleEndian.Uint32(fr.headerBuf[4:8])),
		minTs:    int64(binary.LittleEndian.Uint64(fr.headerBuf[8:16])),
		maxTs:    int64(binary.LittleEndian.Uint64(fr.headerBuf[16:24])),
	}
	payloadLen := int(binary.LittleEndian.Uint32(fr.headerBuf[24:28]))

	if cap(fr.payload) < payloadLen+checksumSize {
		fr.payload = make([]byte, payloadLen+checksumSize)
	}
	fr.payload = fr.payload[:payloadLen+checksumSize]
	if _, err := io.ReadFull(fr.r, fr.payload); err != nil {
		return frame{}, fmt.Errorf("truncated frame payload: %w", ErrInvalidSegment)
	}

	payload := fr.payload[:payloadLen]
	expected := binary.LittleEndian.Uint32(fr.payload[payloadLen:])
	sum := crc32.Update(crc32.Checksum(fr.headerBuf, crcTable), crcTable, payload)
	if sum != expected {
		return frame{}, ErrChecksumMismatch
	}

	offset := 0
	for offset < len(payload) {
		if len(payload[offset:]) < 4 {
			return frame{}, fmt.Errorf("truncated column block: %w", ErrInvalidSegment)
		}
		blockLen := int(binary.LittleEndian.Uint32(payload[offset:]))
		offset += 4
		if len(payload[offset:]) < blockLen {
			return frame{}, fmt.Errorf("truncated column block: %w", ErrInvalidSegment)
		}
		f.columns = append(f.columns, payload[offset:offset+blockLen])
		offset += blockLen
	}
	return f, nil
}

// int64Column renders mantissas or timestamps as one contiguous block.
func int64Column(values []int64) []byte {
	buf := make([]byte, 0, len(values)*8)
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
	}
	return buf
}

func decodeInt64Column(block []byte, rowCount int) ([]int64, error) {
	if len(block) != rowCount*8 {
		return nil, fmt.Errorf("int64 column size %d for %d rows: %w", len(block), rowCount, ErrInvalidSegment)
	}
	values := make([]int64, rowCount)
	for i := range values {
		values[i] = int64(binary.LittleEndian.Uint64(block[i*8:]))
	}
	return values, nil
}

func uint8Column(values []uint8) []byte {
	out := make([]byte, len(values))
	copy(out, values)
	return out
}

func decodeUint8Column(block []byte, rowCount int) ([]uint8, error) {
	if len(block) != rowCount {
		return nil, fmt.Errorf("uint8 column size %d for %d rows: %w", len(block), rowCount, ErrInvalidSegment)
	}
	values := make([]uint8, rowCount)
	copy(values, block)
	return values, nil
}

// stringColumn renders variable-length values as a length array followed by
// the concatenated bytes.
func stringColumn(values []string) []byte {
	total := 0
	for _, v := range values {
		total += len(v)
	}
	buf := make([]byte, 0, len(values)*4+total)
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v)))
	}
	for _, v := range values {
		buf = append(buf, v...)
	}
	return buf
}

func decodeStringColumn(block []byte, rowCount int) ([]string, error) {
	if len(block) < rowCount*4 {
		return nil, fmt.Errorf("string column size %d for %d rows: %w", len(block), rowCount, ErrInvalidSegment)
	}
	values := make([]string, rowCount)
	offset := rowCount * 4
	for i := 0; i < rowCount; i++ {
		n := int(binary.LittleEndian.Uint32(block[i*4:]))
		if len(block[offset:]) < n {
			return nil, fmt.Errorf("string column data truncated: %w", ErrInvalidSegment)
		}
		values[i] = string(block[offset : offset+n])
		offset += n
	}
	return values, nil
}
