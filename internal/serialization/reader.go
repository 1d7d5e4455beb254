package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/ndexec/internal/tensor"
)

// Archive is a decoded set of named arrays.
type Archive struct {
	Header Header
	Arrays map[string]*tensor.RawTensor // Contiguous arrays, one per header entry
}

// Names returns array names in file order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.Header.Arrays))
	for i, meta := range a.Header.Arrays {
		names[i] = meta.Name
	}
	return names
}

// Read decodes an archive from r, verifying the data checksum and the header
// before creating any array.
func Read(r io.Reader) (*Archive, error) {
	fixedHeader := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixedHeader); err != nil {
		return nil, errors.Wrap(err, "failed to read fixed header")
	}
	if string(fixedHeader[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(fixedHeader[4:8]); v != FormatVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", v)
	}
	headerSize := binary.LittleEndian.Uint64(fixedHeader[16:24])
	dataSize := binary.LittleEndian.Uint64(fixedHeader[24:32])
	var stored [32]byte
	copy(stored[:], fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrap(err, "failed to read header JSON")
	}
	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, errors.Wrap(err, "failed to parse header JSON")
	}

	//nolint:gosec // headerSize is bounded by MaxHeaderSize
	padding := alignedDataOffset(int64(headerSize)) - int64(FixedHeaderSize) - int64(headerSize)
	if _, err := io.CopyN(io.Discard, r, padding); err != nil {
		return nil, errors.Wrap(err, "failed to skip padding")
	}

	//nolint:gosec // a size beyond the stream is caught by the length check below
	data, err := io.ReadAll(io.LimitReader(r, int64(dataSize)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read array data")
	}
	if uint64(len(data)) != dataSize {
		return nil, errors.Errorf("truncated data section: got %d of %d bytes", len(data), dataSize)
	}
	if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
		return nil, err
	}
	if err := ValidateHeader(&header, int64(len(data))); err != nil {
		return nil, err
	}

	archive := &Archive{Header: header, Arrays: make(map[string]*tensor.RawTensor, len(header.Arrays))}
	for _, meta := range header.Arrays {
		dt, err := parseDType(meta.DType)
		if err != nil {
			return nil, err
		}
		raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create array %s", meta.Name)
		}
		copy(raw.Data(), data[meta.Offset:meta.Offset+meta.Size])
		raw.MarkHostWritten()
		archive.Arrays[meta.Name] = raw
	}
	return archive, nil
}

// ReadFile reads the archive stored at path.
func ReadFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}
