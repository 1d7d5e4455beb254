package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/ndexec/internal/tensor"
)

// Write encodes arrays into w, in name order. Views are written in logical
// order; the host copy of each array is brought up to date first.
func Write(w io.Writer, arrays map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(arrays))
	for name := range arrays {
		if err := ValidateName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion: FormatVersion,
		Library:       libraryVersion,
		CreatedAt:     time.Now().UTC(),
		Arrays:        make([]ArrayMeta, 0, len(arrays)),
		Metadata:      metadata,
	}

	var data []byte
	for _, name := range names {
		raw := arrays[name]
		packed, err := raw.Contiguous()
		if err != nil {
			return errors.Wrapf(err, "failed to pack array %s", name)
		}
		size := packed.ByteSize()
		header.Arrays = append(header.Arrays, ArrayMeta{
			Name:   name,
			DType:  dtypeName(raw.DType()),
			Shape:  append([]int{}, raw.Shape()...),
			Offset: int64(len(data)),
			Size:   int64(size),
		})
		data = append(data, packed.Data()[:size]...)
		packed.Release()
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}
	checksum := ComputeChecksum(data)

	fixedHeader := make([]byte, FixedHeaderSize)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], FormatVersion)
	var flags uint32
	if len(metadata) > 0 {
		flags |= FlagHasMetadata
	}
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(data)))
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	padding := alignedDataOffset(int64(len(headerJSON))) - int64(FixedHeaderSize+len(headerJSON))
	for _, chunk := range [][]byte{fixedHeader, headerJSON, make([]byte, padding), data} {
		if _, err := w.Write(chunk); err != nil {
			return errors.Wrap(err, "failed to write archive")
		}
	}

	klog.V(2).Infof("serialization: wrote %d arrays, %d data bytes", len(names), len(data))
	return nil
}

// WriteFile writes arrays to a new file at path.
func WriteFile(path string, arrays map[string]*tensor.RawTensor, metadata map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, arrays, metadata); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "failed to flush file")
	}
	return f.Close()
}
