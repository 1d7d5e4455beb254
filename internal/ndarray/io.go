package ndarray

import (
	"github.com/born-ml/ndexec/internal/device"
	"github.com/born-ml/ndexec/internal/serialization"
	"github.com/born-ml/ndexec/internal/tensor"
)

// Save writes named arrays to an .ndx archive at path.
func Save(path string, arrays map[string]*NDArray, metadata map[string]string) error {
	raws := make(map[string]*tensor.RawTensor, len(arrays))
	for name, a := range arrays {
		raws[name] = a.raw
	}
	return serialization.WriteFile(path, raws, metadata)
}

// Load reads an .ndx archive and binds its arrays to ctx (device.Default()
// when nil). It also returns the archive's metadata.
func Load(ctx *device.Context, path string) (map[string]*NDArray, map[string]string, error) {
	archive, err := serialization.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	arrays := make(map[string]*NDArray, len(archive.Arrays))
	for name, raw := range archive.Arrays {
		arrays[name] = New(raw, ctx)
	}
	return arrays, archive.Header.Metadata, nil
}
