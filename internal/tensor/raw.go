package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/born-ml/ndexec/internal/memory"
	"github.com/born-ml/ndexec/internal/parallel"
)

// residency tells which copy of a buffer holds the latest writes.
type residency int

const (
	synced      residency = iota // Host and device copies agree.
	hostAhead                    // Host was written after the last sync.
	deviceAhead                  // Device was written after the last sync.
)

// tensorBuffer is a reference-counted storage shared by an array and its
// views. It owns a host copy and a device-resident copy of the same size.
type tensorBuffer struct {
	host     []byte
	device   []byte // Allocated on first device use.
	state    residency
	refCount atomic.Int32
	mu       sync.Mutex // Guards device, state and deallocation.

	hostID   uuid.UUID
	deviceID uuid.UUID
}

// newTensorBuffer creates a new reference-counted buffer with refCount = 1.
func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		host:   alignedBytes(size),
		hostID: memory.Default().CountIn(memory.Host, size),
		state:  hostAhead,
	}
	buf.refCount.Store(1)
	return buf
}

// alignedBytes allocates a zeroed byte slice backed by 8-byte aligned memory,
// so it can be reinterpreted as any supported element type.
func alignedBytes(size int) []byte {
	if size == 0 {
		return []byte{}
	}
	words := make([]uint64, (size+7)/8)
	//nolint:gosec // reinterpretation of a freshly allocated word slice
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
}

// addRef increments the reference count (for Clone and views).
func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

// release decrements the reference count and deallocates if it reaches 0.
func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) != 0 {
		return
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tr := memory.Default()
	if err := tr.CountOut(tb.hostID); err != nil {
		klog.Warningf("tensor: releasing host buffer: %v", err)
	}
	if err := tr.CountOut(tb.deviceID); err != nil {
		klog.Warningf("tensor: releasing device buffer: %v", err)
	}
	tb.host = nil
	tb.device = nil
}

// isUnique returns true if this buffer has only one reference (enables inplace ops).
func (tb *tensorBuffer) isUnique() bool {
	return tb.refCount.Load() == 1
}

// syncToDevice makes the device copy current, allocating it if needed.
func (tb *tensorBuffer) syncToDevice() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.device == nil {
		tb.device = alignedBytes(len(tb.host))
		tb.deviceID = memory.Default().CountIn(memory.Device, len(tb.host))
		tb.state = hostAhead
	}
	if tb.state == hostAhead {
		parallel.Copy(tb.device, tb.host, parallel.DefaultConfig())
		tb.state = synced
	}
}

// syncToHost makes the host copy current.
func (tb *tensorBuffer) syncToHost() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.state == deviceAhead {
		parallel.Copy(tb.host, tb.device, parallel.DefaultConfig())
		tb.state = synced
	}
}

func (tb *tensorBuffer) tick(state residency) {
	tb.mu.Lock()
	tb.state = state
	tb.mu.Unlock()
}

// RawTensor is the low-level array representation: a typed view, described
// by a ShapeInfo and an element offset, onto a shared tensorBuffer.
type RawTensor struct {
	buffer *tensorBuffer // Shared reference-counted buffer
	info   ShapeInfo     // Shape and strides of this view
	dtype  DataType      // Runtime type information
	offset int           // Element offset for views
}

// NewRaw creates a new contiguous RawTensor with the given shape and type.
// Memory is zero-initialized.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	info, err := ContiguousShapeInfo(shape)
	if err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}

	return &RawTensor{
		buffer: newTensorBuffer(info.Length() * dtype.Size()),
		info:   info,
		dtype:  dtype,
	}, nil
}

// NewScalarRaw creates a rank-0 RawTensor.
func NewScalarRaw(dtype DataType) *RawTensor {
	raw, err := NewRaw(Shape{}, dtype)
	if err != nil {
		panic(err) // rank 0 is always valid
	}
	return raw
}

// View returns a RawTensor sharing r's buffer with a different descriptor and
// element offset. It fails if the view would reach outside the buffer.
func (r *RawTensor) View(info ShapeInfo, offset int) (*RawTensor, error) {
	capacity := len(r.buffer.host) / r.dtype.Size()
	if offset < 0 || offset+info.Span() > capacity {
		return nil, errors.Errorf("view %v at offset %d exceeds buffer of %d elements", info, offset, capacity)
	}
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		info:   info,
		dtype:  r.dtype,
		offset: offset,
	}, nil
}

// Info returns the tensor's shape descriptor.
func (r *RawTensor) Info() ShapeInfo {
	return r.info
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.info.Shape()
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.info.Strides()
}

// Rank returns the number of dimensions.
func (r *RawTensor) Rank() int {
	return r.info.Rank()
}

// IsScalar reports whether the tensor has rank 0.
func (r *RawTensor) IsScalar() bool {
	return r.info.IsScalar()
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Offset returns the element offset of this view into its buffer.
func (r *RawTensor) Offset() int {
	return r.offset
}

// NumElements returns the total number of logical elements.
func (r *RawTensor) NumElements() int {
	return r.info.Length()
}

// ByteSize returns the logical size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the host byte slice starting at the view offset, after
// bringing the host copy up to date.
// WARNING: Direct access to underlying memory. Call MarkHostWritten after
// modifying it.
func (r *RawTensor) Data() []byte {
	r.buffer.syncToHost()
	return r.buffer.host[r.offset*r.dtype.Size():]
}

// MarkHostWritten records that the host copy was modified directly.
func (r *RawTensor) MarkHostWritten() {
	r.buffer.tick(hostAhead)
}

// SharesBuffer reports whether both tensors view the same storage.
func (r *RawTensor) SharesBuffer(other *RawTensor) bool {
	return r.buffer == other.buffer
}

// HostSlice returns the host buffer as []T, starting at the view offset and
// running to the end of the buffer. Elements are addressed through Info().
// Panics if T does not match the tensor's dtype.
func HostSlice[T DType](r *RawTensor) []T {
	r.buffer.syncToHost()
	return typedSlice[T](r, r.buffer.host)
}

// DeviceSlice returns the device buffer as []T from the view offset.
// The device copy must have been prepared with PrepareSpecialUse.
func DeviceSlice[T DType](r *RawTensor) []T {
	r.buffer.mu.Lock()
	device := r.buffer.device
	r.buffer.mu.Unlock()
	if device == nil {
		panic("tensor: device buffer used before PrepareSpecialUse")
	}
	return typedSlice[T](r, device)
}

func typedSlice[T DType](r *RawTensor, data []byte) []T {
	if want := DataTypeOf[T](); want != r.dtype {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, want))
	}
	size := r.dtype.Size()
	n := len(data)/size - r.offset
	if n <= 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, buffer is 8-byte aligned and sized in elements
	return unsafe.Slice((*T)(unsafe.Pointer(&data[r.offset*size])), n)
}

// AsFloat32 interprets the host data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 { return HostSlice[float32](r) }

// AsFloat64 interprets the host data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 { return HostSlice[float64](r) }

// AsFloat16 interprets the host data as []float16.Float16.
func (r *RawTensor) AsFloat16() []float16.Float16 { return HostSlice[float16.Float16](r) }

// AsInt16 interprets the host data as []int16.
func (r *RawTensor) AsInt16() []int16 { return HostSlice[int16](r) }

// AsInt32 interprets the host data as []int32.
func (r *RawTensor) AsInt32() []int32 { return HostSlice[int32](r) }

// AsInt64 interprets the host data as []int64.
func (r *RawTensor) AsInt64() []int64 { return HostSlice[int64](r) }

// AsUint8 interprets the host data as []uint8.
func (r *RawTensor) AsUint8() []uint8 { return HostSlice[uint8](r) }

// AsUint16 interprets the host data as []uint16.
func (r *RawTensor) AsUint16() []uint16 { return HostSlice[uint16](r) }

// AsBool interprets the host data as []bool.
func (r *RawTensor) AsBool() []bool { return HostSlice[bool](r) }

// Clone creates a shallow copy of the RawTensor (shares buffer with reference counting).
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef() // Increment reference count
	return &RawTensor{
		buffer: r.buffer, // Share the same buffer
		info:   r.info,
		dtype:  r.dtype,
		offset: r.offset,
	}
}

// Release decrements the reference count and deallocates if it reaches 0.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// IsUnique returns true if this tensor is the only reference to the buffer.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.isUnique()
}

// PrepareSpecialUse brings the device copies of every written and read
// tensor up to date before a kernel launch. Written tensors are synced too,
// because a view may cover only part of its buffer.
func PrepareSpecialUse(writes, reads []*RawTensor) {
	for _, r := range reads {
		r.buffer.syncToDevice()
	}
	for _, w := range writes {
		w.buffer.syncToDevice()
	}
}

// RegisterSpecialUse records the effects of a kernel launch: written
// buffers now hold their latest values on the device. Host copies are
// refreshed lazily on the next host access.
func RegisterSpecialUse(writes, _ []*RawTensor) {
	for _, w := range writes {
		w.buffer.tick(deviceAhead)
	}
}
