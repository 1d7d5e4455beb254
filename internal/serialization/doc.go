// Package serialization provides the .ndx archive format for saving and
// loading named arrays.
//
//	Format Structure:
//	  [0x00 4 bytes: Magic "NDEX"]
//	  [0x04 4 bytes: Version (uint32 LE)]
//	  [0x08 4 bytes: Flags (uint32 LE)]
//	  [0x0C 4 bytes: Reserved]
//	  [0x10 8 bytes: Header Size (uint64 LE)]
//	  [0x18 8 bytes: Data Size (uint64 LE)]
//	  [0x20 32 bytes: SHA-256 of the data section]
//	  [Header: JSON metadata]
//	  [Array data: raw little-endian bytes in row-major order, 64-byte aligned]
//
// Arrays are written in logical order whatever their strides, and read back
// as contiguous arrays.
//
// Example usage:
//
//	err := serialization.WriteFile("arrays.ndx", map[string]*tensor.RawTensor{"w": w}, nil)
//
//	archive, err := serialization.ReadFile("arrays.ndx")
//	w := archive.Arrays["w"]
package serialization
