// Package canvas implements the packed canvas encoding.
//
// Colors are 4-bit palette indices stored two per byte in row-major order
// (index = y*W + x). Even indices occupy the high nibble, odd indices the low
// nibble, which matches the bit order Redis uses for BITFIELD u4 at offset
// index*4. The in-memory store is used for local development and tests.
package canvas
