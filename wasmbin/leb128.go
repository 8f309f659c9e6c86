package wasmbin

import "github.com/wippyai/function-harness/errors"

// readU32 decodes an unsigned LEB128 value of at most 32 bits starting
// at off, returning the value and the offset past it.
func readU32(b []byte, off int) (uint32, int, error) {
	var result uint32
	var shift uint
	for {
		if off >= len(b) {
			return 0, off, errors.InvalidModule("truncated leb128", nil)
		}
		c := b[off]
		off++
		result |= uint32(c&0x7F) << shift
		if c&0x80 == 0 {
			return result, off, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, off, errors.InvalidModule("leb128 overflows u32", nil)
		}
	}
}

// readS33 decodes a signed 33-bit LEB128, used for block types.
func readS33(b []byte, off int) (int64, int, error) {
	return readSigned(b, off, 33)
}

// readS32 decodes a signed 32-bit LEB128.
func readS32(b []byte, off int) (int32, int, error) {
	v, off, err := readSigned(b, off, 32)
	return int32(v), off, err
}

// readS64 decodes a signed 64-bit LEB128.
func readS64(b []byte, off int) (int64, int, error) {
	return readSigned(b, off, 64)
}

func readSigned(b []byte, off int, bits uint) (int64, int, error) {
	var result int64
	var shift uint
	for {
		if off >= len(b) {
			return 0, off, errors.InvalidModule("truncated leb128", nil)
		}
		c := b[off]
		off++
		result |= int64(c&0x7F) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 64 && c&0x40 != 0 {
				result |= -1 << shift
			}
			return result, off, nil
		}
		if shift > bits {
			return 0, off, errors.InvalidModule("leb128 overflows signed width", nil)
		}
	}
}

// appendU32 appends the unsigned LEB128 encoding of v.
func appendU32(dst []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		dst = append(dst, c)
		if v == 0 {
			return dst
		}
	}
}

// appendS64 appends the signed LEB128 encoding of v. Signed 32-bit and
// 33-bit values share this encoding after sign extension.
func appendS64(dst []byte, v int64) []byte {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(dst, c)
		}
		dst = append(dst, c|0x80)
	}
}

// appendS32 appends the signed LEB128 encoding of a 32-bit value.
func appendS32(dst []byte, v int32) []byte {
	return appendS64(dst, int64(v))
}
