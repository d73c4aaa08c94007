package malgo

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gen2brain/malgo"
)

// ConvertToS16 converts raw capture bytes in sourceFormat to signed 16-bit
// samples, appending to dst. Trailing partial samples are ignored.
func ConvertToS16(samples []byte, sourceFormat malgo.FormatType, dst []int16) ([]int16, error) {
	bytesPerSample, name := GetFormatInfo(sourceFormat)
	if bytesPerSample == 0 {
		return dst, fmt.Errorf("unsupported source format: %s (%d)", name, sourceFormat)
	}

	count := len(samples) / bytesPerSample
	for i := range count {
		src := samples[i*bytesPerSample:]

		switch sourceFormat {
		case malgo.FormatS16:
			dst = append(dst, int16(binary.LittleEndian.Uint16(src)))

		case malgo.FormatU8:
			// 0..255 centred on 128
			dst = append(dst, int16((int32(src[0])-128)<<8))

		case malgo.FormatS24:
			val := int32(src[0]) | int32(src[1])<<8 | int32(src[2])<<16
			if val&0x800000 != 0 {
				val |= -0x1000000 // sign extend
			}
			dst = append(dst, int16(val>>8))

		case malgo.FormatS32:
			dst = append(dst, int16(int32(binary.LittleEndian.Uint32(src))>>16))

		case malgo.FormatF32:
			f := float64(math.Float32frombits(binary.LittleEndian.Uint32(src))) * 32767
			dst = append(dst, int16(math.Max(-32768, math.Min(32767, f))))
		}
	}

	return dst, nil
}

// GetFormatInfo returns the sample size and a display name for a malgo format
func GetFormatInfo(format malgo.FormatType) (bytesPerSample int, name string) {
	switch format {
	case malgo.FormatU8:
		return 1, "U8"
	case malgo.FormatS16:
		return 2, "S16"
	case malgo.FormatS24:
		return 3, "S24"
	case malgo.FormatS32:
		return 4, "S32"
	case malgo.FormatF32:
		return 4, "F32"
	default:
		return 0, "Unknown"
	}
}
