package wavfile

import (
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/audioviz/internal/errors"
)

// WriteTone writes a 16-bit sine wave to path. Every channel carries the same
// signal.
func WriteTone(path string, sampleRate int, frequency, amplitude float64, duration time.Duration, channels int) error {
	if sampleRate <= 0 || channels <= 0 || duration <= 0 {
		return errors.Newf("invalid tone parameters: rate=%d channels=%d duration=%s", sampleRate, channels, duration).
			Component(componentWAV).
			Category(errors.CategoryValidation).
			Build()
	}

	frames := int(duration.Seconds() * float64(sampleRate))
	data := make([]int, frames*channels)
	scale := math.Max(0, math.Min(1, amplitude)) * 32767
	for i := range frames {
		v := int(math.Round(scale * math.Sin(2*math.Pi*frequency*float64(i)/float64(sampleRate))))
		for c := range channels {
			data[i*channels+c] = v
		}
	}

	return writePCM16(path, sampleRate, channels, data)
}

func writePCM16(path string, sampleRate, channels int, data []int) error {
	outFile, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component(componentWAV).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Context("operation", "create_file").
			Build()
	}
	defer outFile.Close()

	enc := wav.NewEncoder(outFile, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return errors.New(err).
			Component(componentWAV).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Context("operation", "encode_wav").
			Build()
	}

	if err := enc.Close(); err != nil {
		return errors.New(err).
			Component(componentWAV).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Context("operation", "finalize_wav").
			Build()
	}
	return nil
}
