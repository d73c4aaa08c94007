package spectrum

import "math"

// BandRange is the half-open FFT bin range [Lo, Hi) of one output band.
// LowHz and HighHz are the outer edges of those bins, so a frequency in
// [LowHz, HighHz) lands in the band.
type BandRange struct {
	Lo, Hi int
	LowHz  float64
	HighHz float64
}

// Contains reports whether bin falls inside the band.
func (b BandRange) Contains(bin int) bool {
	return bin >= b.Lo && bin < b.Hi
}

// logBands splits bins 1..windowSize/2 into n log-spaced bands between minHz
// and maxHz. Every band gets at least one bin, so n must not exceed
// windowSize/2. The DC bin is never used.
func logBands(n, windowSize, sampleRate int, minHz, maxHz float64) []BandRange {
	binHz := float64(sampleRate) / float64(windowSize)
	lastBin := windowSize / 2
	maxHz = math.Min(maxHz, float64(sampleRate)/2)

	edges := make([]int, n+1)
	ratio := maxHz / minHz
	for i := 0; i <= n; i++ {
		hz := minHz * math.Pow(ratio, float64(i)/float64(n))
		edges[i] = int(math.Round(hz / binHz))
	}
	edges[n]++ // include the bin at maxHz

	// Forward pass: strictly increasing, never the DC bin
	edges[0] = max(edges[0], 1)
	for i := 1; i <= n; i++ {
		edges[i] = max(edges[i], edges[i-1]+1)
	}

	// Backward pass: stay inside the spectrum
	edges[n] = min(edges[n], lastBin+1)
	for i := n - 1; i >= 0; i-- {
		edges[i] = min(edges[i], edges[i+1]-1)
	}

	// bin k is centred on k*binHz and spans half a bin either side
	nyquist := float64(sampleRate) / 2
	bands := make([]BandRange, n)
	for i := range bands {
		bands[i] = BandRange{
			Lo:     edges[i],
			Hi:     edges[i+1],
			LowHz:  (float64(edges[i]) - 0.5) * binHz,
			HighHz: math.Min((float64(edges[i+1])-0.5)*binHz, nyquist),
		}
	}
	return bands
}
