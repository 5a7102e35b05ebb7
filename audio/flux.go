package audio

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// MedianFlux is an alternative squelch statistic measuring spectral
// change rather than energy. It computes the magnitude spectrum of each
// 16-bit chunk in the window, sums the positive deltas between
// consecutive spectra, and takes the median of those flux values.
// Useful when background noise is loud but steady, where RMS alone
// would sit above any workable threshold.
func MedianFlux(chunks []Chunk) float64 {
	if len(chunks) < 2 {
		return 0
	}

	spectra := make([][]float64, len(chunks))
	for i, c := range chunks {
		spectra[i] = magnitudeSpectrum(c)
	}

	fluxes := make([]float64, 0, len(chunks)-1)
	for i := 1; i < len(spectra); i++ {
		fluxes = append(fluxes, spectralFlux(spectra[i-1], spectra[i]))
	}
	return median(fluxes)
}

func magnitudeSpectrum(c Chunk) []float64 {
	samples := BytesToInt16(c.Audio)
	in := make([]float64, len(samples))
	for i, s := range samples {
		in[i] = float64(s)
	}

	spectrum := fft.FFTReal(in)
	mags := make([]float64, len(spectrum)/2+1)
	for i := range mags {
		mags[i] = math.Hypot(real(spectrum[i]), imag(spectrum[i]))
	}
	return mags
}

// spectralFlux sums the positive magnitude deltas between two spectra.
// Negative deltas are ignored so onsets register, decays do not.
func spectralFlux(prev, cur []float64) float64 {
	n := len(prev)
	if len(cur) < n {
		n = len(cur)
	}

	var flux float64
	for i := 0; i < n; i++ {
		if d := cur[i] - prev[i]; d > 0 {
			flux += d
		}
	}
	return flux
}
