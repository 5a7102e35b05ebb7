package audio

// resampler converts a mono 16-bit sample stream between rates using
// Catmull-Rom interpolation. The pending input tail and the fractional
// read position persist across calls, so feeding a stream chunk by
// chunk produces the same output as feeding it whole.
type resampler struct {
	ratio float64 // source samples per output sample
	buf   []float64
	pos   float64 // next output position within buf, in source samples
}

func newResampler(inRate, outRate int) *resampler {
	return &resampler{
		ratio: float64(inRate) / float64(outRate),
	}
}

// process appends in to the pending input and returns every output
// sample that is now computable. Interpolation needs one sample of
// context on each side, so up to three input samples stay pending
// until the next call or a final flush.
func (r *resampler) process(in []int16) []int16 {
	for _, s := range in {
		r.buf = append(r.buf, float64(s))
	}

	var out []int16
	for {
		j := int(r.pos)
		if j+2 >= len(r.buf) {
			break
		}

		y0 := r.buf[j]
		if j > 0 {
			y0 = r.buf[j-1]
		}
		y1, y2, y3 := r.buf[j], r.buf[j+1], r.buf[j+2]

		v := catmullRom(y0, y1, y2, y3, r.pos-float64(j))
		out = append(out, clampInt16(v))
		r.pos += r.ratio
	}

	// Drop consumed input, keeping one sample of history before the
	// current read position.
	if keep := int(r.pos) - 1; keep > 0 {
		if keep > len(r.buf) {
			keep = len(r.buf)
		}
		r.buf = append(r.buf[:0], r.buf[keep:]...)
		r.pos -= float64(keep)
	}

	return out
}

// flush drains output for the pending input tail by duplicating the
// trailing edge sample, mirroring how the leading edge is primed.
func (r *resampler) flush() []int16 {
	var out []int16
	for {
		j := int(r.pos)
		if j+1 >= len(r.buf) {
			break
		}

		y0 := r.buf[j]
		if j > 0 {
			y0 = r.buf[j-1]
		}
		y1, y2 := r.buf[j], r.buf[j+1]
		y3 := y2

		v := catmullRom(y0, y1, y2, y3, r.pos-float64(j))
		out = append(out, clampInt16(v))
		r.pos += r.ratio
	}

	r.buf = r.buf[:0]
	r.pos = 0
	return out
}

// catmullRom interpolates between y1 and y2 at fractional position x
// (0 <= x <= 1) using a Catmull-Rom spline over the four surrounding
// samples.
func catmullRom(y0, y1, y2, y3, x float64) float64 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}

func clampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
