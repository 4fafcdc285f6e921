package filters

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// fft2D performs a 2D discrete Fourier transform over a w x h complex plane
// stored row-major. The inverse transform is unnormalized; callers divide by
// w*h once per round trip.
func fft2D(data []complex128, w, h int, inverse bool) []complex128 {
	out := make([]complex128, len(data))
	copy(out, data)

	rowFFT := fourier.NewCmplxFFT(w)
	row := make([]complex128, w)
	tmp := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(row, out[y*w:(y+1)*w])
		if inverse {
			rowFFT.Sequence(tmp, row)
		} else {
			rowFFT.Coefficients(tmp, row)
		}
		copy(out[y*w:(y+1)*w], tmp)
	}

	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	ctmp := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = out[y*w+x]
		}
		if inverse {
			colFFT.Sequence(ctmp, col)
		} else {
			colFFT.Coefficients(ctmp, col)
		}
		for y := 0; y < h; y++ {
			out[y*w+x] = ctmp[y]
		}
	}
	return out
}

// circularConvolve2D convolves a real plane with a complex kernel under
// periodic boundary conditions via the frequency domain, which is exact for
// that padding mode. The kernel is given as offsets around its center.
func circularConvolve2D(plane []float64, w, h int, kernel []complex128, rx, ry int) []complex128 {
	img := make([]complex128, w*h)
	for i, v := range plane {
		img[i] = complex(v, 0)
	}

	// Wrap the kernel so its center lands on (0, 0).
	pad := make([]complex128, w*h)
	kw := 2*rx + 1
	for dy := -ry; dy <= ry; dy++ {
		yy := ((dy % h) + h) % h
		for dx := -rx; dx <= rx; dx++ {
			xx := ((dx % w) + w) % w
			pad[yy*w+xx] += kernel[(dy+ry)*kw+(dx+rx)]
		}
	}

	fi := fft2D(img, w, h, false)
	fk := fft2D(pad, w, h, false)
	for i := range fi {
		fi[i] *= fk[i]
	}
	out := fft2D(fi, w, h, true)
	scale := complex(1/float64(w*h), 0)
	for i := range out {
		out[i] *= scale
	}
	return out
}
