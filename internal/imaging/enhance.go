package imaging

import (
	"image"
	"math"
	"runtime"
	"sync"
)

// Luminance weights used by the CSS saturate() matrix
const (
	lumR = 0.213
	lumG = 0.715
	lumB = 0.072
)

// ApplyFilters runs contrast, then brightness, then saturation over the RGB
// channels in place, following the CSS filter-effects formulas. Each step
// clamps to [0,255]; alpha is untouched.
func ApplyFilters(img *image.RGBA, contrast, brightness, saturation float64) {
	var lut [256]float64
	for v := range lut {
		c := clampUnit((float64(v)/255-0.5)*contrast + 0.5)
		lut[v] = clampUnit(c*brightness) * 255
	}

	s := saturation
	m := [3][3]float64{
		{lumR + (1-lumR)*s, lumG - lumG*s, lumB - lumB*s},
		{lumR - lumR*s, lumG + (1-lumG)*s, lumB - lumB*s},
		{lumR - lumR*s, lumG - lumG*s, lumB + (1-lumB)*s},
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			r, g, bl := lut[row[i]], lut[row[i+1]], lut[row[i+2]]
			row[i] = clampByte(m[0][0]*r + m[0][1]*g + m[0][2]*bl)
			row[i+1] = clampByte(m[1][0]*r + m[1][1]*g + m[1][2]*bl)
			row[i+2] = clampByte(m[2][0]*r + m[2][1]*g + m[2][2]*bl)
		}
	}
}

// Sharpen applies the 3x3 kernel [[0,-1,0],[-1,5,-1],[0,-1,0]] to the RGB
// channels of interior pixels in place. The first and last rows and columns
// are left untouched, as is alpha. Reads come from a snapshot so bands can
// run concurrently.
func Sharpen(img *image.RGBA, maxWorkers int) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width < 3 || height < 3 {
		return
	}

	src := make([]uint8, len(img.Pix))
	copy(src, img.Pix)

	interior := height - 2
	numWorkers := maxWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if interior < numWorkers {
		numWorkers = interior
	}
	rowsPerWorker := (interior + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		startY := 1 + i*rowsPerWorker
		endY := min(startY+rowsPerWorker, height-1)
		if startY >= endY {
			break
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			sharpenRows(img, src, startY, endY)
		}(startY, endY)
	}
	wg.Wait()
}

// sharpenRows processes rows [startY, endY) in image-local coordinates
func sharpenRows(img *image.RGBA, src []uint8, startY, endY int) {
	stride := img.Stride
	width := img.Bounds().Dx()
	for y := startY; y < endY; y++ {
		rowOff := y * stride
		for x := 1; x < width-1; x++ {
			off := rowOff + x*4
			for c := 0; c < 3; c++ {
				v := 5*int(src[off+c]) -
					int(src[off+c-stride]) -
					int(src[off+c+stride]) -
					int(src[off+c-4]) -
					int(src[off+c+4])
				img.Pix[off+c] = clampInt(v)
			}
		}
	}
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

func clampInt(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
