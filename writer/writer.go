// Package writer implements the tile accumulator that composes individual
// TileReadOp pixel contributions into one dense output image, either by
// plain overwrite (TIFF, non-overlapping ops) or weighted blend (MRXS,
// overlapping sub-pixel-positioned tiles).
package writer

import (
	"sync"

	"github.com/Grescilla/fastslide-sub000/ferror"
)

// Strategy selects how WriteTile combines a tile's pixels with whatever is
// already accumulated at the same destination pixels.
type Strategy int

const (
	// Overwrite copies source pixels directly into dest. Used by formats
	// whose ops never overlap (Aperio/TIFF).
	Overwrite Strategy = iota
	// WeightedBlend accumulates a running weighted sum/weight pair per
	// pixel, resolved to an average in Finalize. Used by MRXS.
	WeightedBlend
)

// Background is the fill color used where no tile ever wrote a pixel.
type Background struct {
	R, G, B uint8
}

// BlendMetadata mirrors fastslide.BlendMetadata without importing the root
// package (writer is a leaf dependency of it).
type BlendMetadata struct {
	FractionalX, FractionalY float64
	Weight                   float64
	Gain                     float32
	SubpixelResample         bool
}

// Op is the subset of a TileReadOp the writer needs: the source crop
// origin within the decoded tile, dest placement, and optional blend
// metadata.
type Op struct {
	SrcX, SrcY                 uint32
	DestX, DestY, DestW, DestH uint32
	Blend                      *BlendMetadata
}

// TileWriter is a width*height*channels uint8 accumulator.
type TileWriter struct {
	width, height, channels uint32
	background              Background
	strategy                Strategy

	// overwrite buffer
	pix []byte

	// weighted-blend accumulators, one float64 per (pixel, channel).
	sum    []float64
	weight []float64
}

// New creates a writer sized to (width, height, channels) using strategy.
func New(width, height, channels uint32, bg Background, strategy Strategy) *TileWriter {
	w := &TileWriter{width: width, height: height, channels: channels, background: bg, strategy: strategy}
	n := int(width) * int(height) * int(channels)
	switch strategy {
	case WeightedBlend:
		w.sum = make([]float64, n)
		w.weight = make([]float64, int(width)*int(height))
	default:
		w.pix = make([]byte, n)
		for i := 0; i+int(channels) <= n; i += int(channels) {
			w.pix[i+0] = bg.R
			if channels > 1 {
				w.pix[i+1] = bg.G
			}
			if channels > 2 {
				w.pix[i+2] = bg.B
			}
		}
	}
	return w
}

// FillWithColor paints the entire accumulator as a single uniform
// contribution so that Finalize returns that color everywhere, used when a
// plan has no operations (region entirely off-slide).
func (w *TileWriter) FillWithColor(r, g, b uint8) error {
	switch w.strategy {
	case WeightedBlend:
		for p := 0; p < int(w.width)*int(w.height); p++ {
			w.weight[p] = 1
			base := p * int(w.channels)
			if w.channels > 0 {
				w.sum[base+0] = float64(r)
			}
			if w.channels > 1 {
				w.sum[base+1] = float64(g)
			}
			if w.channels > 2 {
				w.sum[base+2] = float64(b)
			}
		}
	default:
		n := len(w.pix)
		for i := 0; i+int(w.channels) <= n; i += int(w.channels) {
			w.pix[i+0] = r
			if w.channels > 1 {
				w.pix[i+1] = g
			}
			if w.channels > 2 {
				w.pix[i+2] = b
			}
		}
	}
	return nil
}

// WriteTile deposits the DestW x DestH sub-rectangle of src starting at
// (op.SrcX, op.SrcY) into op's destination rectangle, under mu for the
// duration of the pixel deposit. src is tileW x tileH x channels bytes,
// Contig layout, and may be larger than the region actually used.
func (w *TileWriter) WriteTile(op Op, src []byte, tileW, tileH, channels int, mu *sync.Mutex) error {
	mu.Lock()
	defer mu.Unlock()

	destW := min32(op.DestW, w.width-op.DestX)
	destH := min32(op.DestH, w.height-op.DestY)

	if tileW <= 0 || tileH <= 0 || channels <= 0 ||
		op.SrcX+destW > uint32(tileW) || op.SrcY+destH > uint32(tileH) ||
		len(src) < tileW*tileH*channels {
		return ferror.Newf(ferror.InvalidArgument,
			"writer: tile buffer too small for op (tileW=%d tileH=%d channels=%d srcLen=%d srcX=%d srcY=%d destW=%d destH=%d)",
			tileW, tileH, channels, len(src), op.SrcX, op.SrcY, destW, destH)
	}

	switch w.strategy {
	case Overwrite:
		for y := uint32(0); y < destH; y++ {
			srcOff := (int(op.SrcY+y)*tileW + int(op.SrcX)) * channels
			srcRow := src[srcOff : srcOff+int(destW)*channels]
			dstOff := (int(op.DestY+y)*int(w.width) + int(op.DestX)) * int(w.channels)
			copy(w.pix[dstOff:dstOff+int(destW)*int(w.channels)], srcRow)
		}
	case WeightedBlend:
		gain := float64(1.0)
		weight := 1.0
		if op.Blend != nil {
			if op.Blend.Gain != 0 {
				gain = float64(op.Blend.Gain)
			}
			if op.Blend.Weight != 0 {
				weight = op.Blend.Weight
			}
		}
		resample := op.Blend != nil && op.Blend.SubpixelResample &&
			(op.Blend.FractionalX != 0 || op.Blend.FractionalY != 0)

		for y := uint32(0); y < destH; y++ {
			for x := uint32(0); x < destW; x++ {
				var r, g, b float64
				if resample {
					r, g, b = sampleBilinear(src, tileW, tileH, channels, op.SrcX+x, op.SrcY+y, op.Blend.FractionalX, op.Blend.FractionalY)
				} else {
					off := (int(op.SrcY+y)*tileW + int(op.SrcX+x)) * channels
					r = float64(src[off+0])
					if channels > 1 {
						g = float64(src[off+1])
					}
					if channels > 2 {
						b = float64(src[off+2])
					}
				}
				r *= gain
				g *= gain
				b *= gain

				p := int(op.DestY+y)*int(w.width) + int(op.DestX+x)
				base := p * int(w.channels)
				w.sum[base+0] += r * weight
				if w.channels > 1 {
					w.sum[base+1] += g * weight
				}
				if w.channels > 2 {
					w.sum[base+2] += b * weight
				}
				w.weight[p] += weight
			}
		}
	}
	return nil
}

// sampleBilinear applies a 2-tap separable bilinear kernel to pre-shift the
// source by (fracX, fracY) before the pixel at (x, y) is read. Chosen over
// a full Magic Kernel per DESIGN.md Open Question 2: total weight 1,
// 2x2-tap support, no extra border pixels required.
func sampleBilinear(src []byte, tileW, tileH, channels int, x, y uint32, fracX, fracY float64) (r, g, b float64) {
	x0, y0 := int(x), int(y)
	x1, y1 := x0+1, y0+1
	if x1 >= tileW {
		x1 = tileW - 1
	}
	if y1 >= tileH {
		y1 = tileH - 1
	}
	w00 := (1 - fracX) * (1 - fracY)
	w10 := fracX * (1 - fracY)
	w01 := (1 - fracX) * fracY
	w11 := fracX * fracY

	at := func(xx, yy int) (float64, float64, float64) {
		off := (yy*tileW + xx) * channels
		rr := float64(src[off+0])
		var gg, bb float64
		if channels > 1 {
			gg = float64(src[off+1])
		}
		if channels > 2 {
			bb = float64(src[off+2])
		}
		return rr, gg, bb
	}

	r00, g00, b00 := at(x0, y0)
	r10, g10, b10 := at(x1, y0)
	r01, g01, b01 := at(x0, y1)
	r11, g11, b11 := at(x1, y1)

	r = r00*w00 + r10*w10 + r01*w01 + r11*w11
	g = g00*w00 + g10*w10 + g01*w01 + g11*w11
	b = b00*w00 + b10*w10 + b01*w01 + b11*w11
	return
}

// Finalize resolves the accumulator into a dense Contig RGB image. For
// WeightedBlend, sum is divided by weight per pixel; pixels with zero
// weight fall back to the background color.
func (w *TileWriter) Finalize() []byte {
	if w.strategy == Overwrite {
		return w.pix
	}
	out := make([]byte, len(w.sum))
	for p := 0; p < int(w.width)*int(w.height); p++ {
		base := p * int(w.channels)
		wt := w.weight[p]
		if wt == 0 {
			out[base+0] = w.background.R
			if w.channels > 1 {
				out[base+1] = w.background.G
			}
			if w.channels > 2 {
				out[base+2] = w.background.B
			}
			continue
		}
		out[base+0] = clamp8(w.sum[base+0] / wt)
		if w.channels > 1 {
			out[base+1] = clamp8(w.sum[base+1] / wt)
		}
		if w.channels > 2 {
			out[base+2] = clamp8(w.sum[base+2] / wt)
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
