// Package codec adapts compressed still-image bytes (JPEG, PNG, BMP) into
// a dense RGB8 pixel buffer, the common currency the MRXS tile executor and
// the writer package both operate on.
//
// This mirrors the contract of the original mrxs_decoder.cpp: regardless of
// source format, the result is always 3 interleaved 8-bit RGB samples per
// pixel.
package codec

import (
	"bytes"
	stdimage "image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"

	"github.com/Grescilla/fastslide-sub000/ferror"
)

// Format identifies the compressed still-image codec used to store a tile.
type Format int

const (
	JPEG Format = iota
	PNG
	BMP
)

// RGBImage is a dense, interleaved 8-bit RGB pixel buffer.
type RGBImage struct {
	Width, Height int
	// Pix holds Width*Height*3 bytes, row-major, RGB per pixel.
	Pix []byte
}

// Decode decodes compressed bytes of the given format into a dense RGB8
// image. Alpha and non-RGB color models are always flattened to RGB.
func Decode(data []byte, format Format) (RGBImage, error) {
	var img stdimage.Image
	var err error

	switch format {
	case JPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case PNG:
		img, err = png.Decode(bytes.NewReader(data))
	case BMP:
		img, err = bmp.Decode(bytes.NewReader(data))
	default:
		return RGBImage{}, ferror.Newf(ferror.Unimplemented, "codec: unsupported format %d", format)
	}
	if err != nil {
		return RGBImage{}, ferror.Wrap(err, "codec.Decode")
	}

	return toRGB8(img), nil
}

// toRGB8 flattens an arbitrary image.Image into dense interleaved RGB8,
// dropping alpha the same way the original decoder forces RGB output
// regardless of the source color model.
func toRGB8(img stdimage.Image) RGBImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := RGBImage{Width: w, Height: h, Pix: make([]byte, w*h*3)}

	for y := 0; y < h; y++ {
		row := out.Pix[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			row[x*3+0] = byte(r >> 8)
			row[x*3+1] = byte(g >> 8)
			row[x*3+2] = byte(bl >> 8)
		}
	}
	return out
}
