package mrxs

import (
	"strings"

	"github.com/Grescilla/fastslide-sub000/codec"
	"github.com/Grescilla/fastslide-sub000/ferror"
)

// decodeMrxsImage dispatches raw stored-tile bytes to the shared codec
// package based on the zoom level's IMAGE_FORMAT string. Thin wrapper: the
// actual JPEG/PNG/BMP decoding is entirely covered by codec.Decode, which
// already flattens every format to dense RGB8.
func decodeMrxsImage(data []byte, format string) (codec.RGBImage, error) {
	switch strings.ToUpper(format) {
	case "JPEG", "JPG":
		return codec.Decode(data, codec.JPEG)
	case "PNG":
		return codec.Decode(data, codec.PNG)
	case "BMP":
		return codec.Decode(data, codec.BMP)
	default:
		return codec.RGBImage{}, ferror.Newf(ferror.Unimplemented, "mrxs: unsupported image format %q", format)
	}
}
