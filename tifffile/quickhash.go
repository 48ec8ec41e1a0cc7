package tifffile

import (
	"github.com/Grescilla/fastslide-sub000/binutil"
	"github.com/Grescilla/fastslide-sub000/tifftag"
)

// QuickHash reproduces aperio.cpp's GetQuickHash: SHA-256 over the raw
// (still-compressed) tile/strip bytes of the directory with the smallest
// pixel area, followed by nine directory-0 string tags in a fixed order,
// each framed as "tiff.<Name>\0" + value + "\0" (or just "\0" if absent).
// This exact framing makes the digest bit-compatible with the existing
// widely-deployed quickhash implementation it is ported from.
func (f *File) QuickHash(pyramidDirs []int) (string, error) {
	if len(pyramidDirs) == 0 {
		return "", nil
	}
	lowestDir := f.LowestResolutionDirectory(pyramidDirs)
	d := f.directories[lowestDir]

	b := binutil.NewQuickHashBuilder()

	n := len(d.TileOffsets)
	if !d.IsTiled() {
		n = len(d.StripOffsets)
	}
	for i := 0; i < n; i++ {
		raw, err := f.ReadRaw(lowestDir, i)
		if err != nil {
			return "", err
		}
		if len(raw) == 0 {
			continue
		}
		b.Write(raw)
	}

	dir0 := f.directories[0]
	for _, tag := range tifftag.QuickHashProperties {
		b.Write([]byte("tiff." + tag.String() + "\x00"))
		if v, ok := dir0.Strings[tag]; ok {
			b.Write([]byte(v))
			b.Write([]byte{0})
		} else {
			b.Write([]byte{0})
		}
	}

	return b.Finalize(), nil
}
