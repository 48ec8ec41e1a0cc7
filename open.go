package fastslide

import (
	"path/filepath"
	"strings"

	"github.com/Grescilla/fastslide-sub000/ferror"
	"github.com/Grescilla/fastslide-sub000/registry"
)

// Open dispatches to the registered format whose extension matches path,
// per §4.2: extract extension, normalize, look up, invoke factory.
func Open(path string) (SlideReader, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, ferror.Newf(ferror.NotFound, "open %q: no file extension", path)
	}
	d, err := registry.Global().Lookup(strings.ToLower(ext))
	if err != nil {
		return nil, ferror.Wrap(err, "fastslide.Open")
	}
	v, err := d.Factory(path)
	if err != nil {
		return nil, ferror.Wrap(err, "fastslide.Open.Factory")
	}
	r, ok := v.(SlideReader)
	if !ok {
		return nil, ferror.Newf(ferror.Internal, "open %q: factory for %s did not return a SlideReader", path, d.FormatName)
	}
	return r, nil
}
