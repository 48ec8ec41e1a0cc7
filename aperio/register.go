package aperio

import "github.com/Grescilla/fastslide-sub000/registry"

func init() {
	registry.Global().Register(registry.FormatDescriptor{
		PrimaryExtension: ".svs",
		Aliases:          []string{".tif", ".tiff"},
		FormatName:       "aperio",
		Capabilities: registry.SupportsReadRegion | registry.MultiChannel |
			registry.AssociatedImages | registry.QuickHash,
		Factory: func(path string) (any, error) { return Open(path, nil) },
	})
}
