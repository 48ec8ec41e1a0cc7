package mrxs

import "github.com/Grescilla/fastslide-sub000/registry"

func init() {
	registry.Global().Register(registry.FormatDescriptor{
		PrimaryExtension: ".mrxs",
		FormatName:       "mrxs",
		Capabilities: registry.SupportsReadRegion | registry.OverlappingTiles |
			registry.MultiChannel | registry.QuickHash,
		Factory: func(path string) (any, error) { return Open(path, nil) },
	})
}
