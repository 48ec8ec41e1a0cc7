// Command fastslide-info opens a whole-slide image and prints its
// properties, pyramid levels, and quickhash to stdout.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	fastslide "github.com/Grescilla/fastslide-sub000"
	_ "github.com/Grescilla/fastslide-sub000/allformats"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <slide-path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := flag.Arg(0)
	slide, err := fastslide.Open(path)
	if err != nil {
		log.Fatalf("fastslide-info: %v", err)
	}
	defer slide.Close()

	props := slide.Properties()
	fmt.Printf("path:        %s\n", path)
	fmt.Printf("scanner:     %s\n", props.ScannerModel)
	fmt.Printf("objective:   %gx\n", props.ObjectiveMagnification)
	fmt.Printf("mpp:         %g x %g\n", props.MPPX, props.MPPY)
	if props.Bounds.Valid {
		fmt.Printf("bounds:      %d,%d %dx%d\n", props.Bounds.X, props.Bounds.Y, props.Bounds.Width, props.Bounds.Height)
	} else {
		fmt.Printf("bounds:      (none)\n")
	}

	fmt.Printf("levels:      %d\n", slide.LevelCount())
	for lvl := int32(0); lvl < slide.LevelCount(); lvl++ {
		li, err := slide.LevelInfo(lvl)
		if err != nil {
			log.Fatalf("fastslide-info: level %d: %v", lvl, err)
		}
		fmt.Printf("  level %2d: %5dx%-5d  downsample %.2fx\n", lvl, li.Dimensions.Width, li.Dimensions.Height, li.DownsampleFactor)
	}

	hash, err := slide.QuickHash()
	if err != nil {
		log.Fatalf("fastslide-info: quickhash: %v", err)
	}
	fmt.Printf("quickhash:   %s\n", hash)

	names, err := slide.AssociatedImages()
	if err != nil {
		log.Fatalf("fastslide-info: associated images: %v", err)
	}
	if len(names) > 0 {
		fmt.Printf("associated:  %v\n", names)
	}
}
