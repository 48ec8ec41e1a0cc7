// Package allformats registers every built-in slide format with the
// global registry as a side effect of being imported, the same
// blank-import-to-register idiom the teacher module uses for
// image.RegisterFormat.
//
//	import _ "github.com/Grescilla/fastslide-sub000/allformats"
package allformats

import (
	_ "github.com/Grescilla/fastslide-sub000/aperio"
	_ "github.com/Grescilla/fastslide-sub000/mrxs"
)
