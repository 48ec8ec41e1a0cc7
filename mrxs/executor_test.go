package mrxs

import (
	"testing"

	fastslide "github.com/Grescilla/fastslide-sub000"
)

func TestToWriterOpCarriesBlendMetadata(t *testing.T) {
	op := fastslide.TileReadOp{
		Source: fastslide.Rect{X: 3, Y: 4, Width: 10, Height: 12},
		Dest:   fastslide.Rect{X: 1, Y: 2, Width: 10, Height: 12},
		Blend: &fastslide.BlendMetadata{
			FractionalX: 0.25, FractionalY: 0.75, Weight: 1, Gain: 0.9, SubpixelResample: true,
		},
	}
	w := toWriterOp(op)
	if w.SrcX != 3 || w.SrcY != 4 {
		t.Errorf("SrcX/SrcY = %d/%d, want 3/4", w.SrcX, w.SrcY)
	}
	if w.DestX != 1 || w.DestY != 2 || w.DestW != 10 || w.DestH != 12 {
		t.Errorf("dest rect = %+v, want X=1 Y=2 W=10 H=12", w)
	}
	if w.Blend == nil || w.Blend.Gain != 0.9 || w.Blend.FractionalX != 0.25 {
		t.Errorf("Blend = %+v, want Gain=0.9 FractionalX=0.25", w.Blend)
	}
}

func TestToWriterOpNilBlend(t *testing.T) {
	op := fastslide.TileReadOp{Dest: fastslide.Rect{Width: 5, Height: 5}}
	w := toWriterOp(op)
	if w.Blend != nil {
		t.Errorf("Blend = %+v, want nil when op.Blend is nil", w.Blend)
	}
}
