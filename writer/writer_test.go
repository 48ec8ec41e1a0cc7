package writer

import (
	"sync"
	"testing"
)

func TestNewFillsBackgroundForOverwrite(t *testing.T) {
	w := New(2, 2, 3, Background{R: 10, G: 20, B: 30}, Overwrite)
	pix := w.Finalize()
	if len(pix) != 2*2*3 {
		t.Fatalf("len(pix) = %d, want 12", len(pix))
	}
	for p := 0; p < 4; p++ {
		base := p * 3
		if pix[base] != 10 || pix[base+1] != 20 || pix[base+2] != 30 {
			t.Errorf("pixel %d = %v, want background (10,20,30)", p, pix[base:base+3])
		}
	}
}

func TestNewFillsBackgroundSingleChannel(t *testing.T) {
	w := New(3, 1, 1, Background{R: 77}, Overwrite)
	pix := w.Finalize()
	if len(pix) != 3 {
		t.Fatalf("len(pix) = %d, want 3", len(pix))
	}
	for i, v := range pix {
		if v != 77 {
			t.Errorf("pix[%d] = %d, want 77 (last pixel must not be left at 0)", i, v)
		}
	}
}

func TestWriteTileOverwriteCopiesSubregion(t *testing.T) {
	w := New(4, 4, 3, Background{}, Overwrite)
	var mu sync.Mutex

	// 6x6 source tile, solid color (200, 100, 50), write a 2x2 crop
	// starting at (1,1) into dest (1,1).
	src := make([]byte, 6*6*3)
	for i := 0; i < 6*6; i++ {
		src[i*3+0] = 200
		src[i*3+1] = 100
		src[i*3+2] = 50
	}
	op := Op{SrcX: 1, SrcY: 1, DestX: 1, DestY: 1, DestW: 2, DestH: 2}
	if err := w.WriteTile(op, src, 6, 6, 3, &mu); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}

	pix := w.Finalize()
	destOff := (1*4 + 1) * 3
	if pix[destOff] != 200 || pix[destOff+1] != 100 || pix[destOff+2] != 50 {
		t.Errorf("dest pixel = %v, want (200,100,50)", pix[destOff:destOff+3])
	}
	// A pixel outside the write region should remain background.
	if pix[0] != 0 || pix[1] != 0 || pix[2] != 0 {
		t.Errorf("untouched pixel = %v, want background (0,0,0)", pix[0:3])
	}
}

func TestWriteTileRejectsUndersizedSource(t *testing.T) {
	w := New(4, 4, 3, Background{}, Overwrite)
	var mu sync.Mutex

	// Claims a 4x4 tile but only supplies bytes for 2x2 — a truncated
	// decode. WriteTile must error, not slice out of range.
	src := make([]byte, 2*2*3)
	op := Op{SrcX: 0, SrcY: 0, DestX: 0, DestY: 0, DestW: 4, DestH: 4}
	if err := w.WriteTile(op, src, 4, 4, 3, &mu); err == nil {
		t.Error("WriteTile succeeded with an undersized source buffer, want error")
	}
}

func TestWriteTileRejectsSrcOffsetPastTileBounds(t *testing.T) {
	w := New(4, 4, 3, Background{}, Overwrite)
	var mu sync.Mutex

	src := make([]byte, 4*4*3)
	op := Op{SrcX: 3, SrcY: 3, DestX: 0, DestY: 0, DestW: 4, DestH: 4}
	if err := w.WriteTile(op, src, 4, 4, 3, &mu); err == nil {
		t.Error("WriteTile succeeded with SrcX/SrcY+dest exceeding tile bounds, want error")
	}
}

func TestWeightedBlendAveragesOverlappingContributions(t *testing.T) {
	w := New(2, 2, 3, Background{}, WeightedBlend)
	var mu sync.Mutex

	src1 := make([]byte, 2*2*3)
	src2 := make([]byte, 2*2*3)
	for i := 0; i < 4; i++ {
		src1[i*3+0] = 100
		src2[i*3+0] = 200
	}

	op := Op{SrcX: 0, SrcY: 0, DestX: 0, DestY: 0, DestW: 2, DestH: 2}
	if err := w.WriteTile(op, src1, 2, 2, 3, &mu); err != nil {
		t.Fatalf("WriteTile src1: %v", err)
	}
	if err := w.WriteTile(op, src2, 2, 2, 3, &mu); err != nil {
		t.Fatalf("WriteTile src2: %v", err)
	}

	pix := w.Finalize()
	want := uint8(150) // (100+200)/2
	if pix[0] != want {
		t.Errorf("blended pixel R = %d, want %d", pix[0], want)
	}
}

func TestWeightedBlendZeroWeightFallsBackToBackground(t *testing.T) {
	w := New(2, 2, 3, Background{R: 9, G: 8, B: 7}, WeightedBlend)
	// No WriteTile call at all: every pixel's weight stays zero.
	pix := w.Finalize()
	for p := 0; p < 4; p++ {
		base := p * 3
		if pix[base] != 9 || pix[base+1] != 8 || pix[base+2] != 7 {
			t.Errorf("pixel %d = %v, want background (9,8,7)", p, pix[base:base+3])
		}
	}
}

func TestWeightedBlendAppliesGain(t *testing.T) {
	w := New(1, 1, 3, Background{}, WeightedBlend)
	var mu sync.Mutex

	src := []byte{100, 100, 100}
	op := Op{DestW: 1, DestH: 1, Blend: &BlendMetadata{Gain: 2.0}}
	if err := w.WriteTile(op, src, 1, 1, 3, &mu); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}

	pix := w.Finalize()
	if pix[0] != 200 {
		t.Errorf("gained pixel R = %d, want 200 (clamped 100*2)", pix[0])
	}
}

func TestWeightedBlendClampsOverflow(t *testing.T) {
	w := New(1, 1, 3, Background{}, WeightedBlend)
	var mu sync.Mutex

	src := []byte{255, 255, 255}
	op := Op{DestW: 1, DestH: 1, Blend: &BlendMetadata{Gain: 3.0}}
	if err := w.WriteTile(op, src, 1, 1, 3, &mu); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}

	pix := w.Finalize()
	if pix[0] != 255 {
		t.Errorf("overflowing pixel R = %d, want clamped to 255", pix[0])
	}
}

func TestFillWithColorOverwrite(t *testing.T) {
	w := New(2, 2, 3, Background{}, Overwrite)
	if err := w.FillWithColor(1, 2, 3); err != nil {
		t.Fatalf("FillWithColor: %v", err)
	}
	pix := w.Finalize()
	for p := 0; p < 4; p++ {
		base := p * 3
		if pix[base] != 1 || pix[base+1] != 2 || pix[base+2] != 3 {
			t.Errorf("pixel %d = %v, want (1,2,3)", p, pix[base:base+3])
		}
	}
}

func TestFillWithColorWeightedBlend(t *testing.T) {
	w := New(2, 2, 3, Background{}, WeightedBlend)
	if err := w.FillWithColor(4, 5, 6); err != nil {
		t.Fatalf("FillWithColor: %v", err)
	}
	pix := w.Finalize()
	for p := 0; p < 4; p++ {
		base := p * 3
		if pix[base] != 4 || pix[base+1] != 5 || pix[base+2] != 6 {
			t.Errorf("pixel %d = %v, want (4,5,6)", p, pix[base:base+3])
		}
	}
}
