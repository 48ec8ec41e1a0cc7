package mrxs

import "testing"

func TestDetectDataType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want DataKind
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, DataJPEG},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}, DataPNG},
		{"bmp", []byte{0x42, 0x4D, 0x00, 0x00}, DataBMP},
		{"xml", []byte("<?xml version=\"1.0\"?><a/>"), DataXML},
		{"zlib", []byte{0x78, 0x9C, 0x01, 0x02}, DataBinary},
		{"binary", []byte{0x00, 0x01, 0x02, 0x03, 0x04}, DataBinary},
	}
	for _, tt := range tests {
		if got := detectDataType(tt.data); got != tt.want {
			t.Errorf("%s: detectDataType() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDetectDataTypeTextHeuristic(t *testing.T) {
	text := make([]byte, 100)
	for i := range text {
		text[i] = 'a' + byte(i%26)
	}
	if got := detectDataType(text); got != DataXML {
		t.Errorf("mostly-printable sample: detectDataType() = %v, want DataXML (text heuristic)", got)
	}

	binary := make([]byte, 100)
	for i := range binary {
		binary[i] = byte(i % 256)
	}
	if got := detectDataType(binary); got != DataBinary {
		t.Errorf("mixed binary sample: detectDataType() = %v, want DataBinary", got)
	}
}

func TestAssociatedDataNamesFallsBackToLayerIndex(t *testing.T) {
	r := &Reader{info: &SlideDataInfo{
		NonHierLayers: []NonHierarchicalLayer{
			{Name: "Scan data layer", Records: []NonHierarchicalRecord{
				{LayerIndex: 0, ValueName: "ScanDataLayer_SlideThumbnail"},
				{LayerIndex: 1, ValueName: ""},
			}},
		},
	}}
	names := r.AssociatedDataNames()
	if len(names) != 2 {
		t.Fatalf("len(names) = %d, want 2", len(names))
	}
	if names[0] != "ScanDataLayer_SlideThumbnail" {
		t.Errorf("names[0] = %q, want explicit ValueName", names[0])
	}
	if names[1] != "Scan data layer_1" {
		t.Errorf("names[1] = %q, want fallback \"<layer>_<index>\"", names[1])
	}
}
