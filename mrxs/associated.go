package mrxs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Grescilla/fastslide-sub000/binutil"
	"github.com/Grescilla/fastslide-sub000/codec"
	"github.com/Grescilla/fastslide-sub000/ferror"
)

// DataKind classifies a non-hierarchical record's payload, sniffed from its
// leading bytes.
type DataKind int

const (
	DataUnknown DataKind = iota
	DataJPEG
	DataPNG
	DataBMP
	DataXML
	DataBinary
)

const (
	printableThreshold     = 90
	textDetectionSampleLen = 100
)

// AssociatedDataNames lists every MRXS-specific non-hierarchical record by
// name: its ValueName if set, else "<layer>_<index>". This is the MRXS
// label/macro/thumbnail access path — entirely separate from the
// always-empty standard AssociatedImages()/ReadAssociatedImage(), per
// mrxs.cpp's GetAssociatedDataNames.
func (r *Reader) AssociatedDataNames() []string {
	var names []string
	for _, layer := range r.info.NonHierLayers {
		for _, rec := range layer.Records {
			if rec.ValueName != "" {
				names = append(names, rec.ValueName)
			} else {
				names = append(names, fmt.Sprintf("%s_%d", layer.Name, rec.LayerIndex))
			}
		}
	}
	return names
}

// LoadAssociatedData resolves name to its non-hierarchical record, reads
// its raw bytes, and decodes them according to their sniffed type.
// Grounded on mrxs.cpp's LoadAssociatedData/DetectDataType.
func (r *Reader) LoadAssociatedData(name string) (DataKind, []byte, error) {
	for _, layer := range r.info.NonHierLayers {
		for _, rec := range layer.Records {
			recName := rec.ValueName
			if recName == "" {
				recName = fmt.Sprintf("%s_%d", layer.Name, rec.LayerIndex)
			}
			if recName != name {
				continue
			}

			loc, err := r.index.ReadNonHierRecord(rec.RecordIndex, r.info)
			if err != nil {
				return DataUnknown, nil, err
			}

			path := filepath.Join(r.dirname, loc.DataFilePath)
			f, err := os.Open(path)
			if err != nil {
				return DataUnknown, nil, ferror.Wrap(err, "mrxs.LoadAssociatedData")
			}
			buf := make([]byte, loc.Size)
			_, readErr := f.ReadAt(buf, loc.Offset)
			f.Close()
			if readErr != nil {
				return DataUnknown, nil, ferror.Wrap(readErr, "mrxs.LoadAssociatedData")
			}

			kind := detectDataType(buf)
			if kind == DataBinary && binutil.LooksZlibCompressed(buf) {
				if inflated, err := binutil.InflateAll(buf); err == nil {
					buf = inflated
					kind = detectDataType(buf)
				}
			}
			return kind, buf, nil
		}
	}
	return DataUnknown, nil, ferror.Newf(ferror.NotFound, "mrxs: no associated data named %q", name)
}

// DecodeAssociatedImage decodes raw associated-data bytes previously
// returned by LoadAssociatedData, for kinds that are images.
func DecodeAssociatedImage(kind DataKind, data []byte) (codec.RGBImage, error) {
	switch kind {
	case DataJPEG:
		return codec.Decode(data, codec.JPEG)
	case DataPNG:
		return codec.Decode(data, codec.PNG)
	case DataBMP:
		return codec.Decode(data, codec.BMP)
	default:
		return codec.RGBImage{}, ferror.Newf(ferror.Unimplemented, "mrxs: associated data is not an image")
	}
}

// detectDataType sniffs a payload's magic bytes, falling back to a
// printable-ratio text/binary heuristic over its first 100 bytes.
// Grounded on mrxs.cpp's DetectDataType.
func detectDataType(data []byte) DataKind {
	switch {
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8:
		return DataJPEG
	case len(data) >= 4 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return DataPNG
	case len(data) >= 2 && data[0] == 0x42 && data[1] == 0x4D:
		return DataBMP
	case len(data) >= 5 && string(data[:5]) == "<?xml":
		return DataXML
	case len(data) >= 3 && data[0] == 0x78 && data[1] == 0x9C:
		return DataBinary
	}

	sampleLen := len(data)
	if sampleLen > textDetectionSampleLen {
		sampleLen = textDetectionSampleLen
	}
	printable := 0
	for _, b := range data[:sampleLen] {
		if (b >= 32 && b <= 126) || b == '\n' || b == '\r' || b == '\t' {
			printable++
		}
	}
	if printable > printableThreshold {
		return DataXML
	}
	return DataBinary
}
