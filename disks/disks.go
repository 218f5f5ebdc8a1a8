// Package disks maps well-known removable media geometries to a slug
// name, used by cmd/fatdump to print a recognizable media name alongside
// the raw BPB-derived geometry. Adapted from the teacher's disks/disks.go:
// same DiskGeometry shape and CSV-driven lookup, repurposed to be
// consumed directly by the dump tool rather than a formatter interface
// this repo no longer has.
package disks

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"

	fatErrors "github.com/mdbox/fatfs/errors"
)

// DiskGeometry describes one well-known floppy/removable-media format.
type DiskGeometry struct {
	Name               string `csv:"name"`
	Slug               string `csv:"slug"`
	FirstYearAvailable uint   `csv:"first_year_available"`
	FormFactor         string `csv:"form_factor"`
	IsRemovable        uint   `csv:"is_removable"`
	BitsPerAddressUnit uint   `csv:"bits_per_address_unit"`
	AddressUnitsPerSector uint `csv:"address_units_per_sector"`
	SectorsPerTrack    uint   `csv:"sectors_per_track"`
	TotalDataTracks    uint   `csv:"total_data_tracks"`
	HiddenTracks       uint   `csv:"hidden_tracks"`
	Heads              uint   `csv:"heads"`
	Notes              string `csv:"notes"`
}

// TotalSizeBytes gives the nominal capacity of the medium in bytes.
func (g *DiskGeometry) TotalSizeBytes() int64 {
	bits := int64(g.BitsPerAddressUnit * g.AddressUnitsPerSector * g.SectorsPerTrack *
		g.TotalDataTracks * g.Heads)
	if bits%8 == 0 {
		return bits / 8
	}
	return bits/8 + 1
}

//go:embed disk-geometries.csv
var diskGeometriesRawCSV string

var diskGeometries map[string]DiskGeometry

func init() {
	diskGeometries = make(map[string]DiskGeometry)
	err := gocsv.UnmarshalToCallback(
		strings.NewReader(diskGeometriesRawCSV),
		func(row DiskGeometry) error {
			if _, exists := diskGeometries[row.Slug]; exists {
				return fmt.Errorf("duplicate definition for disk %q", row.Slug)
			}
			diskGeometries[row.Slug] = row
			return nil
		},
	)
	if err != nil {
		panic(err)
	}
}

// GetPredefinedDiskGeometry looks up a well-known medium by slug.
func GetPredefinedDiskGeometry(slug string) (DiskGeometry, error) {
	geometry, ok := diskGeometries[slug]
	if !ok {
		return DiskGeometry{}, fatErrors.ErrNotFound.WithMessage(fmt.Sprintf("no predefined disk geometry %q", slug))
	}
	return geometry, nil
}

// IdentifyBySize returns the slug of any predefined geometry whose nominal
// size matches totalBytes exactly, used by fatdump to annotate a volume's
// reported size with a recognizable name.
func IdentifyBySize(totalBytes int64) (string, bool) {
	for slug, g := range diskGeometries {
		if g.TotalSizeBytes() == totalBytes {
			return slug, true
		}
	}
	return "", false
}
