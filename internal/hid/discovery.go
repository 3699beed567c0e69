package hid

import (
	"cmp"
	"slices"

	"github.com/karalabe/hid"
)

// DeviceInfo describes an enumerated HID interface
type DeviceInfo struct {
	VendorID     uint16
	ProductID    uint16
	Path         string
	Manufacturer string
	Product      string
	SerialNumber string
	UsagePage    uint16
	Usage        uint16
}

// Key packs the vendor and product IDs into one value
func (d DeviceInfo) Key() uint32 {
	return uint32(d.VendorID)<<16 | uint32(d.ProductID)
}

// ListDevices enumerates every HID interface on the system
func ListDevices() ([]DeviceInfo, error) {
	if !hid.Supported() {
		return nil, ErrUnsupported
	}
	infos := hid.Enumerate(0, 0)

	result := make([]DeviceInfo, len(infos))
	for i, d := range infos {
		result[i] = DeviceInfo{
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Path:         d.Path,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
			SerialNumber: d.Serial,
			UsagePage:    d.UsagePage,
			Usage:        d.Usage,
		}
	}
	return result, nil
}

// Candidates reduces an enumeration to one entry per vendor/product pair,
// dropping interfaces without IDs. The result is sorted by manufacturer and
// product name.
func Candidates(devices []DeviceInfo) []DeviceInfo {
	seen := make(map[uint32]bool, len(devices))
	var out []DeviceInfo
	for _, d := range devices {
		if d.VendorID == 0 && d.ProductID == 0 {
			continue
		}
		if seen[d.Key()] {
			continue
		}
		seen[d.Key()] = true
		out = append(out, d)
	}

	slices.SortStableFunc(out, func(a, b DeviceInfo) int {
		return cmp.Or(
			cmp.Compare(a.Manufacturer, b.Manufacturer),
			cmp.Compare(a.Product, b.Product),
			cmp.Compare(a.Key(), b.Key()),
		)
	})
	return out
}
