package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// DeviceInfo contains information about a HID device for display
type DeviceInfo struct {
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
}

func (d DeviceInfo) id() string {
	return fmt.Sprintf("0x%04X:0x%04X", d.VendorID, d.ProductID)
}

// SelectDevice asks the user to pick a device. It returns nil if the user
// cancelled.
func SelectDevice(devices []DeviceInfo) (*DeviceInfo, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices to select from")
	}

	options := make([]huh.Option[int], len(devices))
	for i, d := range devices {
		label := fmt.Sprintf("%s  %s", DeviceIDStyle.Render(d.id()), formatDeviceName(d))
		options[i] = huh.NewOption(label, i)
	}

	var selected int
	ok, err := runSelect("Select HID Device", "Choose the macropad to use (esc to cancel)", options, &selected)
	if err != nil || !ok {
		return nil, err
	}
	return &devices[selected], nil
}

// formatDeviceName joins manufacturer and product
func formatDeviceName(d DeviceInfo) string {
	name := d.Product
	if name == "" {
		name = "Unknown Device"
	}
	if d.Manufacturer != "" {
		name = d.Manufacturer + " " + name
	}
	return name
}

// PrintDeviceList shows every HID interface. Interfaces of one device share
// an ID and are listed once per interface.
func PrintDeviceList(devices []DeviceInfo) {
	if len(devices) == 0 {
		fmt.Println(Warning("No HID devices found"))
		return
	}

	fmt.Println()
	fmt.Println(Title("HID Devices"))
	fmt.Println(Muted(fmt.Sprintf("Found %d interface(s)", len(devices))))
	fmt.Println()

	rows := make([][]string, len(devices))
	for i, d := range devices {
		product := d.Product
		if product == "" {
			product = "Unknown Device"
		}
		rows[i] = []string{d.id(), product, d.Manufacturer}
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("ID", "PRODUCT", "MANUFACTURER").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return BoldStyle.PaddingRight(2)
			case col == 0:
				return DeviceIDStyle.PaddingRight(2)
			case col == 1:
				return DeviceNameStyle.PaddingRight(2)
			default:
				return DeviceManufacturerStyle
			}
		})
	fmt.Println(t.Render())
	fmt.Println()
}

// PrintDeviceUpdated shows a success message after updating device config
func PrintDeviceUpdated(configPath string, vendorID, productID uint16) {
	printDeviceResult("Device configuration updated", configPath, vendorID, productID)
}

// PrintDeviceCreated shows a success message after creating device config
func PrintDeviceCreated(configPath string, vendorID, productID uint16) {
	printDeviceResult("Device configuration created", configPath, vendorID, productID)
}

func printDeviceResult(title, configPath string, vendorID, productID uint16) {
	fmt.Println()
	fmt.Println(Success(title))
	fmt.Println()
	fmt.Printf("  %s %s\n", Muted("Config:"), configPath)
	fmt.Printf("  %s %s\n", Muted("Device:"), DeviceIDStyle.Render(DeviceInfo{VendorID: vendorID, ProductID: productID}.id()))
	fmt.Println()
}
