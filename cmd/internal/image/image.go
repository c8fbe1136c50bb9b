// Package image loads and mounts a simulated flash image file for the
// CLI tools and saves it back; xipfs-fsck also reads its default
// geometry.
package image

import (
	"fmt"
	"os"

	"xipfs/flash"
	"xipfs/mount"
)

// DefaultGeometry is the geometry xipfs-mkfs uses by default; the CLI
// tools assume an image was created with matching page size unless
// told otherwise.
var DefaultGeometry = flash.Geometry{
	Base:           0,
	PageSize:       4096,
	NumPages:       8,
	WriteBlockSize: 4,
	EraseState:     0xFF,
}

// Open reads path into an in-RAM device of the given geometry and
// mounts it, verifying tail integrity.
func Open(path string, geo flash.Geometry) (*mount.Mount, *flash.MemDevice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read image %s: %w", path, err)
	}
	dev := flash.NewMemDevice(geo)
	if err := dev.LoadBytes(data); err != nil {
		return nil, nil, fmt.Errorf("load image %s: %w", path, err)
	}
	m := mount.New(path, geo, dev)
	if err := m.Mount(); err != nil {
		return nil, nil, fmt.Errorf("mount %s: %w", path, err)
	}
	return m, dev, nil
}

// Save writes dev's current contents back to path.
func Save(path string, dev *flash.MemDevice) error {
	return os.WriteFile(path, dev.Bytes(), 0644)
}
