// Command xipfs-mkfs formats a simulated flash image file: an on-disk
// byte image a mounted xipfs can be pointed at, matching the teacher's
// small flag-parsed cmd/ tools (cmd/seed, cmd/inspect_idx).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"xipfs/flash"
	"xipfs/fs"
	"xipfs/mount"
)

func main() {
	path := flag.String("image", "xipfs.img", "path to the flash image file to create")
	pageSize := flag.Uint("page-size", 4096, "erase page size in bytes")
	numPages := flag.Uint("pages", 8, "number of pages in the image")
	force := flag.Bool("force", false, "overwrite the image file if it already exists")
	flag.Parse()

	if !*force {
		if _, err := os.Stat(*path); err == nil {
			log.Fatalf("%s already exists; pass -force to overwrite", *path)
		}
	}

	geo := flash.Geometry{
		Base:           0,
		PageSize:       uint32(*pageSize),
		NumPages:       uint32(*numPages),
		WriteBlockSize: 4,
		EraseState:     0xFF,
	}
	dev := flash.NewMemDevice(geo)
	m := mount.New(*path, geo, dev)
	if err := fs.Format(m); err != nil {
		log.Fatalf("format: %v", err)
	}

	if err := os.WriteFile(*path, dev.Bytes(), 0644); err != nil {
		log.Fatalf("write image file: %v", err)
	}

	fmt.Printf("formatted %s: %d pages of %d bytes\n", *path, geo.NumPages, geo.PageSize)
}
