// Command fatmount mounts a FAT volume read-only via FUSE (spec section
// 6.4). CLI wiring follows the teacher's urfave/cli/v2 usage; the
// mountpoint flag and signal-driven unmount follow the shape of
// ostafen-digler/cmd/cmd/mount.go.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/urfave/cli/v2"

	"github.com/mdbox/fatfs/block"
	"github.com/mdbox/fatfs/fuseadapter"
	"github.com/mdbox/fatfs/logger"
	"github.com/mdbox/fatfs/volume"
)

func main() {
	app := &cli.App{
		Name:      "fatmount",
		Usage:     "Mount a FAT12/16/32 disk image read-only",
		ArgsUsage: "IMAGE_FILE MOUNTPOINT",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return cli.Exit("expected IMAGE_FILE and MOUNTPOINT arguments", 1)
	}
	imagePath := c.Args().Get(0)
	mountpoint := c.Args().Get(1)

	backend, err := block.OpenFileBackend(imagePath)
	if err != nil {
		return err
	}
	defer backend.Close()

	vol, err := volume.Open(backend)
	if err != nil {
		return err
	}

	log := logger.New(os.Stderr, logger.Warn)

	conn, err := fuse.Mount(mountpoint, fuse.ReadOnly(), fuse.FSName("fatfs"))
	if err != nil {
		return err
	}
	defer conn.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fuse.Unmount(mountpoint)
	}()

	filesys := fuseadapter.New(vol, log)
	return fs.Serve(conn, filesys)
}
