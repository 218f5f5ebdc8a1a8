// Command fatdump prints a FAT volume's geometry, free-cluster count, or a
// recursive directory tree, through its geometry, free and tree
// subcommands (spec section 6.3). It does not print the FAT's contents.
// CLI wiring follows the teacher's cmd/main.go use of urfave/cli/v2.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mdbox/fatfs/block"
	"github.com/mdbox/fatfs/bpb"
	"github.com/mdbox/fatfs/dirent"
	"github.com/mdbox/fatfs/disks"
	"github.com/mdbox/fatfs/volume"
)

func main() {
	app := &cli.App{
		Name:  "fatdump",
		Usage: "Inspect a FAT12/16/32 disk image",
		Commands: []*cli.Command{
			{
				Name:      "geometry",
				Usage:     "Print the boot sector geometry",
				ArgsUsage: "IMAGE_FILE",
				Action:    runGeometry,
			},
			{
				Name:      "tree",
				Usage:     "Recursively list the directory tree",
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "include hidden entries"},
				},
				Action: runTree,
			},
			{
				Name:      "free",
				Usage:     "Print the number of free clusters",
				ArgsUsage: "IMAGE_FILE",
				Action:    runFree,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func openVolume(path string) (*volume.Volume, error) {
	backend, err := block.OpenFileBackend(path)
	if err != nil {
		return nil, err
	}
	return volume.Open(backend)
}

func runGeometry(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("expected exactly one IMAGE_FILE argument", 1)
	}
	vol, err := openVolume(c.Args().First())
	if err != nil {
		return err
	}

	fmt.Print(vol.Geometry.String())
	if slug, ok := disks.IdentifyBySize(vol.Backend.Len()); ok {
		geom, _ := disks.GetPredefinedDiskGeometry(slug)
		fmt.Printf("  recognized media: %s\n", geom.Name)
	}
	return nil
}

func runFree(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("expected exactly one IMAGE_FILE argument", 1)
	}
	vol, err := openVolume(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Printf("%d / %d clusters free\n", vol.Table.FreeCount(), vol.Geometry.CountOfClusters)
	return nil
}

func runTree(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("expected exactly one IMAGE_FILE argument", 1)
	}
	vol, err := openVolume(c.Args().First())
	if err != nil {
		return err
	}

	includeHidden := c.Bool("all")

	var reader dirent.Reader
	if vol.Geometry.Variant == bpb.FAT32 {
		reader = vol.NewChainReader(vol.Geometry.Ext32.RootCluster)
	} else {
		win, err := vol.RootDirWindow()
		if err != nil {
			return err
		}
		reader = &win
	}

	return printTree(vol, reader, "", includeHidden)
}

func printTree(vol *volume.Volume, reader dirent.Reader, indent string, includeHidden bool) error {
	it := dirent.NewIterator(reader, nil)
	entries, err := it.All()
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsDeleted() || e.IsVolumeLabel() || e.IsDot() || e.IsDotDot() {
			continue
		}
		if e.IsHidden() && !includeHidden {
			continue
		}

		marker := ""
		if e.IsDir() {
			marker = "/"
		}
		fmt.Printf("%s%s%s\n", indent, e.Name(), marker)

		if e.IsDir() {
			child := vol.NewChainReader(e.FirstCluster)
			if err := printTree(vol, child, indent+strings.Repeat(" ", 2), includeHidden); err != nil {
				return err
			}
		}
	}
	return nil
}
