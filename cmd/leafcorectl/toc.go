package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	epub "github.com/foliopress/leafcore"
)

func tocCmd() *cli.Command {
	var showLandmarks bool
	return &cli.Command{
		Name:      "toc",
		Usage:     "print the table of contents tree",
		ArgsUsage: "<file.epub>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "landmarks", Usage: "print landmarks instead of the toc", Destination: &showLandmarks},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("usage: leafcorectl toc <file.epub>", 1)
			}
			b, err := epub.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("open %q: %v", path, err), 1)
			}
			defer b.Close()

			items := b.TOC()
			if showLandmarks {
				items = b.Landmarks()
			}
			if len(items) == 0 {
				fmt.Println("(empty)")
				return nil
			}
			printTOC(items)
			return nil
		},
	}
}

func printTOC(items []epub.TOCItem) {
	for _, it := range items {
		indent := strings.Repeat("  ", it.Depth)
		rng := fmt.Sprintf("%d", it.SpineIndex)
		if it.SpineEndIndex > it.SpineIndex+1 {
			rng = fmt.Sprintf("%d-%d", it.SpineIndex, it.SpineEndIndex-1)
		}
		fmt.Printf("%s%s [spine %s]\n", indent, it.Title, rng)
	}
}
