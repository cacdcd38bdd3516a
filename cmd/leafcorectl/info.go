package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	epub "github.com/foliopress/leafcore"
)

func infoCmd() *cli.Command {
	var path string
	return &cli.Command{
		Name:      "info",
		Usage:     "print metadata, manifest, and spine summary for an EPUB",
		ArgsUsage: "<file.epub>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path = cmd.Args().First()
			if path == "" {
				return cli.Exit("usage: leafcorectl info <file.epub>", 1)
			}
			b, err := epub.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("open %q: %v", path, err), 1)
			}
			defer b.Close()

			md := b.Metadata()
			section("Metadata")
			row("title", md.Title)
			row("language", md.Language)
			row("publisher", md.Publisher)
			row("date", md.Date)
			row("rights", md.Rights)
			for _, a := range md.Authors {
				row("author", authorLine(a))
			}
			for _, id := range md.Identifiers {
				row("identifier", identifierLine(id))
			}

			fmt.Println()
			section("Contents")
			row("manifest items", fmt.Sprintf("%d", len(b.Manifest())))
			row("spine items", fmt.Sprintf("%d", len(b.Spine())))
			row("has toc", fmt.Sprintf("%v", b.HasTOC()))
			row("landmarks", fmt.Sprintf("%d", len(b.Landmarks())))

			if warnings := b.Warnings(); len(warnings) > 0 {
				fmt.Println()
				section("Warnings")
				for _, w := range warnings {
					fmt.Println(w)
				}
			}
			return nil
		},
	}
}

func authorLine(a epub.Author) string {
	s := a.Name
	if a.Role != "" {
		s += " (" + a.Role + ")"
	}
	return s
}

func identifierLine(id epub.Identifier) string {
	if id.Scheme != "" {
		return id.Scheme + ":" + id.ID
	}
	return id.Value
}
