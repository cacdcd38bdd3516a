package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	epub "github.com/foliopress/leafcore"
	"github.com/foliopress/leafcore/rasterjpeg"
	"github.com/foliopress/leafcore/rasterpng"
)

func imageCmd() *cli.Command {
	var (
		id      string
		maxW    int
		maxH    int
		outPath string
	)
	return &cli.Command{
		Name:      "image",
		Usage:     "decode a manifest image to a dithered 1-bit PBM bitmap",
		ArgsUsage: "<file.epub>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "item", Usage: "manifest id or href of the image", Destination: &id, Required: true},
			&cli.IntFlag{Name: "max-w", Usage: "target screen width in pixels", Value: 800, Destination: &maxW},
			&cli.IntFlag{Name: "max-h", Usage: "target screen height in pixels", Value: 600, Destination: &maxH},
			&cli.StringFlag{Name: "out", Usage: "output .pbm path (default: stdout)", Destination: &outPath},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("usage: leafcorectl image --item <id-or-href> <file.epub>", 1)
			}
			b, err := epub.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("open %q: %v", path, err), 1)
			}
			defer b.Close()

			item, ok := findManifestItem(b, id)
			if !ok {
				return cli.Exit(fmt.Sprintf("no manifest item matching %q", id), 1)
			}
			data, err := b.ReadFile(item.Href)
			if err != nil {
				return cli.Exit(fmt.Sprintf("read %q: %v", item.Href, err), 1)
			}

			var rows [][]byte
			var width, height int
			decode := decoderFor(item.MediaType, item.Href)
			if decode == nil {
				return cli.Exit(fmt.Sprintf("unsupported image media type %q", item.MediaType), 1)
			}
			width, height, err = decode(bytes.NewReader(data), uint16(maxW), uint16(maxH), func(row []byte) error {
				rows = append(rows, append([]byte(nil), row...))
				return nil
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("decode %q: %v", item.Href, err), 1)
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("create %q: %v", outPath, err), 1)
				}
				defer f.Close()
				out = f
			}
			return writePBM(out, width, height, rows)
		},
	}
}

type decodeFunc func(r io.Reader, maxW, maxH uint16, sink func([]byte) error) (int, int, error)

func decoderFor(mediaType, href string) decodeFunc {
	href = strings.ToLower(href)
	switch {
	case strings.Contains(mediaType, "png"), strings.HasSuffix(href, ".png"):
		return func(r io.Reader, maxW, maxH uint16, sink func([]byte) error) (int, int, error) {
			return rasterpng.Decode(r, maxW, maxH, sink)
		}
	case strings.Contains(mediaType, "jpeg"), strings.Contains(mediaType, "jpg"),
		strings.HasSuffix(href, ".jpg"), strings.HasSuffix(href, ".jpeg"):
		return func(r io.Reader, maxW, maxH uint16, sink func([]byte) error) (int, int, error) {
			return rasterjpeg.Decode(r, maxW, maxH, sink)
		}
	default:
		return nil
	}
}

func findManifestItem(b *epub.Book, id string) (epub.ManifestItem, bool) {
	for _, item := range b.Manifest() {
		if item.ID == id || item.Href == id {
			return item, true
		}
	}
	return epub.ManifestItem{}, false
}

// writePBM emits a binary PBM (P4): the same packed, MSB-first bitmap rows
// rasterpng/rasterjpeg already produce, framed with the format's header.
func writePBM(w *os.File, width, height int, rows [][]byte) error {
	if _, err := fmt.Fprintf(w, "P4\n%d %d\n", width, height); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
