// Command leafcorectl is a demonstration CLI over the leafcore module: it
// wires os.File into the io.ReaderAt contract epub.NewReader expects and
// exercises the epub/chapter/rasterpng/rasterjpeg packages the way a real
// e-reader host would, minus the actual e-ink display.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "leafcorectl",
		Usage: "inspect and render EPUB archives with leafcore",
		Commands: []*cli.Command{
			infoCmd(),
			tocCmd(),
			chapterCmd(),
			imageCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func section(title string) {
	line := "--- " + title + " ---"
	fmt.Println(line)
}

func row(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%-16s %s\n", label+":", value)
}
