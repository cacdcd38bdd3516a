package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	epub "github.com/foliopress/leafcore"
	"github.com/foliopress/leafcore/htmlstrip"
)

func chapterCmd() *cli.Command {
	var showImages bool
	return &cli.Command{
		Name:      "chapter",
		Usage:     "stream one spine item's text and image references",
		ArgsUsage: "<file.epub> <spine-index>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "images", Usage: "print image references instead of skipping them", Destination: &showImages},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().Get(0)
			idxArg := cmd.Args().Get(1)
			if path == "" || idxArg == "" {
				return cli.Exit("usage: leafcorectl chapter <file.epub> <spine-index>", 1)
			}
			idx, err := strconv.Atoi(idxArg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("bad spine index %q: %v", idxArg, err), 1)
			}

			b, err := epub.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("open %q: %v", path, err), 1)
			}
			defer b.Close()

			ch, err := b.Chapter(idx)
			if err != nil {
				return cli.Exit(fmt.Sprintf("chapter %d: %v", idx, err), 1)
			}

			first := true
			onRun := func(r htmlstrip.StyledRun) error {
				if !first {
					printBreak(r.Break)
				}
				first = false
				fmt.Print(styleWrap(r.Text, r.Style))
				return nil
			}
			var onImage htmlstrip.ImageFunc
			if showImages {
				onImage = func(img htmlstrip.ImageRef) error {
					fmt.Printf("\n[image: %s]\n", img.Src)
					return nil
				}
			}
			if err := ch.Stream(onRun, onImage); err != nil {
				return cli.Exit(fmt.Sprintf("stream chapter %d: %v", idx, err), 1)
			}
			fmt.Println()
			return nil
		},
	}
}

func printBreak(b htmlstrip.BreakKind) {
	switch b {
	case htmlstrip.BreakSection:
		fmt.Print("\n\n---\n\n")
	case htmlstrip.BreakParagraph:
		fmt.Print("\n\n")
	case htmlstrip.BreakHard:
		fmt.Print("\n")
	case htmlstrip.BreakSoft:
		fmt.Print(" ")
	}
}

// styleWrap renders active style flags as plain-text markers so a terminal
// demo can show them without an e-ink renderer; a real host would use
// StyledRun.Style to pick a font/weight instead of printing markers.
func styleWrap(text string, s htmlstrip.StyleFlags) string {
	var open, close []string
	add := func(flag htmlstrip.StyleFlags, tag string) {
		if s&flag != 0 {
			open = append(open, tag)
			close = append([]string{tag}, close...)
		}
	}
	add(htmlstrip.Heading1, "h1")
	add(htmlstrip.Heading2, "h2")
	add(htmlstrip.Heading3, "h3")
	add(htmlstrip.Heading4, "h4")
	add(htmlstrip.Heading5, "h5")
	add(htmlstrip.Heading6, "h6")
	add(htmlstrip.Bold, "b")
	add(htmlstrip.Italic, "i")
	add(htmlstrip.Underline, "u")
	add(htmlstrip.Strike, "s")
	add(htmlstrip.Superscript, "sup")
	add(htmlstrip.Subscript, "sub")
	add(htmlstrip.Monospace, "code")
	if len(open) == 0 {
		return text
	}
	var b strings.Builder
	for _, tag := range open {
		b.WriteByte('[')
		b.WriteString(tag)
		b.WriteByte(']')
	}
	b.WriteString(text)
	for _, tag := range close {
		b.WriteString("[/")
		b.WriteString(tag)
		b.WriteByte(']')
	}
	return b.String()
}
