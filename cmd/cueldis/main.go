// Command cueldis renders a .cuby bytecode file as a mnemonic listing.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/rmay/cuel/pkg/bytecode"
	"github.com/rmay/cuel/pkg/disasm"
)

var (
	wrapFlag = flag.Bool("w", false, "wrap output to the detected terminal width")
	copyFlag = flag.Bool("copy", false, "place the rendered listing on the system clipboard")
)

func main() {
	flag.Parse()

	if len(flag.Args()) != 1 {
		fmt.Println("Usage: cueldis FILE")
		return
	}

	data, err := os.ReadFile(flag.Args()[0])
	if err != nil {
		fmt.Println("File not found.")
		return
	}

	words, err := bytecode.Decode(data)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	lines := disasm.Listing(words)
	width := 80
	if *wrapFlag {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	var out strings.Builder
	for _, line := range lines {
		if *wrapFlag {
			line = wrap(line, width)
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}

	fmt.Print(out.String())

	if *copyFlag {
		if err := clipboard.WriteAll(out.String()); err != nil {
			fmt.Fprintf(os.Stderr, "clipboard: %v\n", err)
		}
	}
}

// wrap hard-wraps a single rendered line at width columns, since the
// listing never needs to preserve column alignment across a wrap point.
func wrap(line string, width int) string {
	if width <= 0 || len(line) <= width {
		return line
	}
	var b strings.Builder
	for len(line) > width {
		b.WriteString(line[:width])
		b.WriteByte('\n')
		line = line[width:]
	}
	b.WriteString(line)
	return b.String()
}
