// Command cuelc compiles a .cuel source file into a .cuby bytecode file.
package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"

	"github.com/rmay/cuel/pkg/bytecode"
	"github.com/rmay/cuel/pkg/cuel"
)

var sourceName = regexp.MustCompile(`^(.*/)?([^/]+)\.cuel$`)

// deriveName strips one optional directory prefix and the .cuel
// extension, returning the bare output basename, or "" if path doesn't
// end in .cuel.
func deriveName(path string) string {
	m := sourceName.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[2]
}

func main() {
	flag.Parse()

	if len(flag.Args()) != 1 {
		fmt.Println("Usage: cuelc FILE")
		return
	}

	srcPath := flag.Args()[0]
	if _, err := os.Stat(srcPath); err != nil {
		fmt.Println("Source file not found.")
		return
	}

	name := deriveName(srcPath)
	if name == "" {
		fmt.Println("Invalid source file name.")
		return
	}

	f, err := os.Open(srcPath)
	if err != nil {
		fmt.Println(bytecode.WrapIOError(err).Error())
		return
	}
	defer f.Close()

	words, err := cuel.Compile(f)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	if err := os.WriteFile(name+".cuby", bytecode.Encode(words), 0644); err != nil {
		fmt.Println(bytecode.WrapIOError(err).Error())
	}
}
