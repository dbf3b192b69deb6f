package main

import (
	"fmt"
	"os"

	"github.com/mkellner/dmgboy/internal/disasm"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <input.bin>\n", os.Args[0])
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "disasm: read %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	fmt.Print(disasm.Listing(data))
}
