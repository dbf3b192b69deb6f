package main

import (
	"fmt"
	"os"

	"github.com/mkellner/dmgboy/internal/asm"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <input.s> <output.bin>\n", os.Args[0])
		os.Exit(1)
	}
	src, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "asm: read %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	out, err := asm.Assemble(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "asm: %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	if err := os.WriteFile(os.Args[2], out, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "asm: write %s: %v\n", os.Args[2], err)
		os.Exit(1)
	}
}
