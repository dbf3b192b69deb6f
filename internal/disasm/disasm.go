// Package disasm turns machine code back into assembler text. A linear
// sweep indexes the same instruction table the CPU executes; a first pass
// collects jump targets so the second pass can label them.
package disasm

import (
	"fmt"
	"strings"

	"github.com/mkellner/dmgboy/internal/isa"
)

// Inst is one decoded instruction.
type Inst struct {
	Addr   int
	Raw    []byte
	Text   string // canonical assembler syntax with immediates substituted
	Target int    // jump target address, or -1
}

// Instructions performs the linear sweep over the whole input.
func Instructions(data []byte) []Inst {
	var out []Inst
	pos := 0
	for pos < len(data) {
		idx := int(data[pos])
		instr := &isa.Table[idx]
		if _, ok := instr.Op.(isa.Prefix); ok {
			if pos+1 >= len(data) {
				out = append(out, Inst{Addr: pos, Raw: data[pos:], Text: "UNDEF", Target: -1})
				break
			}
			idx = 0x100 + int(data[pos+1])
			instr = &isa.Table[idx]
		}
		length := instr.Length
		if pos+length > len(data) {
			length = len(data) - pos
		}
		raw := data[pos : pos+length]

		var imm uint16
		if idx < 0x100 {
			switch instr.Length {
			case 2:
				if len(raw) > 1 {
					imm = uint16(raw[1])
				}
			case 3:
				if len(raw) > 2 {
					imm = uint16(raw[1]) | uint16(raw[2])<<8
				}
			}
		}

		target := -1
		if _, ok := instr.Op.(isa.Jump); ok {
			switch instr.Length {
			case 3:
				target = int(imm)
			case 2:
				target = pos + 2 + int(int8(byte(imm)))
			}
		}

		out = append(out, Inst{
			Addr:   pos,
			Raw:    raw,
			Text:   expand(instr.Mnemonic, imm),
			Target: target,
		})
		pos += length
	}
	return out
}

// expand substitutes the fetched immediate for the mnemonic's placeholder.
func expand(mnemo string, imm uint16) string {
	switch {
	case strings.Contains(mnemo, "d16"):
		return strings.Replace(mnemo, "d16", fmt.Sprintf("$%04X", imm), 1)
	case strings.Contains(mnemo, "a16"):
		return strings.Replace(mnemo, "a16", fmt.Sprintf("$%04X", imm), 1)
	case strings.Contains(mnemo, "d8"):
		return strings.Replace(mnemo, "d8", fmt.Sprintf("$%02X", byte(imm)), 1)
	case strings.Contains(mnemo, "r8"):
		return strings.Replace(mnemo, "r8", fmt.Sprintf("$%02X", byte(imm)), 1)
	default:
		return mnemo
	}
}

// Listing renders the full annotated listing: an addr_0xhhhh label line
// before every jump target, and the target repeated as a comment on the
// jump itself. Each line also carries the address and raw-byte columns, so
// a listing is not assembler input; Inst.Text is.
func Listing(data []byte) string {
	insts := Instructions(data)
	targets := make(map[int]bool)
	for _, in := range insts {
		if in.Target >= 0 {
			targets[in.Target] = true
		}
	}

	var b strings.Builder
	for _, in := range insts {
		if targets[in.Addr] {
			fmt.Fprintf(&b, "\naddr_0x%04x:\n", in.Addr)
		}
		var hex strings.Builder
		for _, v := range in.Raw {
			fmt.Fprintf(&hex, "%02x", v)
		}
		comment := ""
		if in.Target >= 0 {
			comment = fmt.Sprintf("  ; addr_0x%04x", in.Target)
		}
		fmt.Fprintf(&b, "0x%04x:   %-8s%s%s\n", in.Addr, hex.String(), in.Text, comment)
	}
	return b.String()
}
