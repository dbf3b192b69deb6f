package isa

import "fmt"

// reg8 index order follows the opcode encoding: B,C,D,E,H,L,(HL),A.
var reg8Locs = [8]Loc8{L8B, L8C, L8D, L8E, L8H, L8L, L8IndHL, L8A}
var reg8Names = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

func buildTable() [512]Instruction {
	const (
		u    = FlagUnaffected
		set  = FlagSet
		res  = FlagReset
		calc = FlagCalc
	)

	var t [512]Instruction

	ins := func(idx int, mnemo string, length, cycles int, op Operation) {
		t[idx] = Instruction{Mnemonic: mnemo, Length: length, Cycles: cycles, CyclesNotTaken: cycles, Op: op}
	}
	br := func(idx int, mnemo string, length, taken, notTaken int, op Operation) {
		t[idx] = Instruction{Mnemonic: mnemo, Length: length, Cycles: taken, CyclesNotTaken: notTaken, Op: op}
	}

	// --- Regular register families ---

	// LD r,r' block 0x40-0x7F (0x76 is HALT).
	for d := 0; d < 8; d++ {
		for s := 0; s < 8; s++ {
			idx := 0x40 + d*8 + s
			if idx == 0x76 {
				continue
			}
			cycles := 4
			if d == 6 || s == 6 {
				cycles = 8
			}
			ins(idx, fmt.Sprintf("LD %s,%s", reg8Names[d], reg8Names[s]), 1, cycles,
				Data8{Op: Ld8, Dst: reg8Locs[d], Src: reg8Locs[s], Z: u, N: u, H: u, C: u})
		}
	}

	// ALU block 0x80-0xBF.
	type aluRow struct {
		base       int
		fmt        string
		op         Op8
		dst        Loc8
		z, n, h, c FlagPolicy
	}
	aluRows := []aluRow{
		{0x80, "ADD A,%s", Add, L8A, calc, res, calc, calc},
		{0x88, "ADC A,%s", Adc, L8A, calc, res, calc, calc},
		{0x90, "SUB %s", Sub, L8A, calc, set, calc, calc},
		{0x98, "SBC A,%s", Sbc, L8A, calc, set, calc, calc},
		{0xA0, "AND %s", And, L8A, calc, res, set, res},
		{0xA8, "XOR %s", Xor, L8A, calc, res, res, res},
		{0xB0, "OR %s", Or, L8A, calc, res, res, res},
		{0xB8, "CP %s", Sub, L8ARO, calc, set, calc, calc},
	}
	for _, row := range aluRows {
		for s := 0; s < 8; s++ {
			cycles := 4
			if s == 6 {
				cycles = 8
			}
			ins(row.base+s, fmt.Sprintf(row.fmt, reg8Names[s]), 1, cycles,
				Data8{Op: row.op, Dst: row.dst, Src: reg8Locs[s], Z: row.z, N: row.n, H: row.h, C: row.c})
		}
	}

	// ALU with 8-bit immediate.
	aluImm := []struct {
		idx        int
		mnemo      string
		op         Op8
		dst        Loc8
		z, n, h, c FlagPolicy
	}{
		{0xC6, "ADD A,d8", Add, L8A, calc, res, calc, calc},
		{0xCE, "ADC A,d8", Adc, L8A, calc, res, calc, calc},
		{0xD6, "SUB d8", Sub, L8A, calc, set, calc, calc},
		{0xDE, "SBC A,d8", Sbc, L8A, calc, set, calc, calc},
		{0xE6, "AND d8", And, L8A, calc, res, set, res},
		{0xEE, "XOR d8", Xor, L8A, calc, res, res, res},
		{0xF6, "OR d8", Or, L8A, calc, res, res, res},
		{0xFE, "CP d8", Sub, L8ARO, calc, set, calc, calc},
	}
	for _, e := range aluImm {
		ins(e.idx, e.mnemo, 2, 8, Data8{Op: e.op, Dst: e.dst, Src: L8Imm8, Z: e.z, N: e.n, H: e.h, C: e.c})
	}

	// INC r / DEC r / LD r,d8 rows (stride 8 over the register order).
	for i := 0; i < 8; i++ {
		cycles := 4
		ldCycles := 8
		if i == 6 {
			cycles = 12
			ldCycles = 12
		}
		ins(0x04+i*8, fmt.Sprintf("INC %s", reg8Names[i]), 1, cycles,
			Data8{Op: Inc8, Dst: reg8Locs[i], Z: calc, N: res, H: calc, C: u})
		ins(0x05+i*8, fmt.Sprintf("DEC %s", reg8Names[i]), 1, cycles,
			Data8{Op: Dec8, Dst: reg8Locs[i], Z: calc, N: set, H: calc, C: u})
		ins(0x06+i*8, fmt.Sprintf("LD %s,d8", reg8Names[i]), 2, ldCycles,
			Data8{Op: Ld8, Dst: reg8Locs[i], Src: L8Imm8, Z: u, N: u, H: u, C: u})
	}

	// 16-bit register rows: LD rr,d16 / INC rr / DEC rr / ADD HL,rr / PUSH / POP.
	rr := []struct {
		stride int
		loc    Loc16
		name   string
	}{
		{0x00, L16BC, "BC"},
		{0x10, L16DE, "DE"},
		{0x20, L16HL, "HL"},
		{0x30, L16SP, "SP"},
	}
	for _, r := range rr {
		ins(0x01+r.stride, fmt.Sprintf("LD %s,d16", r.name), 3, 12,
			Data16{Op: Ld16, Dst: r.loc, Src: L16Imm16, Z: u, N: u, H: u, C: u})
		ins(0x03+r.stride, fmt.Sprintf("INC %s", r.name), 1, 8,
			Data16{Op: Inc16, Dst: r.loc, Z: u, N: u, H: u, C: u})
		ins(0x0B+r.stride, fmt.Sprintf("DEC %s", r.name), 1, 8,
			Data16{Op: Dec16, Dst: r.loc, Z: u, N: u, H: u, C: u})
		ins(0x09+r.stride, fmt.Sprintf("ADD HL,%s", r.name), 1, 8,
			Data16{Op: Add16, Dst: L16HL, Src: r.loc, Z: u, N: res, H: calc, C: calc})
	}
	stack := []struct {
		stride int
		loc    Loc16
		name   string
	}{
		{0x00, L16BC, "BC"},
		{0x10, L16DE, "DE"},
		{0x20, L16HL, "HL"},
		{0x30, L16AF, "AF"},
	}
	for _, r := range stack {
		ins(0xC1+r.stride, fmt.Sprintf("POP %s", r.name), 1, 12,
			Data16{Op: Ld16, Dst: r.loc, Src: L16SPInc, Z: u, N: u, H: u, C: u})
		ins(0xC5+r.stride, fmt.Sprintf("PUSH %s", r.name), 1, 16,
			Data16{Op: Ld16, Dst: L16SPDec, Src: r.loc, Z: u, N: u, H: u, C: u})
	}

	// --- Irregular singles ---

	ins(0x00, "NOP", 1, 4, Nop{})
	ins(0x10, "STOP", 1, 4, Stop{})
	ins(0x76, "HALT", 1, 4, Halt{})
	ins(0xF3, "DI", 1, 4, Di{})
	ins(0xFB, "EI", 1, 4, Ei{})
	ins(0xCB, "PREFIX CB", 1, 4, Prefix{})

	// Accumulator indirect loads.
	ins(0x02, "LD (BC),A", 1, 8, Data8{Op: Ld8, Dst: L8IndBC, Src: L8A, Z: u, N: u, H: u, C: u})
	ins(0x12, "LD (DE),A", 1, 8, Data8{Op: Ld8, Dst: L8IndDE, Src: L8A, Z: u, N: u, H: u, C: u})
	ins(0x22, "LD (HL+),A", 1, 8, Data8{Op: Ld8, Dst: L8IndHLInc, Src: L8A, Z: u, N: u, H: u, C: u})
	ins(0x32, "LD (HL-),A", 1, 8, Data8{Op: Ld8, Dst: L8IndHLDec, Src: L8A, Z: u, N: u, H: u, C: u})
	ins(0x0A, "LD A,(BC)", 1, 8, Data8{Op: Ld8, Dst: L8A, Src: L8IndBC, Z: u, N: u, H: u, C: u})
	ins(0x1A, "LD A,(DE)", 1, 8, Data8{Op: Ld8, Dst: L8A, Src: L8IndDE, Z: u, N: u, H: u, C: u})
	ins(0x2A, "LD A,(HL+)", 1, 8, Data8{Op: Ld8, Dst: L8A, Src: L8IndHLInc, Z: u, N: u, H: u, C: u})
	ins(0x3A, "LD A,(HL-)", 1, 8, Data8{Op: Ld8, Dst: L8A, Src: L8IndHLDec, Z: u, N: u, H: u, C: u})

	// High-page and absolute loads.
	ins(0xE0, "LD ($FF00+d8),A", 2, 12, Data8{Op: Ld8, Dst: L8HighImm8, Src: L8A, Z: u, N: u, H: u, C: u})
	ins(0xF0, "LD A,($FF00+d8)", 2, 12, Data8{Op: Ld8, Dst: L8A, Src: L8HighImm8, Z: u, N: u, H: u, C: u})
	ins(0xE2, "LD ($FF00+C),A", 1, 8, Data8{Op: Ld8, Dst: L8HighC, Src: L8A, Z: u, N: u, H: u, C: u})
	ins(0xF2, "LD A,($FF00+C)", 1, 8, Data8{Op: Ld8, Dst: L8A, Src: L8HighC, Z: u, N: u, H: u, C: u})
	ins(0xEA, "LD (a16),A", 3, 16, Data8{Op: Ld8, Dst: L8IndImm16, Src: L8A, Z: u, N: u, H: u, C: u})
	ins(0xFA, "LD A,(a16)", 3, 16, Data8{Op: Ld8, Dst: L8A, Src: L8IndImm16, Z: u, N: u, H: u, C: u})
	ins(0x08, "LD (a16),SP", 3, 20, Data16{Op: Ld16, Dst: L16IndImm16, Src: L16SP, Z: u, N: u, H: u, C: u})
	ins(0xF9, "LD SP,HL", 1, 8, Data16{Op: Ld16, Dst: L16SP, Src: L16HL, Z: u, N: u, H: u, C: u})

	// SP with signed immediate.
	ins(0xE8, "ADD SP,r8", 2, 16, SpImm8{Dst: L16SP})
	ins(0xF8, "LD HL,SP+r8", 2, 12, SpImm8{Dst: L16HL})

	// Accumulator rotates (Z always cleared, unlike the CB variants).
	ins(0x07, "RLCA", 1, 4, Data8{Op: Rlc, Dst: L8A, Z: res, N: res, H: res, C: calc})
	ins(0x0F, "RRCA", 1, 4, Data8{Op: Rrc, Dst: L8A, Z: res, N: res, H: res, C: calc})
	ins(0x17, "RLA", 1, 4, Data8{Op: Rl, Dst: L8A, Z: res, N: res, H: res, C: calc})
	ins(0x1F, "RRA", 1, 4, Data8{Op: Rr, Dst: L8A, Z: res, N: res, H: res, C: calc})

	// Decimal adjust and complement.
	ins(0x27, "DAA", 1, 4, Data8{Op: Daa, Dst: L8A, Z: calc, N: u, H: res, C: calc})
	ins(0x2F, "CPL", 1, 4, Data8{Op: Cpl, Dst: L8A, Z: u, N: set, H: set, C: u})
	ins(0x37, "SCF", 1, 4, Scf{})
	ins(0x3F, "CCF", 1, 4, Ccf{})

	// Relative jumps.
	ins(0x18, "JR r8", 2, 12, Jump{Op: Jr, Cond: CondAlways})
	br(0x20, "JR NZ,r8", 2, 12, 8, Jump{Op: Jr, Cond: CondNZ})
	br(0x28, "JR Z,r8", 2, 12, 8, Jump{Op: Jr, Cond: CondZ})
	br(0x30, "JR NC,r8", 2, 12, 8, Jump{Op: Jr, Cond: CondNC})
	br(0x38, "JR C,r8", 2, 12, 8, Jump{Op: Jr, Cond: CondC})

	// Absolute jumps and calls.
	ins(0xC3, "JP a16", 3, 16, Jump{Op: Jp, Cond: CondAlways})
	br(0xC2, "JP NZ,a16", 3, 16, 12, Jump{Op: Jp, Cond: CondNZ})
	br(0xCA, "JP Z,a16", 3, 16, 12, Jump{Op: Jp, Cond: CondZ})
	br(0xD2, "JP NC,a16", 3, 16, 12, Jump{Op: Jp, Cond: CondNC})
	br(0xDA, "JP C,a16", 3, 16, 12, Jump{Op: Jp, Cond: CondC})
	ins(0xE9, "JP (HL)", 1, 4, Jump{Op: Jp, Cond: CondAlways})
	ins(0xCD, "CALL a16", 3, 24, Jump{Op: Call, Cond: CondAlways})
	br(0xC4, "CALL NZ,a16", 3, 24, 12, Jump{Op: Call, Cond: CondNZ})
	br(0xCC, "CALL Z,a16", 3, 24, 12, Jump{Op: Call, Cond: CondZ})
	br(0xD4, "CALL NC,a16", 3, 24, 12, Jump{Op: Call, Cond: CondNC})
	br(0xDC, "CALL C,a16", 3, 24, 12, Jump{Op: Call, Cond: CondC})

	// Returns.
	ins(0xC9, "RET", 1, 16, Jump{Op: Ret, Cond: CondAlways})
	ins(0xD9, "RETI", 1, 16, Jump{Op: Reti, Cond: CondAlways})
	br(0xC0, "RET NZ", 1, 20, 8, Jump{Op: Ret, Cond: CondNZ})
	br(0xC8, "RET Z", 1, 20, 8, Jump{Op: Ret, Cond: CondZ})
	br(0xD0, "RET NC", 1, 20, 8, Jump{Op: Ret, Cond: CondNC})
	br(0xD8, "RET C", 1, 20, 8, Jump{Op: Ret, Cond: CondC})

	// Restart vectors.
	for i := 0; i < 8; i++ {
		tgt := uint8(i * 0x08)
		ins(0xC7+i*8, fmt.Sprintf("RST $%02X", tgt), 1, 16, Jump{Op: Rst, Cond: CondAlways, RstTarget: tgt})
	}

	// Undefined gaps; executing one is a bug in the caller's input.
	for _, idx := range undefOpcodes {
		ins(idx, "UNDEF", 1, 4, Undef{})
	}

	// --- CB-prefixed set ---

	cbRot := []struct {
		name string
		op   Op8
		c    FlagPolicy
	}{
		{"RLC", Rlc, calc},
		{"RRC", Rrc, calc},
		{"RL", Rl, calc},
		{"RR", Rr, calc},
		{"SLA", Sla, calc},
		{"SRA", Sra, calc},
		{"SWAP", Swap, res},
		{"SRL", Srl, calc},
	}
	for i := 0; i < 256; i++ {
		idx := 0x100 + i
		r := i & 7
		fn := (i >> 3) & 7
		cycles := 8
		if r == 6 {
			cycles = 16
		}
		switch i >> 6 {
		case 0:
			row := cbRot[fn]
			ins(idx, fmt.Sprintf("%s %s", row.name, reg8Names[r]), 2, cycles,
				Data8{Op: row.op, Dst: reg8Locs[r], Z: calc, N: res, H: res, C: row.c})
		case 1:
			if r == 6 {
				cycles = 12
			}
			ins(idx, fmt.Sprintf("BIT %d,%s", fn, reg8Names[r]), 2, cycles,
				Data8{Op: Bit, Src: reg8Locs[r], Bit: uint8(fn), Z: calc, N: res, H: set, C: u})
		case 2:
			ins(idx, fmt.Sprintf("RES %d,%s", fn, reg8Names[r]), 2, cycles,
				Data8{Op: Res, Dst: reg8Locs[r], Src: reg8Locs[r], Bit: uint8(fn), Z: u, N: u, H: u, C: u})
		case 3:
			ins(idx, fmt.Sprintf("SET %d,%s", fn, reg8Names[r]), 2, cycles,
				Data8{Op: Set, Dst: reg8Locs[r], Src: reg8Locs[r], Bit: uint8(fn), Z: u, N: u, H: u, C: u})
		}
	}

	validate(&t)
	return t
}

// undefOpcodes are the gaps in the unprefixed opcode space.
var undefOpcodes = []int{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD}

// validate panics on any table-construction bug; running with a broken
// decode table is never recoverable.
func validate(t *[512]Instruction) {
	undef := make(map[int]bool, len(undefOpcodes))
	for _, idx := range undefOpcodes {
		undef[idx] = true
	}
	for i, instr := range t {
		if instr.Op == nil {
			panic(fmt.Sprintf("isa: opcode 0x%03X has no operation", i))
		}
		if instr.Length < 1 || instr.Length > 3 {
			panic(fmt.Sprintf("isa: opcode 0x%03X has invalid length %d", i, instr.Length))
		}
		switch op := instr.Op.(type) {
		case Data8:
			if op.N == FlagCalc {
				panic(fmt.Sprintf("isa: opcode 0x%03X uses Calculate for flag N", i))
			}
		case Data16:
			if op.N == FlagCalc {
				panic(fmt.Sprintf("isa: opcode 0x%03X uses Calculate for flag N", i))
			}
		case Undef:
			if !undef[i] {
				panic(fmt.Sprintf("isa: opcode 0x%03X is unexpectedly undefined", i))
			}
		}
	}
}
