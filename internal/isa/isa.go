// Package isa holds the static SM83 instruction table shared by the CPU,
// the assembler, and the disassembler. The table is pure data: 512 entries,
// indices 0x000-0x0FF for unprefixed opcodes and 0x100-0x1FF for opcodes
// behind the 0xCB prefix byte.
package isa

// Loc8 enumerates the places an 8-bit operand can live.
type Loc8 uint8

const (
	L8None Loc8 = iota
	L8A
	L8B
	L8C
	L8D
	L8E
	L8H
	L8L
	// L8ARO reads like A but discards writes; used as the destination of CP
	// so the comparison keeps flags without touching the accumulator.
	L8ARO
	L8Imm8
	L8IndBC    // (BC)
	L8IndDE    // (DE)
	L8IndHL    // (HL)
	L8IndHLInc // (HL+), HL post-incremented
	L8IndHLDec // (HL-), HL post-decremented
	L8IndImm16 // (a16)
	L8HighC    // (0xFF00+C)
	L8HighImm8 // (0xFF00+d8)
)

// Loc16 enumerates the places a 16-bit operand can live.
type Loc16 uint8

const (
	L16None Loc16 = iota
	L16AF
	L16BC
	L16DE
	L16HL
	L16SP
	L16Imm16
	L16SPInc    // (SP+): pop two bytes little-endian, post-increment
	L16SPDec    // (SP-): pre-decrement SP by 2, then store
	L16IndImm16 // (a16)
)

// FlagPolicy describes what an instruction does to one flag.
type FlagPolicy uint8

const (
	FlagUnaffected FlagPolicy = iota
	FlagSet
	FlagReset
	// FlagCalc takes the value the ALU computed. Not valid for flag N, which
	// is only ever Set or Reset; the table constructor enforces this.
	FlagCalc
)

// Op8 selects the 8-bit ALU operation of a Data8 instruction.
type Op8 uint8

const (
	Ld8 Op8 = iota
	Add
	Adc
	Sub
	Sbc
	And
	Xor
	Or
	Inc8
	Dec8
	Cpl
	Daa
	Rlc
	Rl
	Rrc
	Rr
	Sla
	Sra
	Srl
	Swap
	Bit
	Res
	Set
)

// Op16 selects the 16-bit operation of a Data16 instruction.
type Op16 uint8

const (
	Ld16 Op16 = iota
	Add16
	Inc16
	Dec16
)

// JumpOp selects the control-flow operation of a Jump instruction.
type JumpOp uint8

const (
	Jp JumpOp = iota
	Jr
	Call
	Ret
	Reti
	Rst
)

// Cond is the condition a Jump tests against the F register.
type Cond uint8

const (
	CondAlways Cond = iota
	CondZ
	CondNZ
	CondC
	CondNC
)

// Operation is the tagged variant carried by every Instruction.
type Operation interface{ operation() }

// Data8 is an 8-bit ALU or load operation.
type Data8 struct {
	Op         Op8
	Dst, Src   Loc8
	Z, N, H, C FlagPolicy
	Bit        uint8 // bit number for BIT/RES/SET
}

// Data16 is a 16-bit load or arithmetic operation.
type Data16 struct {
	Op         Op16
	Dst, Src   Loc16
	Z, N, H, C FlagPolicy
}

// Jump covers JP/JR/CALL/RET/RETI/RST.
type Jump struct {
	Op        JumpOp
	Cond      Cond
	RstTarget uint8 // fixed vector for RST
}

// SpImm8 is ADD SP,r8 / LD HL,SP+r8: SP plus a signed 8-bit immediate with
// H and C computed from the unsigned low byte.
type SpImm8 struct {
	Dst Loc16 // L16SP or L16HL
}

// Nullary operations.
type (
	Nop    struct{}
	Scf    struct{}
	Ccf    struct{}
	Di     struct{}
	Ei     struct{}
	Halt   struct{}
	Stop   struct{}
	Prefix struct{}
	Undef  struct{}
)

func (Data8) operation()  {}
func (Data16) operation() {}
func (Jump) operation()   {}
func (SpImm8) operation() {}
func (Nop) operation()    {}
func (Scf) operation()    {}
func (Ccf) operation()    {}
func (Di) operation()     {}
func (Ei) operation()     {}
func (Halt) operation()   {}
func (Stop) operation()   {}
func (Prefix) operation() {}
func (Undef) operation()  {}

// Instruction is one immutable decode-table entry.
//
// Mnemonic is canonical assembler syntax with the placeholders d8, d16, a16
// and r8 standing in for immediates; the assembler inverts it and the
// disassembler substitutes the fetched bytes.
type Instruction struct {
	Mnemonic       string
	Length         int // total encoded bytes including prefix, 1..3
	Cycles         int // machine cycles when taken
	CyclesNotTaken int // conditional branches when not taken; equals Cycles otherwise
	Op             Operation
}

// Table is the shared decode table. Indices 0x00-0xFF are unprefixed
// opcodes; 0x100-0x1FF are the CB-prefixed set.
var Table = buildTable()
