package cpu

import (
	"testing"

	"github.com/mkellner/dmgboy/internal/mmu"
)

func newCPUWithROM(code []byte) *CPU {
	rom := make([]byte, 0x8000)
	copy(rom, code)
	m := mmu.New()
	if err := m.LoadROM(rom); err != nil {
		panic(err)
	}
	return New(m)
}

func TestStep_NopAndPC(t *testing.T) {
	c := newCPUWithROM([]byte{0x00}) // NOP
	if cycles := c.Step(); cycles != 4 {
		t.Fatalf("NOP cycles got %d want 4", cycles)
	}
	if c.PC != 1 {
		t.Fatalf("PC after NOP got %#04x want 0x0001", c.PC)
	}
}

func TestStep_LD_A_d8_And_XOR_A(t *testing.T) {
	c := newCPUWithROM([]byte{0x3E, 0x12, 0xAF}) // LD A,0x12; XOR A
	c.Step()
	if c.A != 0x12 {
		t.Fatalf("A after LD got %02x want 12", c.A)
	}
	c.Step()
	if c.A != 0x00 {
		t.Fatalf("A after XOR got %02x want 00", c.A)
	}
	if c.F&flagZ == 0 {
		t.Fatalf("Z flag not set after XOR A")
	}
}

// Scenario S1: ADD A,B with half-carry and carry out.
func TestAdd_HalfCarryAndCarry(t *testing.T) {
	c := newCPUWithROM([]byte{0x80}) // ADD A,B
	c.A, c.B = 0x3A, 0xC6
	c.Step()
	if c.A != 0x00 {
		t.Fatalf("A got %02x want 00", c.A)
	}
	if c.F != flagZ|flagH|flagC {
		t.Fatalf("F got %02x want %02x", c.F, flagZ|flagH|flagC)
	}
}

// Scenario S2: SUB of A's own value.
func TestSub_Immediate(t *testing.T) {
	c := newCPUWithROM([]byte{0xD6, 0x3E}) // SUB 0x3E
	c.A = 0x3E
	c.Step()
	if c.A != 0x00 {
		t.Fatalf("A got %02x want 00", c.A)
	}
	if c.F != flagZ|flagN {
		t.Fatalf("F got %02x want %02x", c.F, flagZ|flagN)
	}
}

// Scenario S3: DAA after a BCD addition.
func TestDAA_AfterAdd(t *testing.T) {
	c := newCPUWithROM([]byte{0x80, 0x27}) // ADD A,B; DAA
	c.A, c.B = 0x45, 0x38
	c.Step()
	c.Step()
	if c.A != 0x83 {
		t.Fatalf("A after DAA got %02x want 83", c.A)
	}
	if c.F&flagN != 0 {
		t.Fatalf("N flag should stay clear after DAA following ADD")
	}
}

// Property 5: the canonical subtraction entry of the DAA table.
func TestDAA_SubtractionEntry(t *testing.T) {
	r, z, cy := daa(0x00, flagN|flagH)
	if r != 0xFA || cy || z {
		t.Fatalf("daa(00,N|H) got %02x cy=%v z=%v want FA cy=false z=false", r, cy, z)
	}
}

// Property 3: the adder's carry and half-carry over the full input space.
func TestAdd8_FlagMatrix(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			for ci := 0; ci < 2; ci++ {
				_, _, h, cy := add8(byte(a), byte(b), byte(ci))
				if want := a+b+ci >= 256; cy != want {
					t.Fatalf("add8(%02x,%02x,%d) carry got %v want %v", a, b, ci, cy, want)
				}
				if want := a&0x0F+b&0x0F+ci >= 0x10; h != want {
					t.Fatalf("add8(%02x,%02x,%d) half got %v want %v", a, b, ci, h, want)
				}
			}
		}
	}
}

// Property 2: the low nibble of F stays zero, even through POP AF.
func TestF_LowNibbleAlwaysZero(t *testing.T) {
	prog := []byte{
		0x31, 0x00, 0xD0, // LD SP,0xD000
		0xF1,             // POP AF
	}
	c := newCPUWithROM(prog)
	c.MMU().Write(0xD000, 0xFF)
	c.MMU().Write(0xD001, 0xFF)
	c.Step()
	c.Step()
	if c.A != 0xFF {
		t.Fatalf("A after POP AF got %02x want FF", c.A)
	}
	if c.F != 0xF0 {
		t.Fatalf("F after POP AF got %02x want F0", c.F)
	}
	if c.F&0x0F != 0 {
		t.Fatalf("low nibble of F not zero: %02x", c.F)
	}
}

// Scenario S4: JR -2 at 0x0100 loops on itself.
func TestJR_SelfLoop(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0100] = 0x18
	rom[0x0101] = 0xFE
	m := mmu.New()
	if err := m.LoadROM(rom); err != nil {
		t.Fatal(err)
	}
	c := New(m)
	c.PC = 0x0100
	if cycles := c.Step(); cycles != 12 {
		t.Fatalf("JR cycles got %d want 12", cycles)
	}
	if c.PC != 0x0100 {
		t.Fatalf("PC got %#04x want 0x0100", c.PC)
	}
}

func TestJR_ConditionalCycles(t *testing.T) {
	c := newCPUWithROM([]byte{0x20, 0x02, 0x20, 0x02}) // JR NZ,+2 twice
	c.F = flagZ
	if cycles := c.Step(); cycles != 8 || c.PC != 2 {
		t.Fatalf("not-taken JR got cycles=%d PC=%04x want 8/0x0002", cycles, c.PC)
	}
	c.F = 0
	if cycles := c.Step(); cycles != 12 || c.PC != 6 {
		t.Fatalf("taken JR got cycles=%d PC=%04x want 12/0x0006", cycles, c.PC)
	}
}

func TestCALL_RET(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0000] = 0xCD // CALL 0x0005
	rom[0x0001] = 0x05
	rom[0x0005] = 0xC9 // RET
	m := mmu.New()
	if err := m.LoadROM(rom); err != nil {
		t.Fatal(err)
	}
	c := New(m)
	c.SP = 0xFFFE
	c.Step()
	if c.PC != 0x0005 || c.SP != 0xFFFC {
		t.Fatalf("after CALL PC=%04x SP=%04x want 0005/FFFC", c.PC, c.SP)
	}
	if cycles := c.Step(); cycles != 16 || c.PC != 0x0003 || c.SP != 0xFFFE {
		t.Fatalf("after RET cyc=%d PC=%04x SP=%04x want 16/0003/FFFE", cycles, c.PC, c.SP)
	}
}

func TestHL_PostIncrementDecrement(t *testing.T) {
	prog := []byte{
		0x21, 0x00, 0xC0, // LD HL,0xC000
		0x3E, 0x55,       // LD A,0x55
		0x22,             // LD (HL+),A
		0x32,             // LD (HL-),A
		0x2A,             // LD A,(HL+)
	}
	c := newCPUWithROM(prog)
	c.Step()
	c.Step()
	c.Step() // LD (HL+),A
	if hl := c.getHL(); hl != 0xC001 {
		t.Fatalf("HL after (HL+) write got %04x want C001", hl)
	}
	c.Step() // LD (HL-),A at 0xC001
	if hl := c.getHL(); hl != 0xC000 {
		t.Fatalf("HL after (HL-) write got %04x want C000", hl)
	}
	if v := c.MMU().Read(0xC001); v != 0x55 {
		t.Fatalf("mem C001 got %02x want 55", v)
	}
	c.A = 0
	c.Step() // LD A,(HL+)
	if c.A != 0x55 || c.getHL() != 0xC001 {
		t.Fatalf("A=%02x HL=%04x after (HL+) read, want 55/C001", c.A, c.getHL())
	}
}

func TestRotates_AccumulatorVsCB(t *testing.T) {
	// RLCA always clears Z; CB RLC A computes it.
	c := newCPUWithROM([]byte{0x07, 0xCB, 0x07}) // RLCA; RLC A
	c.A = 0x00
	c.F = flagZ
	c.Step()
	if c.F&flagZ != 0 {
		t.Fatalf("RLCA must clear Z, F=%02x", c.F)
	}
	c.A = 0x00
	if cycles := c.Step(); cycles != 8 {
		t.Fatalf("CB RLC A cycles got %d want 8", cycles)
	}
	if c.F&flagZ == 0 {
		t.Fatalf("CB RLC A of zero must set Z, F=%02x", c.F)
	}
}

func TestCB_BitResSetSwap(t *testing.T) {
	prog := []byte{
		0xCB, 0x7C, // BIT 7,H
		0xCB, 0xBC, // RES 7,H
		0xCB, 0xE4, // SET 4,H
		0xCB, 0x34, // SWAP H
	}
	c := newCPUWithROM(prog)
	c.H = 0x80
	c.F = flagC
	c.Step() // BIT 7,H: bit set -> Z clear, C preserved
	if c.F != flagH|flagC {
		t.Fatalf("BIT 7,H flags got %02x want %02x", c.F, flagH|flagC)
	}
	c.Step() // RES 7,H
	if c.H != 0x00 {
		t.Fatalf("RES 7,H got %02x want 00", c.H)
	}
	c.Step() // SET 4,H
	if c.H != 0x10 {
		t.Fatalf("SET 4,H got %02x want 10", c.H)
	}
	c.Step() // SWAP H
	if c.H != 0x01 {
		t.Fatalf("SWAP H got %02x want 01", c.H)
	}
	if c.F&flagC != 0 {
		t.Fatalf("SWAP must clear C, F=%02x", c.F)
	}
}

func TestData16_AddHLFlags(t *testing.T) {
	c := newCPUWithROM([]byte{0x09}) // ADD HL,BC
	c.setHL(0x0FFF)
	c.setBC(0x0001)
	c.F = flagZ
	c.Step()
	if hl := c.getHL(); hl != 0x1000 {
		t.Fatalf("HL got %04x want 1000", hl)
	}
	// Z untouched, N cleared, H set from bit 11, C clear.
	if c.F != flagZ|flagH {
		t.Fatalf("F got %02x want %02x", c.F, flagZ|flagH)
	}
}

func TestData16_IncDecNoFlags(t *testing.T) {
	c := newCPUWithROM([]byte{0x03, 0x0B}) // INC BC; DEC BC
	c.setBC(0x00FF)
	c.F = flagZ | flagN | flagH | flagC
	c.Step()
	if c.getBC() != 0x0100 || c.F != flagZ|flagN|flagH|flagC {
		t.Fatalf("INC BC got BC=%04x F=%02x", c.getBC(), c.F)
	}
	c.Step()
	if c.getBC() != 0x00FF {
		t.Fatalf("DEC BC got %04x want 00FF", c.getBC())
	}
}

func TestLD_a16_SP_LittleEndian(t *testing.T) {
	c := newCPUWithROM([]byte{0x08, 0x00, 0xC0}) // LD (0xC000),SP
	c.SP = 0xBEEF
	c.Step()
	if lo, hi := c.MMU().Read(0xC000), c.MMU().Read(0xC001); lo != 0xEF || hi != 0xBE {
		t.Fatalf("stored SP got %02x%02x want BEEF", hi, lo)
	}
}

func TestADD_SP_r8_Flags(t *testing.T) {
	c := newCPUWithROM([]byte{0xE8, 0xFF}) // ADD SP,-1
	c.SP = 0xFFF8
	c.Step()
	if c.SP != 0xFFF7 {
		t.Fatalf("SP got %04x want FFF7", c.SP)
	}
	// Unsigned low-byte addition 0xF8+0xFF carries out of both bit 3 and 7.
	if c.F != flagH|flagC {
		t.Fatalf("F got %02x want %02x", c.F, flagH|flagC)
	}
}

func TestLD_HL_SPr8(t *testing.T) {
	c := newCPUWithROM([]byte{0xF8, 0x02}) // LD HL,SP+2
	c.SP = 0xFFFC
	c.Step()
	if c.getHL() != 0xFFFE {
		t.Fatalf("HL got %04x want FFFE", c.getHL())
	}
	if c.F&(flagZ|flagN) != 0 {
		t.Fatalf("Z and N must be reset, F=%02x", c.F)
	}
}

// Scenario S6: interrupt dispatch clears only the serviced IF bit.
func TestInterruptDispatch(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := mmu.New()
	if err := m.LoadROM(rom); err != nil {
		t.Fatal(err)
	}
	c := New(m)
	c.IME = true
	c.PC = 0x1234
	c.SP = 0xFFFE
	m.Write(0xFFFF, 0x01)
	m.Write(0xFF0F, 0x05)

	if cycles := c.Step(); cycles != 20 {
		t.Fatalf("dispatch cycles got %d want 20", cycles)
	}
	if c.PC != 0x0040 {
		t.Fatalf("PC got %04x want 0040", c.PC)
	}
	if c.SP != 0xFFFC {
		t.Fatalf("SP got %04x want FFFC", c.SP)
	}
	if hi, lo := m.Read(0xFFFD), m.Read(0xFFFC); hi != 0x12 || lo != 0x34 {
		t.Fatalf("pushed PC got %02x%02x want 1234", hi, lo)
	}
	if c.IME {
		t.Fatalf("IME not cleared")
	}
	if got := m.Read(0xFF0F) & 0x1F; got != 0x04 {
		t.Fatalf("IF got %02x want 04 (only V-blank bit cleared)", got)
	}
}

func TestHalt_WakesOnPendingInterrupt(t *testing.T) {
	c := newCPUWithROM([]byte{0x76, 0x00}) // HALT; NOP
	c.Step()
	if !c.Halted() {
		t.Fatalf("CPU not halted after HALT")
	}
	if cycles := c.Step(); cycles != 4 || c.PC != 1 {
		t.Fatalf("halted idle got cyc=%d PC=%04x want 4/0x0001", cycles, c.PC)
	}
	// Pending but disabled interrupt wakes the core without dispatching.
	c.MMU().Write(0xFFFF, 0x04)
	c.MMU().Write(0xFF0F, 0x04)
	c.Step() // wakes, executes NOP
	if c.Halted() {
		t.Fatalf("CPU still halted despite pending interrupt")
	}
	if c.PC != 2 {
		t.Fatalf("PC got %04x want 0002", c.PC)
	}
}

func TestRETI_SetsIME(t *testing.T) {
	c := newCPUWithROM([]byte{0xD9}) // RETI
	c.SP = 0xFFFC
	c.MMU().Write(0xFFFC, 0x34)
	c.MMU().Write(0xFFFD, 0x12)
	c.Step()
	if c.PC != 0x1234 || !c.IME {
		t.Fatalf("RETI got PC=%04x IME=%v want 1234/true", c.PC, c.IME)
	}
}

func TestRST_PushesAndJumps(t *testing.T) {
	c := newCPUWithROM([]byte{0xEF}) // RST $28
	c.SP = 0xFFFE
	c.Step()
	if c.PC != 0x0028 || c.SP != 0xFFFC {
		t.Fatalf("RST got PC=%04x SP=%04x want 0028/FFFC", c.PC, c.SP)
	}
}

func TestJP_HL(t *testing.T) {
	c := newCPUWithROM([]byte{0xE9}) // JP (HL)
	c.setHL(0x4321)
	if cycles := c.Step(); cycles != 4 || c.PC != 0x4321 {
		t.Fatalf("JP (HL) got cyc=%d PC=%04x want 4/4321", cycles, c.PC)
	}
}

func TestUndefinedOpcodePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("executing an undefined opcode must panic")
		}
	}()
	c := newCPUWithROM([]byte{0xD3})
	c.Step()
}

func TestFLowNibble_AfterManySteps(t *testing.T) {
	prog := []byte{
		0x3E, 0x0F, // LD A,0x0F
		0xC6, 0x01, // ADD A,1
		0x27,       // DAA
		0x2F,       // CPL
		0x37,       // SCF
		0x3F,       // CCF
		0x1F,       // RRA
	}
	c := newCPUWithROM(prog)
	for i := 0; i < 7; i++ {
		c.Step()
		if c.F&0x0F != 0 {
			t.Fatalf("step %d: low nibble of F not zero: %02x", i, c.F)
		}
	}
}
