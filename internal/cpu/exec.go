package cpu

import (
	"fmt"

	"github.com/mkellner/dmgboy/internal/isa"
)

// ALU helpers return the result plus the computed flag values; the caller
// applies the instruction's flag policies.

func add8(a, b, ci byte) (r byte, z, h, cy bool) {
	sum := uint16(a) + uint16(b) + uint16(ci)
	r = byte(sum)
	z = r == 0
	h = (a&0x0F)+(b&0x0F)+ci > 0x0F
	cy = sum > 0xFF
	return
}

func sub8(a, b, ci byte) (r byte, z, h, cy bool) {
	diff := int16(a) - int16(b) - int16(ci)
	r = byte(diff)
	z = r == 0
	h = int16(a&0x0F)-int16(b&0x0F)-int16(ci) < 0
	cy = diff < 0
	return
}

// daa applies the canonical DMG BCD correction to a under the current flags.
func daa(a, f byte) (r byte, z, cy bool) {
	cy = f&flagC != 0
	if f&flagN == 0 {
		if f&flagH != 0 || a&0x0F > 0x09 {
			a += 0x06
		}
		if cy || a > 0x9F {
			a += 0x60
			cy = true
		}
	} else {
		if f&flagH != 0 {
			a -= 0x06
		}
		if cy {
			a -= 0x60
		}
	}
	return a, a == 0, cy
}

func (c *CPU) execData8(op isa.Data8, imm uint16) {
	var d byte
	if op.Dst != isa.L8None {
		d = c.readLoc8(op.Dst, imm)
	}
	var s byte
	if op.Src != isa.L8None {
		s = c.readLoc8(op.Src, imm)
	}
	carryIn := byte(0)
	if c.F&flagC != 0 {
		carryIn = 1
	}

	var r byte
	var z, h, cy bool
	switch op.Op {
	case isa.Ld8:
		r = s
	case isa.Add:
		r, z, h, cy = add8(d, s, 0)
	case isa.Adc:
		r, z, h, cy = add8(d, s, carryIn)
	case isa.Sub:
		r, z, h, cy = sub8(d, s, 0)
	case isa.Sbc:
		r, z, h, cy = sub8(d, s, carryIn)
	case isa.And:
		r = d & s
		z = r == 0
	case isa.Xor:
		r = d ^ s
		z = r == 0
	case isa.Or:
		r = d | s
		z = r == 0
	case isa.Inc8:
		r = d + 1
		z = r == 0
		h = d&0x0F == 0x0F
	case isa.Dec8:
		r = d - 1
		z = r == 0
		h = d&0x0F == 0x00
	case isa.Cpl:
		r = ^d
	case isa.Daa:
		r, z, cy = daa(d, c.F)
	case isa.Rlc:
		cy = d&0x80 != 0
		r = d<<1 | d>>7
		z = r == 0
	case isa.Rrc:
		cy = d&0x01 != 0
		r = d>>1 | d<<7
		z = r == 0
	case isa.Rl:
		cy = d&0x80 != 0
		r = d<<1 | carryIn
		z = r == 0
	case isa.Rr:
		cy = d&0x01 != 0
		r = d>>1 | carryIn<<7
		z = r == 0
	case isa.Sla:
		cy = d&0x80 != 0
		r = d << 1
		z = r == 0
	case isa.Sra:
		cy = d&0x01 != 0
		r = d>>1 | d&0x80
		z = r == 0
	case isa.Srl:
		cy = d&0x01 != 0
		r = d >> 1
		z = r == 0
	case isa.Swap:
		r = d<<4 | d>>4
		z = r == 0
	case isa.Bit:
		z = s&(1<<op.Bit) == 0
	case isa.Res:
		r = s &^ (1 << op.Bit)
	case isa.Set:
		r = s | 1<<op.Bit
	}

	c.applyFlags(op.Z, op.N, op.H, op.C, z, h, cy)
	if op.Op != isa.Bit && op.Dst != isa.L8None {
		c.writeLoc8(op.Dst, imm, r)
	}
	c.applyHLDelta()
}

func (c *CPU) execData16(op isa.Data16, imm uint16) {
	switch op.Op {
	case isa.Ld16:
		c.writeLoc16(op.Dst, imm, c.readLoc16(op.Src, imm))
	case isa.Add16:
		d := c.readLoc16(op.Dst, imm)
		s := c.readLoc16(op.Src, imm)
		sum := uint32(d) + uint32(s)
		h := d&0x0FFF+s&0x0FFF > 0x0FFF
		c.writeLoc16(op.Dst, imm, uint16(sum))
		c.applyFlags(op.Z, op.N, op.H, op.C, false, h, sum > 0xFFFF)
	case isa.Inc16:
		c.writeLoc16(op.Dst, imm, c.readLoc16(op.Dst, imm)+1)
	case isa.Dec16:
		c.writeLoc16(op.Dst, imm, c.readLoc16(op.Dst, imm)-1)
	}
}

// execSpImm8 adds a sign-extended immediate to SP; H and C come from adding
// the unsigned low bytes.
func (c *CPU) execSpImm8(op isa.SpImm8, imm uint16) {
	off := int8(byte(imm))
	_, _, h, cy := add8(byte(c.SP), byte(off), 0)
	res := uint16(int32(c.SP) + int32(off))
	switch op.Dst {
	case isa.L16HL:
		c.setHL(res)
	case isa.L16SP:
		c.SP = res
	}
	c.setZNHC(false, false, h, cy)
}

func (c *CPU) condSatisfied(cond isa.Cond) bool {
	switch cond {
	case isa.CondZ:
		return c.F&flagZ != 0
	case isa.CondNZ:
		return c.F&flagZ == 0
	case isa.CondC:
		return c.F&flagC != 0
	case isa.CondNC:
		return c.F&flagC == 0
	}
	return true
}

func (c *CPU) execJump(instr *isa.Instruction, op isa.Jump, imm uint16) int {
	if !c.condSatisfied(op.Cond) {
		return instr.CyclesNotTaken
	}
	var target uint16
	switch instr.Length {
	case 3:
		target = imm
	case 2:
		// PC has already advanced past the instruction.
		target = uint16(int32(c.PC) + int32(int8(byte(imm))))
	default:
		if op.Op == isa.Jp {
			target = c.getHL() // JP (HL)
		} else {
			target = uint16(op.RstTarget)
		}
	}
	switch op.Op {
	case isa.Jp, isa.Jr:
		c.PC = target
	case isa.Call, isa.Rst:
		c.push16(c.PC)
		c.PC = target
	case isa.Ret:
		c.PC = c.pop16()
	case isa.Reti:
		c.PC = c.pop16()
		c.IME = true
	}
	return instr.Cycles
}

// applyFlags merges the computed flag values into F per the instruction's
// per-flag policies. N is never calculated; the table guarantees that.
func (c *CPU) applyFlags(zp, np, hp, cp isa.FlagPolicy, z, h, cy bool) {
	f := c.F
	merge := func(mask byte, pol isa.FlagPolicy, val bool) {
		switch pol {
		case isa.FlagSet:
			f |= mask
		case isa.FlagReset:
			f &^= mask
		case isa.FlagCalc:
			if val {
				f |= mask
			} else {
				f &^= mask
			}
		}
	}
	merge(flagZ, zp, z)
	merge(flagN, np, false)
	merge(flagH, hp, h)
	merge(flagC, cp, cy)
	c.F = f & 0xF0
}

func (c *CPU) applyHLDelta() {
	if c.hlDelta != 0 {
		c.setHL(uint16(int(c.getHL()) + c.hlDelta))
		c.hlDelta = 0
	}
}

func (c *CPU) readLoc8(loc isa.Loc8, imm uint16) byte {
	switch loc {
	case isa.L8A, isa.L8ARO:
		return c.A
	case isa.L8B:
		return c.B
	case isa.L8C:
		return c.C
	case isa.L8D:
		return c.D
	case isa.L8E:
		return c.E
	case isa.L8H:
		return c.H
	case isa.L8L:
		return c.L
	case isa.L8Imm8:
		return byte(imm)
	case isa.L8IndBC:
		return c.read8(c.getBC())
	case isa.L8IndDE:
		return c.read8(c.getDE())
	case isa.L8IndHL:
		return c.read8(c.getHL())
	case isa.L8IndHLInc:
		c.hlDelta = 1
		return c.read8(c.getHL())
	case isa.L8IndHLDec:
		c.hlDelta = -1
		return c.read8(c.getHL())
	case isa.L8IndImm16:
		return c.read8(imm)
	case isa.L8HighC:
		return c.read8(0xFF00 | uint16(c.C))
	case isa.L8HighImm8:
		return c.read8(0xFF00 | imm&0xFF)
	}
	panic(fmt.Sprintf("cpu: illegal 8-bit read location %d at PC=%04X", loc, c.PC))
}

func (c *CPU) writeLoc8(loc isa.Loc8, imm uint16, v byte) {
	switch loc {
	case isa.L8A:
		c.A = v
	case isa.L8ARO:
		// result discarded (CP)
	case isa.L8B:
		c.B = v
	case isa.L8C:
		c.C = v
	case isa.L8D:
		c.D = v
	case isa.L8E:
		c.E = v
	case isa.L8H:
		c.H = v
	case isa.L8L:
		c.L = v
	case isa.L8IndBC:
		c.write8(c.getBC(), v)
	case isa.L8IndDE:
		c.write8(c.getDE(), v)
	case isa.L8IndHL:
		c.write8(c.getHL(), v)
	case isa.L8IndHLInc:
		c.hlDelta = 1
		c.write8(c.getHL(), v)
	case isa.L8IndHLDec:
		c.hlDelta = -1
		c.write8(c.getHL(), v)
	case isa.L8IndImm16:
		c.write8(imm, v)
	case isa.L8HighC:
		c.write8(0xFF00|uint16(c.C), v)
	case isa.L8HighImm8:
		c.write8(0xFF00|imm&0xFF, v)
	default:
		panic(fmt.Sprintf("cpu: illegal 8-bit write location %d at PC=%04X", loc, c.PC))
	}
}

func (c *CPU) readLoc16(loc isa.Loc16, imm uint16) uint16 {
	switch loc {
	case isa.L16AF:
		return uint16(c.A)<<8 | uint16(c.F&0xF0)
	case isa.L16BC:
		return c.getBC()
	case isa.L16DE:
		return c.getDE()
	case isa.L16HL:
		return c.getHL()
	case isa.L16SP:
		return c.SP
	case isa.L16Imm16:
		return imm
	case isa.L16SPInc:
		return c.pop16()
	case isa.L16IndImm16:
		return c.read16(imm)
	}
	panic(fmt.Sprintf("cpu: illegal 16-bit read location %d at PC=%04X", loc, c.PC))
}

func (c *CPU) writeLoc16(loc isa.Loc16, imm uint16, v uint16) {
	switch loc {
	case isa.L16AF:
		c.A = byte(v >> 8)
		c.F = byte(v) & 0xF0 // low nibble of F is hardwired to zero
	case isa.L16BC:
		c.setBC(v)
	case isa.L16DE:
		c.setDE(v)
	case isa.L16HL:
		c.setHL(v)
	case isa.L16SP:
		c.SP = v
	case isa.L16SPDec:
		c.push16(v)
	case isa.L16IndImm16:
		c.write16(imm, v)
	default:
		panic(fmt.Sprintf("cpu: illegal 16-bit write location %d at PC=%04X", loc, c.PC))
	}
}
