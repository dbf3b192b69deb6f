// Package emu composes CPU, MMU, and PPU into a steppable machine.
package emu

import (
	"github.com/mkellner/dmgboy/internal/cpu"
	"github.com/mkellner/dmgboy/internal/mmu"
	"github.com/mkellner/dmgboy/internal/ppu"
)

// CyclesPerFrame is the DMG frame period: 154 scanlines of 456 cycles each,
// about 59.7 Hz.
const CyclesPerFrame = 70224

type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= mmu.BtnRight
	}
	if b.Left {
		m |= mmu.BtnLeft
	}
	if b.Up {
		m |= mmu.BtnUp
	}
	if b.Down {
		m |= mmu.BtnDown
	}
	if b.A {
		m |= mmu.BtnA
	}
	if b.B {
		m |= mmu.BtnB
	}
	if b.Select {
		m |= mmu.BtnSelect
	}
	if b.Start {
		m |= mmu.BtnStart
	}
	return m
}

type Machine struct {
	cfg Config

	mmu *mmu.MMU
	cpu *cpu.CPU
	ppu *ppu.PPU

	fb      []byte // RGBA 160x144*4
	surplus int    // cycles run past the previous frame budget
}

func New(cfg Config) *Machine {
	m := &Machine{
		cfg: cfg,
		mmu: mmu.New(),
		ppu: ppu.New(),
		fb:  make([]byte, ppu.Width*ppu.Height*4),
	}
	m.cpu = cpu.New(m.mmu)
	return m
}

func (m *Machine) LoadROM(data []byte) error     { return m.mmu.LoadROM(data) }
func (m *Machine) LoadBootROM(data []byte) error { return m.mmu.LoadBootROM(data) }

// Reset prepares the CPU for execution. With a boot ROM mapped, execution
// starts from a zeroed core at 0x0000 and the boot code initializes the IO
// registers itself; without one, registers and IO get DMG post-boot values
// and execution starts at the cartridge entry point 0x0100.
func (m *Machine) Reset() {
	m.cpu = cpu.New(m.mmu)
	m.ppu = ppu.New()
	if m.mmu.BootROMEnabled() {
		return
	}
	m.cpu.ResetNoBoot()
	m.mmu.Write(0xFF40, 0x91) // LCD on, BG enabled, tile data at 0x8000, sprites off
	m.mmu.Write(0xFF47, 0xFC) // BGP
	m.mmu.Write(0xFF48, 0xFF) // OBP0
	m.mmu.Write(0xFF49, 0xFF) // OBP1
}

// Step runs one CPU instruction and forwards its cycle count to the PPU and
// timer, returning the cycles consumed.
func (m *Machine) Step() int {
	cycles := m.cpu.Step()
	m.ppu.RunFor(m.mmu, m.fb, cycles)
	m.mmu.Tick(cycles)
	return cycles
}

// StepFrame runs one video frame's worth of cycles. Instruction overshoot is
// carried into the next frame so long-run timing stays exact.
func (m *Machine) StepFrame() {
	cycles := m.surplus
	for cycles < CyclesPerFrame {
		cycles += m.Step()
	}
	m.surplus = cycles - CyclesPerFrame
}

// SetButtons latches the joypad state for subsequent reads of 0xFF00.
func (m *Machine) SetButtons(b Buttons) { m.mmu.SetButtons(b.mask()) }

// Framebuffer returns the RGBA pixels of the most recent frame.
func (m *Machine) Framebuffer() []byte { return m.fb }

// CPU and MMU expose the parts for tools and tests.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }
func (m *Machine) MMU() *mmu.MMU { return m.mmu }
