// Package ppu implements the pixel-processing unit as a coarse state machine
// (OAM search, drawing, H-blank, V-blank) driven by the CPU's cycle budget.
// It renders background, window, and sprites into a caller-supplied 160x144
// RGBA framebuffer and raises the V-blank and STAT interrupts through the MMU.
package ppu

import "github.com/mkellner/dmgboy/internal/mmu"

const (
	Width  = 160
	Height = 144
)

// STAT mode bits.
const (
	ModeHBlank    byte = 0
	ModeVBlank    byte = 1
	ModeOAMSearch byte = 2
	ModeDrawing   byte = 3
)

// Phase durations in cycles. A full scanline is 456 cycles; the visible
// frame plus ten V-blank lines makes 154*456 = 70224 cycles.
const (
	oamCycles    = 80
	drawCycles   = Width // one pixel per cycle
	lineCycles   = 456
	hblankCycles = lineCycles - oamCycles - drawCycles
	lastLine     = 153
)

// LCDC bits.
const (
	lcdcBGEnable      = 1 << 0
	lcdcOBJEnable     = 1 << 1
	lcdcOBJSize       = 1 << 2
	lcdcBGMap         = 1 << 3
	lcdcTileData      = 1 << 4
	lcdcWindowEnable  = 1 << 5
	lcdcWindowMap     = 1 << 6
	lcdcDisplayEnable = 1 << 7
)

// OAM attribute flags.
const (
	oamPalette1 = 1 << 4
	oamFlipX    = 1 << 5
	oamFlipY    = 1 << 6
	oamPriority = 1 << 7
)

// Palette maps the four DMG shades to RGBA.
var Palette = [4][4]byte{
	{0xE0, 0xF8, 0xD0, 0xFF},
	{0x88, 0xC0, 0x70, 0xFF},
	{0x34, 0x68, 0x56, 0xFF},
	{0x08, 0x18, 0x20, 0xFF},
}

type sprite struct {
	y, x, tile, flags byte
}

type PPU struct {
	mode byte
	ly   byte
	x    int // pixel cursor during Drawing

	cyclesLeft int // budget surplus carried across RunFor calls
	lineLeft   int // cycles remaining in the current phase

	sprites  [10]sprite // visible sprites on the current line, OAM order
	nsprites int
}

func New() *PPU {
	return &PPU{mode: ModeOAMSearch, lineLeft: oamCycles}
}

// LY returns the current scanline (0-153).
func (p *PPU) LY() byte { return p.ly }

// Mode returns the current STAT mode.
func (p *PPU) Mode() byte { return p.mode }

// RunFor consumes the given cycle budget, advancing the mode state machine
// and producing pixels into fb (RGBA, 160*144*4 bytes; nil skips rendering).
// Surplus cycles are carried to the next call. Afterwards the current mode
// and LY are published to 0xFF41/0xFF44.
func (p *PPU) RunFor(m *mmu.MMU, fb []byte, cycles int) {
	p.cyclesLeft += cycles

	if m.Read(0xFF40)&lcdcDisplayEnable == 0 {
		// LCD off: swallow the budget and park at line 0.
		p.cyclesLeft = 0
		p.mode = ModeOAMSearch
		p.ly = 0
		p.x = 0
		p.lineLeft = oamCycles
		p.nsprites = 0
		p.publish(m)
		return
	}

	for p.cyclesLeft > 0 {
		switch p.mode {
		case ModeOAMSearch:
			if p.lineLeft == oamCycles {
				p.scanOAM(m)
				p.x = 0
			}
			p.consume()
			if p.lineLeft == 0 {
				p.setMode(m, ModeDrawing)
				p.lineLeft = drawCycles
			}
		case ModeDrawing:
			for p.cyclesLeft > 0 && p.x < Width {
				p.drawPixel(m, fb)
				p.x++
				p.cyclesLeft--
				p.lineLeft--
			}
			if p.x >= Width {
				p.setMode(m, ModeHBlank)
				p.lineLeft = hblankCycles
			}
		case ModeHBlank:
			p.consume()
			if p.lineLeft == 0 {
				p.ly++
				p.compareLY(m)
				if p.ly >= Height {
					p.setMode(m, ModeVBlank)
					m.FlagInterrupt(mmu.IntVBlank)
					p.lineLeft = lineCycles
				} else {
					p.setMode(m, ModeOAMSearch)
					p.lineLeft = oamCycles
				}
			}
		case ModeVBlank:
			p.consume()
			if p.lineLeft == 0 {
				if p.ly >= lastLine {
					p.ly = 0
					p.compareLY(m)
					p.setMode(m, ModeOAMSearch)
					p.lineLeft = oamCycles
				} else {
					p.ly++
					p.compareLY(m)
					p.lineLeft = lineCycles
				}
			}
		}
	}
	p.publish(m)
}

// consume moves cycles from the budget into the current phase.
func (p *PPU) consume() {
	n := p.lineLeft
	if n > p.cyclesLeft {
		n = p.cyclesLeft
	}
	p.lineLeft -= n
	p.cyclesLeft -= n
}

// setMode switches the STAT mode and raises the mode-entry STAT interrupt
// if the matching enable bit is set.
func (p *PPU) setMode(m *mmu.MMU, mode byte) {
	if p.mode == mode {
		return
	}
	p.mode = mode
	stat := m.Read(0xFF41)
	switch mode {
	case ModeHBlank:
		if stat&(1<<3) != 0 {
			m.FlagInterrupt(mmu.IntStat)
		}
	case ModeVBlank:
		if stat&(1<<4) != 0 {
			m.FlagInterrupt(mmu.IntStat)
		}
	case ModeOAMSearch:
		if stat&(1<<5) != 0 {
			m.FlagInterrupt(mmu.IntStat)
		}
	}
	p.publish(m)
}

// compareLY updates the coincidence flag and raises the LYC STAT interrupt.
func (p *PPU) compareLY(m *mmu.MMU) {
	if p.ly == m.Read(0xFF45) && m.Read(0xFF41)&(1<<6) != 0 {
		m.FlagInterrupt(mmu.IntStat)
	}
	p.publish(m)
}

// publish writes the current mode and coincidence flag into STAT and the
// current scanline into LY, bypassing the MMU's write protection.
func (p *PPU) publish(m *mmu.MMU) {
	stat := m.Read(0xFF41)&^0x07 | p.mode
	if p.ly == m.Read(0xFF45) {
		stat |= 1 << 2
	}
	m.Poke(0xFF41, stat)
	m.Poke(0xFF44, p.ly)
}

// scanOAM collects up to 10 sprites visible on the current line, in OAM
// order. A sprite is visible when pos_x > 0 and LY+16 falls within
// [pos_y, pos_y+h).
func (p *PPU) scanOAM(m *mmu.MMU) {
	h := 8
	if m.Read(0xFF40)&lcdcOBJSize != 0 {
		h = 16
	}
	p.nsprites = 0
	for i := 0; i < 40 && p.nsprites < len(p.sprites); i++ {
		base := uint16(0xFE00 + i*4)
		s := sprite{
			y:     m.Read(base),
			x:     m.Read(base + 1),
			tile:  m.Read(base + 2),
			flags: m.Read(base + 3),
		}
		row := int(p.ly) + 16 - int(s.y)
		if s.x > 0 && row >= 0 && row < h {
			p.sprites[p.nsprites] = s
			p.nsprites++
		}
	}
}
