package ppu

import "github.com/mkellner/dmgboy/internal/mmu"

// drawPixel produces the pixel at (x, LY): background, window overlay, then
// the first opaque sprite from the OAM scan, honoring the priority flag.
func (p *PPU) drawPixel(m *mmu.MMU, fb []byte) {
	if fb == nil {
		return
	}
	lcdc := m.Read(0xFF40)

	// Background color index (pre-palette); the priority rule below needs it.
	var bgIndex byte
	if lcdc&lcdcBGEnable != 0 {
		bgIndex = p.bgPixel(m, lcdc)
	}
	if lcdc&lcdcWindowEnable != 0 {
		wy := int(m.Read(0xFF4A))
		wx := int(m.Read(0xFF4B)) - 7
		if int(p.ly) >= wy && p.x >= wx {
			bgIndex = p.windowPixel(m, lcdc, p.x-wx, int(p.ly)-wy)
		}
	}
	shade := m.Read(0xFF47) >> (bgIndex * 2) & 0x03

	if lcdc&lcdcOBJEnable != 0 {
		if ci, pal, behindBG, ok := p.spritePixel(m, lcdc); ok {
			if !(behindBG && bgIndex != 0) {
				shade = pal >> (ci * 2) & 0x03
			}
		}
	}

	off := (int(p.ly)*Width + p.x) * 4
	copy(fb[off:off+4], Palette[shade][:])
}

// bgPixel maps (x, LY) through SCX/SCY into the 256x256 background plane.
func (p *PPU) bgPixel(m *mmu.MMU, lcdc byte) byte {
	yVirt := (int(p.ly) + int(m.Read(0xFF42))) & 0xFF
	xVirt := (p.x + int(m.Read(0xFF43))) & 0xFF
	mapBase := uint16(0x9800)
	if lcdc&lcdcBGMap != 0 {
		mapBase = 0x9C00
	}
	return tilePixel(m, lcdc, mapBase, xVirt, yVirt)
}

func (p *PPU) windowPixel(m *mmu.MMU, lcdc byte, wx, wy int) byte {
	mapBase := uint16(0x9800)
	if lcdc&lcdcWindowMap != 0 {
		mapBase = 0x9C00
	}
	return tilePixel(m, lcdc, mapBase, wx, wy)
}

// tilePixel fetches the 2-bit color index for a coordinate within a 256x256
// tile plane. Tile data comes from 0x8000 with unsigned ids, or from the
// signed 0x8800 region with origin 0x9000.
func tilePixel(m *mmu.MMU, lcdc byte, mapBase uint16, x, y int) byte {
	tile := m.Read(mapBase + uint16(y/8)*32 + uint16(x/8))
	var addr uint16
	if lcdc&lcdcTileData != 0 {
		addr = 0x8000 + uint16(tile)*16
	} else {
		addr = uint16(0x9000 + int(int8(tile))*16)
	}
	row := uint16(y % 8 * 2)
	lo := m.Read(addr + row)
	hi := m.Read(addr + row + 1)
	bit := uint(7 - x%8)
	return (hi>>bit&1)<<1 | lo>>bit&1
}

// spritePixel returns the first opaque sprite pixel at the cursor, its
// palette, and whether the sprite sits behind non-zero background colors.
func (p *PPU) spritePixel(m *mmu.MMU, lcdc byte) (ci, pal byte, behindBG, ok bool) {
	h := 8
	if lcdc&lcdcOBJSize != 0 {
		h = 16
	}
	for i := 0; i < p.nsprites; i++ {
		s := p.sprites[i]
		px := p.x - (int(s.x) - 8)
		if px < 0 || px > 7 {
			continue
		}
		row := int(p.ly) + 16 - int(s.y)
		if s.flags&oamFlipY != 0 {
			row = h - 1 - row
		}
		tile := s.tile
		if h == 16 {
			tile &= 0xFE
		}
		if row >= 8 {
			tile++
			row -= 8
		}
		bit := uint(7 - px)
		if s.flags&oamFlipX != 0 {
			bit = uint(px)
		}
		addr := 0x8000 + uint16(tile)*16 + uint16(row)*2
		lo := m.Read(addr)
		hi := m.Read(addr + 1)
		c := (hi>>bit&1)<<1 | lo>>bit&1
		if c == 0 {
			continue // transparent
		}
		pal = m.Read(0xFF48)
		if s.flags&oamPalette1 != 0 {
			pal = m.Read(0xFF49)
		}
		return c, pal, s.flags&oamPriority != 0, true
	}
	return 0, 0, false, false
}
