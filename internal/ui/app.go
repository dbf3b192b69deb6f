// Package ui is the ebiten front end: it polls the keyboard into the joypad
// latch, runs one machine frame per tick, and blits the framebuffer.
package ui

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/mkellner/dmgboy/internal/emu"
	"github.com/mkellner/dmgboy/internal/ppu"
)

type App struct {
	cfg    Config
	m      *emu.Machine
	tex    *ebiten.Image
	paused bool
}

func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(ppu.Width*cfg.Scale, ppu.Height*cfg.Scale)
	return &App{cfg: cfg, m: m}
}

func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.m.Reset()
	}

	var b emu.Buttons
	b.Right = ebiten.IsKeyPressed(ebiten.KeyRight)
	b.Left = ebiten.IsKeyPressed(ebiten.KeyLeft)
	b.Up = ebiten.IsKeyPressed(ebiten.KeyUp)
	b.Down = ebiten.IsKeyPressed(ebiten.KeyDown)
	b.A = ebiten.IsKeyPressed(ebiten.KeyZ)
	b.B = ebiten.IsKeyPressed(ebiten.KeyX)
	b.Start = ebiten.IsKeyPressed(ebiten.KeyEnter)
	b.Select = ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	a.m.SetButtons(b)

	if !a.paused {
		a.m.StepFrame()
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(ppu.Width, ppu.Height)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	screen.DrawImage(a.tex, nil)
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ppu.Width, ppu.Height
}
