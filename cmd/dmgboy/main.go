package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mkellner/dmgboy/internal/emu"
	"github.com/mkellner/dmgboy/internal/ppu"
	"github.com/mkellner/dmgboy/internal/ui"
)

type cliFlags struct {
	ROMPath string
	BootROM string
	Scale   int
	Title   string
	Trace   bool
	Steps   int

	// headless
	Headless bool
	Frames   int
	PNGOut   string
	Expect   string // expected framebuffer CRC32 hex
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gb)")
	flag.StringVar(&f.BootROM, "bootrom", "", "optional DMG boot ROM")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "dmgboy", "window title")
	flag.BoolVar(&f.Trace, "trace", false, "print a CPU trace line per step and exit after -steps")
	flag.IntVar(&f.Steps, "steps", 1_000_000, "max CPU steps in trace mode")

	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

func runHeadless(m *emu.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}
	start := time.Now()
	for i := 0; i < frames; i++ {
		m.StepFrame()
	}
	dur := time.Since(start)

	fb := m.Framebuffer()
	crc := crc32.ChecksumIEEE(fb)
	fps := float64(frames) / dur.Seconds()
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := saveFramePNG(fb, ppu.Width, ppu.Height, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}
	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func runTrace(m *emu.Machine, steps int) {
	c := m.CPU()
	for i := 0; i < steps; i++ {
		pc := c.PC
		op := m.MMU().Read(pc)
		cyc := m.Step()
		fmt.Printf("PC=%04X OP=%02X cyc=%d A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t\n",
			pc, op, cyc, c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L, c.SP, c.IME)
	}
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    make([]byte, len(pix)),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	copy(img.Pix, pix)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func mustRead(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func main() {
	f := parseFlags()
	if f.ROMPath == "" {
		log.Fatal("-rom is required")
	}
	rom := mustRead(f.ROMPath)
	boot := mustRead(f.BootROM)

	m := emu.New(emu.Config{Trace: f.Trace})
	if len(boot) > 0 {
		if err := m.LoadBootROM(boot); err != nil {
			log.Fatalf("load boot ROM: %v", err)
		}
	}
	if err := m.LoadROM(rom); err != nil {
		log.Fatalf("load ROM: %v", err)
	}
	m.Reset()

	if f.Trace {
		runTrace(m, f.Steps)
		return
	}
	if f.Headless {
		if err := runHeadless(m, f.Frames, f.PNGOut, f.Expect); err != nil {
			log.Fatal(err)
		}
		return
	}

	app := ui.NewApp(ui.Config{Title: f.Title, Scale: f.Scale}, m)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
