package ui

// Config contains window/input related settings.
type Config struct {
	Title string // window title
	Scale int    // integer upscaling factor
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "dmgboy"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
}
