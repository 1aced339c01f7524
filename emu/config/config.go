// Package config turns viper settings into emulator options.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/beanboi7/chyp8/emu/clock"
	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/display"
	"github.com/spf13/viper"
)

// Setting keys, shared by config files, environment variables and flags.
const (
	KeyClock       = "clock"
	KeyPreset      = "quirks.preset"
	KeyShift       = "quirks.shift"
	KeyIndex       = "quirks.index"
	KeyWrap        = "quirks.wrap"
	KeyLogic       = "quirks.logic"
	KeyStack       = "stack"
	KeyDrawSync    = "drawsync"
	KeyVSync       = "vsync"
	KeyFullscreen  = "fullscreen"
	KeyScale       = "scale"
	KeyWidth       = "width"
	KeyHeight      = "height"
	KeyForeground  = "foreground"
	KeyBackground  = "background"
	KeyFrontend    = "frontend"
	KeyBeep        = "beep"
	KeyVolume      = "volume"
	KeyDebug       = "debug"
	KeyQuiet       = "quiet"
	PresetOriginal = "original"
	PresetModern   = "modern"
	FrontendWindow = "window"
	FrontendTerm   = "terminal"
)

const (
	DefaultScale      = 10
	DefaultForeground = "FFFFFF"
	DefaultBackground = "000000"
)

// Options holds everything needed to start a session.
type Options struct {
	ClockHz    int
	Quirks     cpu.Quirks
	StackDepth int

	Frontend   string
	DrawSync   bool
	VSync      bool
	Fullscreen bool
	Width      int
	Height     int
	Foreground color.RGBA
	Background color.RGBA

	BeepFile string
	Volume   float64
}

// SetDefaults registers the default value of every setting.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyClock, clock.DefaultHz)
	v.SetDefault(KeyPreset, PresetOriginal)
	v.SetDefault(KeyStack, cpu.DefaultStackDepth)
	v.SetDefault(KeyDrawSync, true)
	v.SetDefault(KeyVSync, true)
	v.SetDefault(KeyFullscreen, false)
	v.SetDefault(KeyScale, DefaultScale)
	v.SetDefault(KeyWidth, 0)
	v.SetDefault(KeyHeight, 0)
	v.SetDefault(KeyForeground, DefaultForeground)
	v.SetDefault(KeyBackground, DefaultBackground)
	v.SetDefault(KeyFrontend, FrontendWindow)
	v.SetDefault(KeyBeep, "")
	v.SetDefault(KeyVolume, 0.0)
}

// Load validates the settings of v and returns the resulting options.
// Quirks start from the selected preset, individually set quirk keys
// override it.
func Load(v *viper.Viper) (Options, error) {
	opts := Options{
		ClockHz:    v.GetInt(KeyClock),
		StackDepth: v.GetInt(KeyStack),
		Frontend:   strings.ToLower(v.GetString(KeyFrontend)),
		DrawSync:   v.GetBool(KeyDrawSync),
		VSync:      v.GetBool(KeyVSync),
		Fullscreen: v.GetBool(KeyFullscreen),
		BeepFile:   v.GetString(KeyBeep),
		Volume:     v.GetFloat64(KeyVolume),
	}

	if opts.ClockHz <= 0 {
		return Options{}, fmt.Errorf("invalid clock speed %d, must be positive", opts.ClockHz)
	}
	if opts.StackDepth <= 0 {
		return Options{}, fmt.Errorf("invalid stack depth %d, must be positive", opts.StackDepth)
	}
	switch opts.Frontend {
	case FrontendWindow, FrontendTerm:
	default:
		return Options{}, fmt.Errorf("unsupported frontend '%s'", opts.Frontend)
	}

	quirks, err := loadQuirks(v)
	if err != nil {
		return Options{}, err
	}
	opts.Quirks = quirks

	opts.Width, opts.Height, err = WindowSize(v.GetInt(KeyScale), v.GetInt(KeyWidth), v.GetInt(KeyHeight))
	if err != nil {
		return Options{}, err
	}

	if opts.Foreground, err = ParseColor(v.GetString(KeyForeground)); err != nil {
		return Options{}, fmt.Errorf("parsing foreground color: %w", err)
	}
	if opts.Background, err = ParseColor(v.GetString(KeyBackground)); err != nil {
		return Options{}, fmt.Errorf("parsing background color: %w", err)
	}
	return opts, nil
}

func loadQuirks(v *viper.Viper) (cpu.Quirks, error) {
	var quirks cpu.Quirks
	switch preset := strings.ToLower(v.GetString(KeyPreset)); preset {
	case PresetOriginal, "":
		quirks = cpu.DefaultQuirks()
	case PresetModern:
		quirks = cpu.ModernQuirks()
	default:
		return cpu.Quirks{}, fmt.Errorf("unsupported quirks preset '%s'", preset)
	}

	overrides := []struct {
		key   string
		field *bool
	}{
		{KeyShift, &quirks.ShiftUsesVY},
		{KeyIndex, &quirks.IncrementIndex},
		{KeyWrap, &quirks.WrapSprites},
		{KeyLogic, &quirks.ResetFlagOnLogic},
	}
	for _, o := range overrides {
		if v.IsSet(o.key) {
			*o.field = v.GetBool(o.key)
		}
	}
	return quirks, nil
}

// WindowSize returns the window size in pixels. An explicit width and
// height take precedence over the scale factor.
func WindowSize(scale, width, height int) (int, int, error) {
	if width < 0 || height < 0 {
		return 0, 0, fmt.Errorf("invalid window size %dx%d", width, height)
	}
	if width > 0 && height > 0 {
		return width, height, nil
	}
	if width > 0 || height > 0 {
		return 0, 0, errors.New("window width and height have to be set together")
	}
	if scale <= 0 {
		return 0, 0, fmt.Errorf("invalid scale %d, must be positive", scale)
	}
	return display.Width * scale, display.Height * scale, nil
}

// ParseColor parses a color given as RRGGBB hex, optionally prefixed by
// '#' or '0x', or as a decimal "r,g,b" triple.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)

	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return color.RGBA{}, fmt.Errorf("color '%s' needs 3 channels", s)
		}
		var channels [3]uint8
		for i, part := range parts {
			value, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
			if err != nil {
				return color.RGBA{}, fmt.Errorf("invalid color channel '%s': %w", part, err)
			}
			channels[i] = uint8(value)
		}
		return color.RGBA{R: channels[0], G: channels[1], B: channels[2], A: 0xFF}, nil
	}

	hex := strings.TrimPrefix(s, "#")
	hex = strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("color '%s' is not in RRGGBB format", s)
	}
	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color '%s': %w", s, err)
	}
	return color.RGBA{
		R: uint8(value >> 16),
		G: uint8(value >> 8),
		B: uint8(value),
		A: 0xFF,
	}, nil
}
