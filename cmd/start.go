package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/beanboi7/chyp8/chyp"
	"github.com/beanboi7/chyp8/emu/audio"
	"github.com/beanboi7/chyp8/emu/config"
	"github.com/beanboi7/chyp8/emu/screen"
	"github.com/retroenv/retrogolib/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// chyp8 start 'path/to/ROM' -c 700 --quirks modern
func newStartCmd(v *viper.Viper) *cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start `path/ROM`",
		Short: "load and start the Emulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Start(v, args[0])
		},
	}

	config.SetDefaults(v)
	flags := startCmd.Flags()
	flags.IntP(config.KeyClock, "c", v.GetInt(config.KeyClock), "instructions executed per second")
	flags.String("quirks", config.PresetOriginal, "quirk preset, original or modern")
	flags.Bool("shift-vy", false, "8XY6/8XYE shift VY instead of VX")
	flags.Bool("increment-index", false, "FX55/FX65 advance I past the copied registers")
	flags.Bool("wrap", false, "sprites wrap around the screen edges instead of clipping")
	flags.Bool("logic-reset", false, "8XY1/8XY2/8XY3 reset VF")
	flags.Int(config.KeyStack, v.GetInt(config.KeyStack), "return stack depth")
	flags.Bool(config.KeyDrawSync, true, "present frames at 60Hz instead of every host frame")
	flags.Bool(config.KeyVSync, true, "sync window updates to the monitor")
	flags.BoolP(config.KeyFullscreen, "f", false, "start in fullscreen, F11 toggles")
	flags.IntP(config.KeyScale, "s", v.GetInt(config.KeyScale), "window pixels per display pixel")
	flags.Int(config.KeyWidth, 0, "window width, overrides scale")
	flags.Int(config.KeyHeight, 0, "window height, overrides scale")
	flags.String("fg", config.DefaultForeground, "foreground color, RRGGBB or r,g,b")
	flags.String("bg", config.DefaultBackground, "background color, RRGGBB or r,g,b")
	flags.String(config.KeyFrontend, config.FrontendWindow, "frontend, window or terminal")
	flags.String(config.KeyBeep, "", "mp3 file to play instead of the built in tone")
	flags.Float64(config.KeyVolume, 0, "volume adjustment, base 2 logarithmic")

	cobra.CheckErr(bindStartFlags(v, flags))
	return startCmd
}

// bindStartFlags links the setting keys to their flags. Flags only take
// precedence over config file and environment when given.
func bindStartFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		config.KeyClock:      config.KeyClock,
		config.KeyPreset:     "quirks",
		config.KeyShift:      "shift-vy",
		config.KeyIndex:      "increment-index",
		config.KeyWrap:       "wrap",
		config.KeyLogic:      "logic-reset",
		config.KeyStack:      config.KeyStack,
		config.KeyDrawSync:   config.KeyDrawSync,
		config.KeyVSync:      config.KeyVSync,
		config.KeyFullscreen: config.KeyFullscreen,
		config.KeyScale:      config.KeyScale,
		config.KeyWidth:      config.KeyWidth,
		config.KeyHeight:     config.KeyHeight,
		config.KeyForeground: "fg",
		config.KeyBackground: "bg",
		config.KeyFrontend:   config.KeyFrontend,
		config.KeyBeep:       config.KeyBeep,
		config.KeyVolume:     config.KeyVolume,
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("binding flag '%s': %w", name, err)
		}
	}
	return nil
}

// Start loads the ROM and runs it until the frontend quits, the process
// is interrupted or the program fails.
func Start(v *viper.Viper, romPath string) error {
	opts, err := config.Load(v)
	if err != nil {
		return err
	}
	logger := config.CreateLogger(v.GetBool(config.KeyDebug), v.GetBool(config.KeyQuiet))

	rom, err := chyp.LoadFile(romPath)
	if err != nil {
		return err
	}

	machineOpts := chyp.Options{
		ClockHz:    opts.ClockHz,
		Quirks:     opts.Quirks,
		StackDepth: opts.StackDepth,
	}
	beeper, err := audio.NewBeeper(opts.BeepFile, opts.Volume)
	if err != nil {
		logger.Warn("Sound disabled", log.Err(err))
	} else {
		defer func() { _ = beeper.Close() }()
		machineOpts.OnSound = beeper.SetActive
	}

	machine, err := chyp.New(logger, machineOpts)
	if err != nil {
		return err
	}
	if err := machine.Load(rom); err != nil {
		return err
	}

	frontend, err := screen.New(opts.Frontend, screen.Config{
		Width:      opts.Width,
		Height:     opts.Height,
		Foreground: opts.Foreground,
		Background: opts.Background,
		VSync:      opts.VSync,
		Fullscreen: opts.Fullscreen,
		DrawSync:   opts.DrawSync,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("Starting emulation",
		log.String("rom", romPath),
		log.Int("clock", opts.ClockHz),
		log.String("frontend", opts.Frontend))

	runErr := make(chan error, 1)
	go func() {
		runErr <- machine.Run(ctx)
		cancel()
	}()

	if err := frontend.Run(ctx, machine); err != nil {
		return err
	}
	cancel()

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
