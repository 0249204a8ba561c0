package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/fcurrie/memaccess/internal/command"
	"github.com/fcurrie/memaccess/internal/config"
	"github.com/fcurrie/memaccess/internal/logger"
	"github.com/fcurrie/memaccess/internal/types"
	"github.com/fcurrie/memaccess/pkg/walker"
)

const appName = "ma"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit status
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	device := fs.String("k", config.DefaultDevice, "use filename instead of /dev/mem")
	debug := fs.Bool("d", false, "show debug message")
	raw := fs.Bool("r", false, "raw stream: dump to stdout, edit from stdin")
	configPath := fs.String("c", "", "read options from a JSON config file")
	help := fs.Bool("h", false, "show this help")

	if err := fs.Parse(args); err != nil {
		return fail(stderr, types.Errorf(types.ArgumentError, err, "invalid option"), true)
	}
	if *help {
		command.Usage(stdout, appName)
		return 0
	}

	// file < environment < flags
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fail(stderr, types.Errorf(types.ArgumentError, err, "failed to load configuration"), false)
	}
	if err := config.FromEnv(cfg); err != nil {
		return fail(stderr, types.Errorf(types.ArgumentError, err, "failed to read environment"), false)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "k":
			cfg.Device = *device
		case "d":
			cfg.Debug = *debug
		case "r":
			cfg.Raw = *raw
		}
	})
	if err := cfg.Validate(); err != nil {
		return fail(stderr, types.Errorf(types.ArgumentError, err, "invalid configuration"), false)
	}

	log, err := logger.NewLogger(logger.LoggerConfig{
		Name:            appName,
		IsDebug:         cfg.Debug,
		TraceOutputPath: traceOutput(cfg),
		OutputPath:      "stderr",
		InitialFields:   []zap.Field{zap.String("app", appName)},
	})
	if err != nil {
		return fail(stderr, types.Errorf(types.ArgumentError, err, "failed to create logger"), false)
	}
	defer log.Sync()

	cmd, err := command.Parse(fs.Args(), command.Options{DumpSize: cfg.DumpSize, Raw: cfg.Raw})
	if err != nil {
		return fail(stderr, err, true)
	}

	log.Debug("command",
		zap.String("cmd", cmd.Name),
		zap.String("addr", types.Hex(cmd.Request.Address)),
		zap.Uint64("size", cmd.Request.Size),
		zap.Uint64("size_unit", uint64(cmd.Request.Unit)),
		zap.Bool("raw", cfg.Raw),
		zap.String("file", cfg.Device),
	)
	log.Debug("list", zap.Int("count", len(cmd.Values)), zap.Uint64s("values", cmd.Values))

	var codec walker.Codec
	if cfg.Raw {
		codec = walker.NewRawStream(stdin, stdout)
	} else {
		codec = walker.NewFormatted(stdout, cmd.Values)
	}

	w := walker.New(walker.DeviceOpener(cfg.Device, log), walker.PageSize(), log)
	if err := w.Run(cmd.Request, codec); err != nil {
		return fail(stderr, err, false)
	}

	return 0
}

// traceOutput is where debug tracing goes. Raw dumps own stdout.
func traceOutput(cfg *config.Config) string {
	if cfg.Raw && cfg.LogOutput == "stdout" {
		return "stderr"
	}
	return cfg.LogOutput
}

func fail(stderr io.Writer, err error, usage bool) int {
	fmt.Fprintf(stderr, "%s: %v\n", appName, err)

	var e *types.Error
	if usage && errors.As(err, &e) && e.Kind == types.ArgumentError {
		command.Usage(stderr, appName)
	}

	return types.ExitCode(err)
}
