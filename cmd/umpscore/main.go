// Command umpscore runs the uMPS device simulation core standalone:
// it loads a device manifest, wires every device to a system bus and
// flat memory, and drives the simulation from an interactive console.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/peterh/liner"
	getopt "github.com/pborman/getopt/v2"

	"github.com/umps-sim/umps-core/bus"
	"github.com/umps-sim/umps-core/config"
	"github.com/umps-sim/umps-core/device"
	"github.com/umps-sim/umps-core/util/debug"
	"github.com/umps-sim/umps-core/util/logger"
	"github.com/umps-sim/umps-core/util/todfmt"
)

const (
	defaultMemBytes  = 4 * 1024 * 1024
	defaultClockRate = 1
)

func main() {
	configPath := getopt.StringLong("config", 'c', "", "device manifest file")
	logPath := getopt.StringLong("log", 'l', "", "log file (default stderr)")
	debugFlag := getopt.BoolLong("debug", 'd', "enable debug-level trace output")
	help := getopt.BoolLong("help", 'h', "show this help")
	getopt.Parse()

	if *help {
		getopt.Usage()
		return
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "umpscore: --config is required")
		os.Exit(1)
	}

	logOut := os.Stderr
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "umpscore: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}

	debugOn := *debugFlag
	textHandler := slog.NewTextHandler(logOut, nil)
	slog.SetDefault(slog.New(logger.NewHandler(textHandler, &debugOn)))
	if debugOn {
		debug.SetOutput(logOut)
		debug.SetFlags(debug.FlagBus | debug.FlagDevice | debug.FlagEvent)
	}

	manifestFile, err := os.Open(*configPath)
	if err != nil {
		slog.Error("cannot open config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	entries, err := config.Parse(manifestFile)
	manifestFile.Close()
	if err != nil {
		slog.Error("cannot parse config", "error", err)
		os.Exit(1)
	}

	mem := bus.NewFlatMemory(defaultMemBytes)
	b := bus.New(mem, defaultClockRate)

	signals := &device.Signals{
		StatusChanged: func(description string) {
			slog.Debug("device status changed", "description", description)
		},
		Transmitted: func(c byte) {
			slog.Debug("byte transmitted", "char", string(c))
		},
		ConditionChanged: func(working bool) {
			slog.Info("device condition changed", "working", working)
		},
	}

	if _, err := config.Install(b, entries, signals); err != nil {
		slog.Error("cannot install devices", "error", err)
		os.Exit(1)
	}

	slog.Info("umpscore ready", "devices", len(entries))
	runConsole(b)
}

// runConsole drives an interactive command loop, reading from the
// terminal with liner and dispatching a small fixed command set.
func runConsole(b *bus.SystemBus) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("umpscore> ")
		if err != nil {
			return
		}
		line.AppendHistory(input)

		switch input {
		case "quit", "exit":
			return
		case "status":
			fmt.Printf("tod=%s\n", todfmt.Format(b.TODLO(), b.ClockRate()*1_000_000))
		case "run":
			b.Run(uint64(b.TODLO()) + 1000)
		case "help", "":
			fmt.Println("commands: status, run, quit")
		default:
			fmt.Printf("unknown command %q\n", input)
		}
	}
}
