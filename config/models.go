package config

import (
	"fmt"

	"github.com/umps-sim/umps-core/bus"
	"github.com/umps-sim/umps-core/device"
	"github.com/umps-sim/umps-core/devices/disk"
	"github.com/umps-sim/umps-core/devices/eth"
	"github.com/umps-sim/umps-core/devices/flash"
	"github.com/umps-sim/umps-core/devices/printer"
	"github.com/umps-sim/umps-core/devices/terminal"
	"github.com/umps-sim/umps-core/netif"
)

// init registers the stock device types a umpscore build links in.
// These registrations are centralized here, rather than one per device
// package at import time, since the config package is already the one
// place that may import every concrete device package without risking
// an import cycle.
func init() {
	RegisterModel("printer", newPrinter)
	RegisterModel("terminal", newTerminal)
	RegisterModel("disk", newDisk)
	RegisterModel("flash", newFlash)
	RegisterModel("eth", newEth)
}

func newPrinter(b *bus.SystemBus, addr device.Address, signals *device.Signals, args []string) (device.Device, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("printer requires a log file path")
	}
	return printer.New(addr, b, signals, args[0])
}

func newTerminal(b *bus.SystemBus, addr device.Address, signals *device.Signals, args []string) (device.Device, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("terminal requires a log file path")
	}
	return terminal.New(addr, b, signals, args[0])
}

func newDisk(b *bus.SystemBus, addr device.Address, signals *device.Signals, args []string) (device.Device, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("disk requires an image file path")
	}
	return disk.Open(addr, b, signals, args[0])
}

func newFlash(b *bus.SystemBus, addr device.Address, signals *device.Signals, args []string) (device.Device, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("flash requires an image file path")
	}
	return flash.Open(addr, b, signals, args[0])
}

// newEth accepts either:
//
//	eth <line:dev> loopback [interrupt]
//	eth <line:dev> udp <local-addr> <peer-addr> [interrupt]
func newEth(b *bus.SystemBus, addr device.Address, signals *device.Signals, args []string) (device.Device, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("eth requires a transport (loopback or udp)")
	}

	mode := netif.ModePolled
	var iface netif.Interface

	switch args[0] {
	case "loopback":
		iface = netif.NewLoopback()
		if len(args) > 1 && args[1] == "interrupt" {
			mode = netif.ModeInterrupt
		}
	case "udp":
		if len(args) < 3 {
			return nil, fmt.Errorf("eth udp requires local and peer addresses")
		}
		u, err := netif.NewUDPInterface(args[1], args[2])
		if err != nil {
			return nil, err
		}
		iface = u
		if len(args) > 3 && args[3] == "interrupt" {
			mode = netif.ModeInterrupt
		}
	default:
		return nil, fmt.Errorf("eth: unknown transport %q", args[0])
	}

	return eth.New(addr, b, signals, iface, mode), nil
}
