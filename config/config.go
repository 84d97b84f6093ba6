// Package config loads a plain-text device manifest and installs the
// devices it describes onto a bus.SystemBus. Each manifest line names a
// device type, its (line:dev) address, and a type-specific option list.
package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/umps-sim/umps-core/bus"
	"github.com/umps-sim/umps-core/device"
)

// Factory constructs and installs a device of a registered type onto b
// at addr, given the remaining whitespace-separated fields on its
// manifest line.
type Factory func(b *bus.SystemBus, addr device.Address, signals *device.Signals, args []string) (device.Device, error)

var registry = map[string]Factory{}

// RegisterModel makes a device type available to the manifest parser
// under name. The stock device types are registered by this package's
// own init in models.go, rather than from each devices/* package's
// init.
func RegisterModel(name string, f Factory) {
	registry[name] = f
}

// Entry is one parsed, not-yet-installed manifest line.
type Entry struct {
	Type string
	Addr device.Address
	Args []string
}

// Parse reads a manifest from r. Each non-blank, non-comment line has
// the form:
//
//	<device-type> <line>:<dev> [option ...]
//
// Lines beginning with '#' and blank lines are ignored.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("config line %d: expected at least a type and address", lineNo)
		}
		addr, err := parseAddress(fields[1])
		if err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNo, err)
		}
		entries = append(entries, Entry{Type: fields[0], Addr: addr, Args: fields[2:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseAddress(s string) (device.Address, error) {
	line, dev, ok := strings.Cut(s, ":")
	if !ok {
		return device.Address{}, fmt.Errorf("malformed address %q, want line:dev", s)
	}
	l, err := strconv.Atoi(line)
	if err != nil {
		return device.Address{}, fmt.Errorf("bad line number %q: %w", line, err)
	}
	d, err := strconv.Atoi(dev)
	if err != nil {
		return device.Address{}, fmt.Errorf("bad device number %q: %w", dev, err)
	}
	addr := device.Address{Line: uint8(l), Dev: uint8(d)}
	if !addr.Valid() {
		return device.Address{}, fmt.Errorf("address %s out of range", addr)
	}
	return addr, nil
}

// Install runs every entry's registered Factory against b, returning
// the constructed devices keyed by address. signals is passed through
// unchanged to every device; callers wanting per-device signal routing
// should install devices individually instead.
func Install(b *bus.SystemBus, entries []Entry, signals *device.Signals) (map[device.Address]device.Device, error) {
	installed := make(map[device.Address]device.Device, len(entries))
	for _, e := range entries {
		factory, ok := registry[e.Type]
		if !ok {
			return nil, fmt.Errorf("config: unknown device type %q at %s", e.Type, e.Addr)
		}
		dev, err := factory(b, e.Addr, signals, e.Args)
		if err != nil {
			return nil, fmt.Errorf("config: %s at %s: %w", e.Type, e.Addr, err)
		}
		b.Install(e.Addr, dev)
		installed[e.Addr] = dev
	}
	return installed, nil
}
