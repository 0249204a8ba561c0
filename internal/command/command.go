// Package command turns the operands of an ma invocation into an access request.
package command

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fcurrie/memaccess/internal/types"
)

type mnemonic struct {
	direction types.Direction
	unit      types.Width
}

// commands are matched on their first two letters, case insensitively
var commands = map[string]mnemonic{
	"db": {types.Read, types.Byte},
	"dw": {types.Read, types.Word},
	"dd": {types.Read, types.Dword},
	"dl": {types.Read, types.Dword},
	"dq": {types.Read, types.Qword},
	"eb": {types.Write, types.Byte},
	"ew": {types.Write, types.Word},
	"ed": {types.Write, types.Dword},
	"el": {types.Write, types.Dword},
	"eq": {types.Write, types.Qword},
}

// Options carries the settings that change how operands are read
type Options struct {
	// DumpSize is used when a dump has no size operand
	DumpSize uint64
	// Raw means edit values come from a stream, so no value list is taken
	Raw bool
}

// Command is a parsed invocation
type Command struct {
	Name    string
	Request types.Request
	Values  []uint64
}

// Parse reads "command address [size] [value...]" operands
func Parse(args []string, opts Options) (Command, error) {
	if len(args) < 2 {
		return Command{}, types.Errorf(types.ArgumentError, nil, "missing command or address")
	}

	cmd := Command{Name: args[0]}

	m, ok := lookup(args[0])
	if !ok {
		return Command{}, types.Errorf(types.ArgumentError, nil, "unknown command '%s'", args[0])
	}
	cmd.Request.Direction = m.direction
	cmd.Request.Unit = m.unit

	addr, err := ParseAddress(args[1])
	if err != nil {
		return Command{}, types.Errorf(types.ArgumentError, err, "invalid address '%s'", args[1])
	}
	cmd.Request.Address = addr

	rest := args[2:]
	switch {
	case m.direction == types.Read:
		cmd.Request.Size = opts.DumpSize
		if len(rest) > 1 {
			return Command{}, types.Errorf(types.ArgumentError, nil, "unexpected operand '%s'", rest[1])
		}
		if len(rest) == 1 {
			if cmd.Request.Size, err = parseSize(rest[0]); err != nil {
				return Command{}, err
			}
		}

	case opts.Raw:
		cmd.Request.Size = uint64(m.unit)
		if len(rest) > 1 {
			return Command{}, types.Errorf(types.ArgumentError, nil, "unexpected operand '%s'", rest[1])
		}
		if len(rest) == 1 {
			if cmd.Request.Size, err = parseSize(rest[0]); err != nil {
				return Command{}, err
			}
		}

	case len(rest) == 0:
		return Command{}, types.Errorf(types.ArgumentError, nil, "missing value for '%s'", args[0])

	case len(rest) == 1:
		cmd.Request.Size = uint64(m.unit)
		if cmd.Values, err = parseValues(rest); err != nil {
			return Command{}, err
		}

	default:
		if cmd.Request.Size, err = parseSize(rest[0]); err != nil {
			return Command{}, err
		}
		if cmd.Values, err = parseValues(rest[1:]); err != nil {
			return Command{}, err
		}
	}

	return cmd, nil
}

func lookup(name string) (mnemonic, bool) {
	if len(name) < 2 {
		return mnemonic{}, false
	}
	m, ok := commands[strings.ToLower(name[:2])]
	return m, ok
}

// ParseAddress parses a hexadecimal address, with or without a 0x prefix
func ParseAddress(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

// ParseNumber parses 0x prefixed hex, 0 prefixed octal or decimal.
// Negative values wrap to their two's complement.
func ParseNumber(s string) (uint64, error) {
	digits := strings.TrimPrefix(s, "-")
	if strings.Contains(digits, "_") || hasPrefixFold(digits, "0b") || hasPrefixFold(digits, "0o") {
		return 0, &strconv.NumError{Func: "ParseNumber", Num: s, Err: strconv.ErrSyntax}
	}

	if digits != s {
		v, err := strconv.ParseInt(s, 0, 64)
		return uint64(v), err
	}
	return strconv.ParseUint(s, 0, 64)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func parseSize(s string) (uint64, error) {
	if strings.HasPrefix(s, "-") {
		return 0, types.Errorf(types.ArgumentError, nil, "invalid size '%s'", s)
	}
	size, err := ParseNumber(s)
	if err != nil {
		return 0, types.Errorf(types.ArgumentError, err, "invalid size '%s'", s)
	}
	return size, nil
}

func parseValues(args []string) ([]uint64, error) {
	values := make([]uint64, 0, len(args))
	for _, s := range args {
		v, err := ParseNumber(s)
		if err != nil {
			return nil, types.Errorf(types.ArgumentError, err, "invalid value '%s'", s)
		}
		values = append(values, v)
	}
	return values, nil
}

// Usage writes the help text for prog to w
func Usage(w io.Writer, prog string) {
	fmt.Fprintf(w, "usage: \n"+
		"  %[1]s [options] dump_command address [size]\n"+
		"  %[1]s [options] edit_command address value\n"+
		"  %[1]s [options] edit_command address size value_list\n"+
		"  %[1]s [options] -r edit_command address [size] < data\n"+
		"  options\n"+
		"    -k    use filename instead of /dev/mem\n"+
		"    -r    raw stream: dump to stdout, edit from stdin\n"+
		"    -c    read options from a JSON config file\n"+
		"    -d    show debug message\n"+
		"    -h    show this help\n"+
		"\n"+
		"  dump_command\n"+
		"    db, dw, dd, dq: b: byte(8bits), w: word(16bits), \n"+
		"                    d, l: double(32bits), q: quad(64bits).\n"+
		"  edit_command\n"+
		"    eb, ew, ed, eq: b: byte(8bits), w: word(16bits), \n"+
		"                    d, l: double(32bits), q: quad(64bits).\n"+
		"  address\n"+
		"    Physical address in Hex.\n"+
		"  size\n"+
		"    Bytes of dump/edit.\n"+
		"    0xXX: Hex, 0XX: Oct, XX: Dec.\n"+
		"  value_list\n"+
		"    Data list to write.\n"+
		"    0xXX: Hex, 0XX: Oct, XX: Dec.\n",
		prog)
}
