package gryf

import (
	"fmt"
	"strconv"
	"strings"
)

// Function is the tag before '=' in a bus line.
type Function string

// Inbound functions reported by the modules.
const (
	FuncInput       Function = "I"
	FuncOutput      Function = "O"
	FuncPWM         Function = "LED"
	FuncTemperature Function = "T"
	FuncCover       Function = "R"
	FuncPressShort  Function = "PS"
	FuncPressLong   Function = "PL"
	FuncSearch      Function = "C"
)

// Pins per module for each block.
const (
	InputPins  = 8
	OutputPins = 6
	CoverPins  = 4
	MaxPin     = 9
)

// LineTerminator ends every line written to the bus.
const LineTerminator = "\n\r"

// OutputCommand is one slot of an AT+SetOut line.
type OutputCommand int

const (
	OutputKeep OutputCommand = iota
	OutputOn
	OutputOff
	OutputToggle
)

// CoverCommand is the last argument of an AT+SetRol line.
type CoverCommand int

const (
	CoverStop CoverCommand = iota
	CoverOpen
	CoverClose
	CoverStep
)

// Cover states reported in R frames.
const (
	CoverStateStopped = 0
	CoverStateOpening = 1
	CoverStateClosing = 2
)

// Input states delivered to input subscribers. Released and pressed come from
// I frames, the press kinds from PS/PL frames.
const (
	InputReleased   = 0
	InputPressed    = 1
	InputShortPress = 2
	InputLongPress  = 3
)

// Frame is one parsed inbound line.
type Frame struct {
	Function Function
	Module   int
	Args     []string
	Values   []int
	Raw      string
}

// ParseFrame parses an inbound bus line such as "O=2,1,0,0,0,0,0".
func ParseFrame(line string) (Frame, error) {
	line = strings.TrimSpace(line)
	fn, rest, ok := strings.Cut(line, "=")
	if !ok || fn == "" || rest == "" {
		return Frame{}, fmt.Errorf("%w: %q", ErrInvalidFrame, line)
	}

	fields := strings.Split(rest, ",")
	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Frame{}, fmt.Errorf("%w: %q: field %d: %v", ErrInvalidFrame, line, i, err)
		}
		nums[i] = n
	}

	return Frame{
		Function: Function(strings.ToUpper(strings.TrimSpace(fn))),
		Module:   nums[0],
		Args:     fields[1:],
		Values:   nums[1:],
		Raw:      line,
	}, nil
}

// Value returns the 1-based pin slot of a block frame (I, O, R).
func (f Frame) Value(pin int) (int, bool) {
	if pin < 1 || pin > len(f.Values) {
		return 0, false
	}
	return f.Values[pin-1], true
}

// Pin returns the pin of a per-pin frame (LED, T, PS, PL).
func (f Frame) Pin() int {
	if len(f.Values) == 0 {
		return 0
	}
	return f.Values[0]
}

// Temperature decodes a T frame: "T=<mod>,<pin>,<int>,<tenths>".
func (f Frame) Temperature() (float64, error) {
	if f.Function != FuncTemperature || len(f.Values) < 3 {
		return 0, fmt.Errorf("%w: not a temperature frame: %q", ErrInvalidFrame, f.Raw)
	}
	whole := f.Values[1]
	frac := float64(f.Values[2]) / 10
	if whole < 0 || strings.HasPrefix(strings.TrimSpace(f.Args[1]), "-") {
		return float64(whole) - frac, nil
	}
	return float64(whole) + frac, nil
}

func checkPin(pin, max int) error {
	if pin < 1 || pin > max {
		return fmt.Errorf("%w: %d (1..%d)", ErrInvalidPin, pin, max)
	}
	return nil
}

// EncodeSetOut builds an output command touching a single pin.
func EncodeSetOut(module, pin int, cmd OutputCommand) (string, error) {
	if err := checkPin(pin, OutputPins); err != nil {
		return "", err
	}
	slots := make([]string, OutputPins)
	for i := range slots {
		slots[i] = strconv.Itoa(int(OutputKeep))
	}
	slots[pin-1] = strconv.Itoa(int(cmd))
	return fmt.Sprintf("AT+SetOut=%d,%s", module, strings.Join(slots, ",")), nil
}

// EncodeSetLED builds a PWM level command. Level is clamped to 0..100.
func EncodeSetLED(module, pin, level int) (string, error) {
	if err := checkPin(pin, MaxPin); err != nil {
		return "", err
	}
	level = min(max(level, 0), 100)
	return fmt.Sprintf("AT+SetLED=%d,%d,%d", module, pin, level), nil
}

// EncodeSetRol builds a shutter command with its travel time in seconds.
func EncodeSetRol(module, pin, seconds int, cmd CoverCommand) (string, error) {
	if err := checkPin(pin, CoverPins); err != nil {
		return "", err
	}
	return fmt.Sprintf("AT+SetRol=%d,%d,%d,%d", module, pin, max(seconds, 0), int(cmd)), nil
}

// EncodeStateInputs asks a module for its input states.
func EncodeStateInputs(module int) string {
	return fmt.Sprintf("AT+StanIN=%d", module)
}

// EncodeStateOutputs asks a module for its output states.
func EncodeStateOutputs(module int) string {
	return fmt.Sprintf("AT+StanOUT=%d", module)
}

// EncodeReset resets one module, or every module when module is 0.
func EncodeReset(module int) string {
	return fmt.Sprintf("AT+RST=%d", module)
}

// EncodeSearch asks a module to report itself.
func EncodeSearch(module int) string {
	return fmt.Sprintf("AT+Search=0,%d", module)
}
