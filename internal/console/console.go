// internal/console/console.go
package console

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tamzrod/ptprobe/internal/board"
	"github.com/tamzrod/ptprobe/internal/frame"
	"github.com/tamzrod/ptprobe/internal/poller"
)

// ErrUsage is wrapped by argument errors.
var ErrUsage = errors.New("usage")

// Command is one console verb.
type Command struct {
	Name  string
	Args  string
	Help  string
	nargs int
	run   func(c *Console, args []string) (string, error)
}

// Console runs one-shot board commands and formats their results.
type Console struct {
	client *board.Client
	cmds   map[string]Command
}

func New(client *board.Client) *Console {
	c := &Console{client: client, cmds: make(map[string]Command)}
	for _, cmd := range commands {
		c.cmds[cmd.Name] = cmd
	}
	return c
}

// Commands lists the verbs sorted by name.
func (c *Console) Commands() []Command {
	out := make([]Command, 0, len(c.cmds))
	for _, cmd := range c.cmds {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Exec runs verb with args and returns the text to print.
func (c *Console) Exec(verb string, args []string) (string, error) {
	cmd, ok := c.cmds[verb]
	if !ok {
		return "", fmt.Errorf("unknown command %q", verb)
	}
	if len(args) < cmd.nargs {
		return "", fmt.Errorf("%w: %s %s", ErrUsage, cmd.Name, cmd.Args)
	}
	return cmd.run(c, args)
}

var commands = []Command{
	{Name: "id", Help: "read the board id", run: (*Console).boardID},
	{Name: "t", Args: "CH", Help: "read a thermocouple temperature", nargs: 1, run: value(frame.KindTemperature)},
	{Name: "p", Args: "CH", Help: "read a pressure", nargs: 1, run: value(frame.KindPressure)},
	{Name: "tref", Args: "CH", Help: "read a cold-junction temperature", nargs: 1, run: value(frame.KindRefTemperature)},
	{Name: "adc", Args: "CH", Help: "read a raw pressure ADC value", nargs: 1, run: value(frame.KindRawADC)},
	{Name: "status.t", Args: "CH", Help: "thermocouple converter status", nargs: 1, run: (*Console).statusT},
	{Name: "status.p", Args: "CH", Help: "pressure conversion coefficients", nargs: 1, run: (*Console).statusP},
	{Name: "debug", Args: "LEVEL", Help: "set the firmware debug level (0-2)", nargs: 1, run: (*Console).debug},
	{Name: "coeffs", Args: "CH A0 [A1 [A2]]", Help: "set pressure coefficients", nargs: 2, run: (*Console).coeffs},
	{Name: "setid", Args: "ID", Help: "set the board id (not stored)", nargs: 1, run: (*Console).setID},
	{Name: "store", Args: "yes", Help: "write the configuration to flash", run: (*Console).store},
	{Name: "poll", Help: "read every channel once", run: (*Console).poll},
	{Name: "defaults", Help: "apply default pressure coefficients to every channel", run: (*Console).defaults},
}

// ----
// handlers
// ----

func (c *Console) boardID(_ []string) (string, error) {
	id, err := c.client.BoardID()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("board id: 0x%08X (%d)", id, id), nil
}

func value(kind frame.ResponseKind) func(*Console, []string) (string, error) {
	return func(c *Console, args []string) (string, error) {
		ch, err := channel(args[0])
		if err != nil {
			return "", err
		}
		var r board.Reading
		switch kind {
		case frame.KindTemperature:
			r, err = c.client.Temperature(ch)
		case frame.KindPressure:
			r, err = c.client.Pressure(ch)
		case frame.KindRefTemperature:
			r, err = c.client.RefTemperature(ch)
		default:
			r, err = c.client.RawADC(ch)
		}
		if err != nil {
			return "", err
		}
		return formatReading(r), nil
	}
}

func (c *Console) statusT(args []string) (string, error) {
	ch, err := channel(args[0])
	if err != nil {
		return "", err
	}
	st, err := c.client.StatusTemperature(ch)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ch%d fault=%s rom=%x", st.Channel, st.Fault, st.Address[:]), nil
}

func (c *Console) statusP(args []string) (string, error) {
	ch, err := channel(args[0])
	if err != nil {
		return "", err
	}
	st, err := c.client.StatusPressure(ch)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ch%d a0=%g a1=%g a2=%g", st.Channel, st.Coeffs[0], st.Coeffs[1], st.Coeffs[2]), nil
}

func (c *Console) debug(args []string) (string, error) {
	level, err := strconv.Atoi(args[0])
	if err != nil {
		return "", fmt.Errorf("%w: debug level %q", ErrUsage, args[0])
	}
	if err := c.client.SetDebugLevel(level); err != nil {
		return "", err
	}
	return fmt.Sprintf("debug level %d", level), nil
}

func (c *Console) coeffs(args []string) (string, error) {
	ch, err := channel(args[0])
	if err != nil {
		return "", err
	}
	vals := make([]float32, 0, len(args)-1)
	for _, a := range args[1:] {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return "", fmt.Errorf("%w: coefficient %q", ErrUsage, a)
		}
		vals = append(vals, float32(f))
	}
	if err := c.client.SetPressureCoeffs(ch, vals); err != nil {
		return "", err
	}
	return fmt.Sprintf("ch%d coefficients set (%d)", ch, len(vals)), nil
}

func (c *Console) setID(args []string) (string, error) {
	id, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return "", fmt.Errorf("%w: board id %q", ErrUsage, args[0])
	}
	if err := c.client.SetBoardID(uint32(id)); err != nil {
		return "", err
	}
	return fmt.Sprintf("board id set to 0x%08X (run store yes to keep it)", id), nil
}

func (c *Console) store(args []string) (string, error) {
	confirm := len(args) == 1 && args[0] == "yes"
	if err := c.client.StoreConfig(confirm); err != nil {
		return "", err
	}
	return "configuration stored", nil
}

func (c *Console) poll(_ []string) (string, error) {
	p, err := poller.New(poller.Config{Port: c.client.Port(), Interval: time.Second}, c.client)
	if err != nil {
		return "", err
	}
	res := p.PollOnce()
	if res.Err != nil {
		return "", res.Err
	}
	return FormatSnapshot(res.Snapshot), nil
}

func (c *Console) defaults(_ []string) (string, error) {
	for ch := 0; ch < frame.Channels; ch++ {
		if err := c.client.SetPressureCoeffs(ch, frame.DefaultPressureCoeffs[:]); err != nil {
			return "", err
		}
	}
	return "default coefficients applied (run store yes to keep them)", nil
}

// ----
// formatting
// ----

func channel(s string) (int, error) {
	ch, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: channel %q", ErrUsage, s)
	}
	return ch, nil
}

func kindLabel(k frame.ResponseKind) string {
	switch k {
	case frame.KindTemperature:
		return "T"
	case frame.KindPressure:
		return "P"
	case frame.KindRefTemperature:
		return "Tref"
	case frame.KindRawADC:
		return "ADC"
	default:
		return k.String()
	}
}

func formatReading(r board.Reading) string {
	if r.Failed {
		return fmt.Sprintf("%s%d failed: code 0x%X", kindLabel(r.Kind), r.Channel, r.Code)
	}
	return fmt.Sprintf("%s%d = %.4f", kindLabel(r.Kind), r.Channel, r.Value)
}

// FormatSnapshot renders a poll snapshot as a small table.
func FormatSnapshot(s poller.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "board 0x%08X\n", s.BoardID)
	fmt.Fprintf(&b, "%-4s %12s %12s %12s\n", "ch", "T", "Tref", "P")
	for ch, r := range s.Channels {
		fmt.Fprintf(&b, "%-4d %12s %12s %12s\n", ch,
			cell(r.Temperature), cell(r.RefTemperature), cell(r.Pressure))
	}
	return strings.TrimRight(b.String(), "\n")
}

func cell(r board.Reading) string {
	if r.Failed {
		return fmt.Sprintf("err 0x%X", r.Code)
	}
	return strconv.FormatFloat(float64(r.Value), 'f', 3, 32)
}
