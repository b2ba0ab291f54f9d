package permission

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"arlo/internal/agent/ports"
)

// InteractiveApprover resolves permission requests via terminal prompts. It
// is attached to a Broker as its notifier and answers on the broker's behalf.
type InteractiveApprover struct {
	broker       *Broker
	in           *bufio.Reader
	out          io.Writer
	colorEnabled bool

	// promptMu serializes prompts so concurrent requests cannot interleave
	// their output or pair an answer line with the wrong request.
	promptMu sync.Mutex
}

// NewInteractiveApprover wires terminal prompting into broker. Requests that
// arrive while another prompt is open queue up behind it on stdin.
func NewInteractiveApprover(broker *Broker, colorEnabled bool) *InteractiveApprover {
	return newInteractiveApprover(broker, os.Stdin, os.Stdout, colorEnabled)
}

func newInteractiveApprover(broker *Broker, in io.Reader, out io.Writer, colorEnabled bool) *InteractiveApprover {
	return &InteractiveApprover{
		broker:       broker,
		in:           bufio.NewReader(in),
		out:          out,
		colorEnabled: colorEnabled,
	}
}

// Notifier returns the callback to register with the broker.
func (a *InteractiveApprover) Notifier() func(ports.PermissionRequest) {
	return func(req ports.PermissionRequest) {
		go a.prompt(req)
	}
}

func (a *InteractiveApprover) prompt(req ports.PermissionRequest) {
	a.promptMu.Lock()
	defer a.promptMu.Unlock()

	separator := strings.Repeat("=", 72)

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, a.colorize(separator, color.FgCyan))
	fmt.Fprintln(a.out, a.colorize(fmt.Sprintf("Permission required: %s", req.Type), color.FgYellow, color.Bold))
	fmt.Fprintln(a.out, req.Message)
	for key, value := range req.Metadata {
		fmt.Fprintf(a.out, "  %s: %s\n", key, value)
	}
	fmt.Fprintln(a.out, a.colorize(separator, color.FgCyan))
	fmt.Fprint(a.out, a.colorize("Allow? [y/N]: ", color.FgCyan))

	line, err := a.in.ReadString('\n')
	if err != nil {
		a.broker.Resolve(req.ID, false)
		return
	}

	switch strings.TrimSpace(strings.ToLower(line)) {
	case "y", "yes":
		a.broker.Resolve(req.ID, true)
	default:
		fmt.Fprintln(a.out, a.colorize("Denied", color.FgRed))
		a.broker.Resolve(req.ID, false)
	}
}

func (a *InteractiveApprover) colorize(text string, attributes ...color.Attribute) string {
	if !a.colorEnabled {
		return text
	}
	return color.New(attributes...).Sprint(text)
}
