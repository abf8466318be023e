// Package shell is a line oriented console over one exchange.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/casualjim/swamp"
	"github.com/casualjim/swamp/codec"
	"github.com/casualjim/swamp/pkg/stdx"
	"github.com/casualjim/swamp/pkg/uuidx"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/k0kubun/pp/v3"
)

// ErrUsage is returned for malformed commands.
var ErrUsage = errors.New("usage")

const helpText = `# swamp

| command | effect |
|---|---|
| ` + "`create <path>`" + ` | create a node under its registered parent |
| ` + "`delete <path>`" + ` | delete a node, children stay registered |
| ` + "`sub <node> <subscriber>`" + ` | subscribe a node to another |
| ` + "`unsub <node> <subscriber>`" + ` | remove a subscription |
| ` + "`link <from> <to> <tag>`" + ` | record a custom link |
| ` + "`unlink <from> <to> <tag>`" + ` | remove a custom link |
| ` + "`send <path> <text...>`" + ` | send a text message |
| ` + "`listen <path>`" + ` | print messages delivered to a node |
| ` + "`unlisten <path>`" + ` | stop printing them |
| ` + "`ls`" + ` | list registered paths |
| ` + "`show [path]`" + ` | describe a node, the root without a path |
| ` + "`schema`" + ` | print the JSON schema of message envelopes |
| ` + "`exit`" + ` | leave |
`

// Shell runs line commands against one exchange.
type Shell struct {
	x       *swamp.Exchange
	out     io.Writer
	mu      sync.Mutex
	glam    *glamour.TermRenderer
	printer *pp.PrettyPrinter

	listeners map[string]swamp.Listener
}

// New creates a shell over x that writes to out. Output is colored unless
// color.NoColor is set.
func New(x *swamp.Exchange, out io.Writer) *Shell {
	printer := pp.New()
	printer.SetOutput(out)
	printer.SetColoringEnabled(!color.NoColor)

	return &Shell{
		x:         x,
		out:       out,
		glam:      stdx.Must1(glamour.NewTermRenderer(glamour.WithAutoStyle())),
		printer:   printer,
		listeners: make(map[string]swamp.Listener),
	}
}

// Run reads commands from in until it is exhausted, ctx is done, or the
// exit command.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanLines)

	for {
		s.printf("%s ", color.CyanString("swamp>"))
		if !scanner.Scan() {
			s.println("Exiting...")
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		quit, err := s.Exec(ctx, scanner.Text())
		if err != nil {
			s.println(color.RedString("error") + ": " + err.Error())
		}
		if quit {
			return nil
		}
	}
}

// Exec runs a single command line. It reports true for the exit command.
func (s *Shell) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "exit", "quit":
		return true, nil
	case "help", "?":
		out, err := s.glam.Render(helpText)
		if err != nil {
			return false, err
		}
		s.printf("%s", out)
	case "create":
		return false, s.onePath(args, "create <path>", func(p swamp.Path) error {
			if err := s.x.CreateNode(p); err != nil {
				return err
			}
			s.println("created " + display(p))
			return nil
		})
	case "delete":
		return false, s.onePath(args, "delete <path>", func(p swamp.Path) error {
			if err := s.x.DelNode(p); err != nil {
				return err
			}
			s.closeListener(p)
			s.println("deleted " + display(p))
			return nil
		})
	case "sub":
		return false, s.twoPaths(args, "sub <node> <subscriber>", s.x.AddSubscription)
	case "unsub":
		return false, s.twoPaths(args, "unsub <node> <subscriber>", s.x.DelSubscription)
	case "link", "unlink":
		if len(args) != 3 {
			return false, fmt.Errorf("%w: %s <from> <to> <tag>", ErrUsage, cmd)
		}
		op := s.x.Link
		if cmd == "unlink" {
			op = s.x.Unlink
		}
		return false, op(swamp.NewPath(args[0]), swamp.NewPath(args[1]), swamp.Other(args[2]))
	case "send":
		if len(args) < 2 {
			return false, fmt.Errorf("%w: send <path> <text...>", ErrUsage)
		}
		p := swamp.NewPath(args[0])
		mesg, err := s.x.Send(ctx, p, swamp.Text(strings.Join(args[1:], " ")))
		if err != nil {
			return false, err
		}
		s.println(fmt.Sprintf("sent %s to %s", mesg.ID, display(p)))
	case "listen":
		return false, s.onePath(args, "listen <path>", s.listen)
	case "unlisten":
		return false, s.onePath(args, "unlisten <path>", func(p swamp.Path) error {
			if !s.closeListener(p) {
				return fmt.Errorf("not listening on %s", display(p))
			}
			return nil
		})
	case "ls":
		paths, err := s.x.Paths()
		if err != nil {
			return false, err
		}
		if len(paths) == 0 {
			s.println("(empty)")
		}
		for _, p := range paths {
			s.println(p.String())
		}
	case "show":
		p := swamp.Root()
		if len(args) > 0 {
			p = swamp.NewPath(args[0])
		}
		info, err := s.x.Describe(p)
		if err != nil {
			return false, err
		}
		s.mu.Lock()
		_, err = s.printer.Println(viewOf(info))
		s.mu.Unlock()
		return false, err
	case "schema":
		data, err := json.MarshalIndent(codec.Schema(), "", "  ")
		if err != nil {
			return false, err
		}
		s.println(string(data))
	default:
		return false, fmt.Errorf("%w: unknown command %q, try help", ErrUsage, cmd)
	}
	return false, nil
}

// Close detaches every listener opened by the shell.
func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for key, l := range s.listeners {
		errs = append(errs, l.Close())
		delete(s.listeners, key)
	}
	return errors.Join(errs...)
}

func (s *Shell) listen(p swamp.Path) error {
	s.mu.Lock()
	_, exists := s.listeners[p.String()]
	s.mu.Unlock()
	if exists {
		return fmt.Errorf("already listening on %s", display(p))
	}

	l, err := s.x.Listen(p, swamp.HookFunc(func(_ context.Context, at swamp.Path, mesg swamp.Mesg) {
		s.println(fmt.Sprintf("%s %s %v", color.GreenString("["+display(at)+"]"), color.YellowString(mesg.Dest.String()), mesg.Data))
	}))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listeners[p.String()] = l
	s.mu.Unlock()
	s.println("listening on " + display(p))
	return nil
}

func (s *Shell) closeListener(p swamp.Path) bool {
	s.mu.Lock()
	l, ok := s.listeners[p.String()]
	delete(s.listeners, p.String())
	s.mu.Unlock()
	if ok {
		_ = l.Close()
	}
	return ok
}

func (s *Shell) onePath(args []string, usage string, fn func(swamp.Path) error) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	return fn(swamp.NewPath(args[0]))
}

func (s *Shell) twoPaths(args []string, usage string, fn func(a, b swamp.Path) error) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	if err := fn(swamp.NewPath(args[0]), swamp.NewPath(args[1])); err != nil {
		return err
	}
	s.println("ok")
	return nil
}

func (s *Shell) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

func display(p swamp.Path) string {
	if p.IsRoot() {
		return "(root)"
	}
	return p.String()
}

type nodeView struct {
	ID        string
	Path      string
	Created   time.Time
	Listeners int
	Links     []linkView
}

type linkView struct {
	Relationship string
	Target       string
}

func viewOf(info swamp.NodeInfo) nodeView {
	view := nodeView{
		ID:        info.ID.String(),
		Path:      display(info.Path),
		Listeners: info.Listeners,
	}
	if created, ok := uuidx.Created(info.ID); ok {
		view.Created = created
	}
	for _, link := range info.Links {
		view.Links = append(view.Links, linkView{
			Relationship: link.Relationship.String(),
			Target:       display(link.Target),
		})
	}
	return view
}
