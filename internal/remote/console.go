package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/mrcl/maprot/internal/logger"
)

// RestartCommand makes the server process exit so its supervisor restarts it.
const RestartCommand = "quit"

var ErrConsoleClosed = errors.New("console closed")

var (
	ansiRe    = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)
	controlRe = regexp.MustCompile(`[\x08\r]`)
)

// StripANSI removes terminal escape sequences, backspaces and carriage returns.
func StripANSI(s string) string {
	return controlRe.ReplaceAllString(ansiRe.ReplaceAllString(s, ""), "")
}

// Console is an interactive shell on the server. Output is cleaned with
// StripANSI and copied to the writer given at open time.
type Console struct {
	mu     sync.Mutex
	stdin  io.WriteCloser
	closer io.Closer
	done   chan struct{}
	err    error
	closed bool
}

// Console opens a PTY shell and, when configured, types the attach command.
func (c *Client) Console(ctx context.Context, out io.Writer) (*Console, error) {
	sess, err := c.conn.NewSession()
	if err != nil {
		return nil, fmt.Errorf("remote: session: %w", err)
	}
	modes := ssh.TerminalModes{ssh.ECHO: 1, ssh.TTY_OP_ISPEED: 38400, ssh.TTY_OP_OSPEED: 38400}
	if err := sess.RequestPty("xterm", 40, 120, modes); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("remote: pty: %w", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("remote: shell: %w", err)
	}

	con := newConsole(stdin, stdout, sess, out)
	if cmd := c.cfg.AttachCommand; cmd != "" {
		logger.FromContext(ctx).Debug("attaching console", "command", cmd)
		if err := con.Send(cmd); err != nil {
			_ = con.Close()
			return nil, err
		}
	}
	return con, nil
}

func newConsole(stdin io.WriteCloser, stdout io.Reader, closer io.Closer, out io.Writer) *Console {
	con := &Console{stdin: stdin, closer: closer, done: make(chan struct{})}
	go con.pump(stdout, out)
	return con
}

func (c *Console) pump(r io.Reader, w io.Writer) {
	defer close(c.done)
	buf := make([]byte, 1024)
	var pending []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			// An escape sequence may be split across reads; hold back a
			// trailing partial one until more data arrives.
			cut := len(pending)
			if i := strings.LastIndexByte(string(pending), 0x1b); i >= 0 && !ansiRe.Match(pending[i:]) && len(pending)-i < 16 {
				cut = i
			}
			if cut > 0 {
				if _, werr := io.WriteString(w, StripANSI(string(pending[:cut]))); werr != nil {
					c.setErr(werr)
					return
				}
				pending = append(pending[:0], pending[cut:]...)
			}
		}
		if err != nil {
			if len(pending) > 0 {
				_, _ = io.WriteString(w, StripANSI(string(pending)))
			}
			if !errors.Is(err, io.EOF) {
				c.setErr(err)
			}
			return
		}
	}
}

func (c *Console) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil && !c.closed {
		c.err = err
	}
}

// Send types cmd followed by a newline.
func (c *Console) Send(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConsoleClosed
	}
	if strings.TrimSpace(cmd) == "" {
		return errors.New("remote: empty command")
	}
	_, err := io.WriteString(c.stdin, cmd+"\n")
	return err
}

// Restart asks the server process to quit.
func (c *Console) Restart() error {
	return c.Send(RestartCommand)
}

// Done is closed once the remote side stops producing output.
func (c *Console) Done() <-chan struct{} { return c.done }

// Err reports a read or write failure of the output stream.
func (c *Console) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close ends the session and waits for buffered output to be flushed.
func (c *Console) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := errors.Join(c.stdin.Close(), c.closer.Close())
	<-c.done
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return err
}
