package device

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/sahneos/karnal64/abi"
)

// Console control requests.
const (
	ConsoleWinSize = 0x5413 // matches TIOCGWINSZ
)

// Console exposes a host terminal as a resource provider. Instances
// are constructed and registered explicitly at boot; there is no
// ambient console singleton.
type Console struct {
	mu sync.Mutex

	in  io.Reader
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:  in,
		out: out,
	}
}

func (c *Console) Read(p []byte, off uint64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.in == nil {
		return 0, errors.Wrap(abi.NotSupported, "console has no input")
	}

	n, err := c.in.Read(p)
	if err != nil {
		if err == io.EOF {
			return n, nil
		}

		return n, errors.Wrap(abi.Internal, err.Error())
	}

	return n, nil
}

func (c *Console) Write(p []byte, off uint64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.out == nil {
		return 0, errors.Wrap(abi.NotSupported, "console has no output")
	}

	n, err := c.out.Write(p)
	if err != nil {
		return n, errors.Wrap(abi.Internal, err.Error())
	}

	return n, nil
}

// Control answers ConsoleWinSize with rows<<16|cols when the console is
// backed by a tty.
func (c *Console) Control(req, arg uint64) (int64, error) {
	switch req {
	case ConsoleWinSize:
		f, ok := c.out.(*os.File)
		if !ok {
			return 0, errors.Wrap(abi.NotSupported, "console output is not a tty")
		}

		ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
		if err != nil {
			return 0, errors.Wrap(abi.NotSupported, "console output is not a tty")
		}

		return int64(ws.Row)<<16 | int64(ws.Col), nil
	default:
		return 0, errors.Wrapf(abi.NotSupported, "console control %d", req)
	}
}
