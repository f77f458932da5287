package workerclient

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// StatusView prints a one-line worker-count summary (Report) and runs
// a single-keypress menu ('+'/'-' to resize the pool, 'q' to quit),
// colored with fatih/color. It draws no per-scene status lines, and
// its bars map is never populated, so no progress bar is shown.
type StatusView struct {
	pool *Pool

	mu   sync.Mutex
	bars map[int]*progressbar.ProgressBar

	cyan   *color.Color
	green  *color.Color
	yellow *color.Color
}

// NewStatusView builds a StatusView driving pool's worker count from
// keypresses.
func NewStatusView(pool *Pool) *StatusView {
	return &StatusView{
		pool:   pool,
		bars:   make(map[int]*progressbar.ProgressBar),
		cyan:   color.New(color.FgCyan, color.Bold),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow, color.Bold),
	}
}

// termWidth returns the terminal column count, falling back to 80
// when stdout isn't a TTY or the ioctl fails.
func termWidth() int {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 80
	}
	return int(ws.Col)
}

// Report prints one status line summarizing the pool.
func (v *StatusView) Report() {
	v.mu.Lock()
	defer v.mu.Unlock()
	active := v.pool.ActiveWorkers()
	_, _ = v.cyan.Printf("workers: %d", active)
	fmt.Println()
}

// RunKeypressMenu puts stdin into raw mode and reads single keypresses
// until ctx is cancelled or 'q' is pressed, in which case cancel is
// called to begin shutdown. '+' adds a worker, '-' removes one.
func (v *StatusView) RunKeypressMenu(ctx context.Context, cancel context.CancelFunc) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	buf := make([]byte, 1)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		switch buf[0] {
		case '+':
			v.pool.AddWorker(ctx)
			_, _ = v.green.Printf("\r\nadded a worker (now %d)\r\n", v.pool.ActiveWorkers())
		case '-':
			if v.pool.RemoveWorker() {
				_, _ = v.yellow.Printf("\r\nremoved a worker (now %d)\r\n", v.pool.ActiveWorkers())
			}
		case 'q', 'Q', 3: // 3 = Ctrl-C under raw mode
			cancel()
			return
		}
	}
}
