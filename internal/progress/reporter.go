package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"

	"baniusync/internal/queue"
)

// Event is sent by a worker after each successful upload
type Event struct {
	Key     string // key confirmed by the storage server, prefix included
	Filekey string
	Size    int64
}

// Reporter shows how many files finished and which one finished last.
// It only ever learns about successes; failed files show up as a count
// that stops short of the total.
type Reporter struct {
	completed *queue.Completed
	total     int
	tracker   *Tracker
	bar       *progressbar.ProgressBar
	logger    *zap.Logger

	mu      sync.Mutex
	count   int
	message string
}

// NewReporter creates a reporter for a session of total files.
// A progress bar is drawn on stderr when show is set and stderr is a terminal;
// otherwise completions are logged together with the tracker's speed and ETA.
// tracker may be nil.
func NewReporter(completed *queue.Completed, total int, show bool, tracker *Tracker, logger *zap.Logger) *Reporter {
	var out io.Writer
	if show && IsTerminalSupported() {
		out = os.Stderr
	}
	return newReporter(completed, total, out, tracker, logger)
}

func newReporter(completed *queue.Completed, total int, out io.Writer, tracker *Tracker, logger *zap.Logger) *Reporter {
	r := &Reporter{
		completed: completed,
		total:     total,
		tracker:   tracker,
		logger:    logger,
		message:   "Uploading...",
	}

	if out != nil {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(r.message),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(out, "\n")
			}),
		)
	}

	return r
}

// Run consumes events until the channel is closed
func (r *Reporter) Run(events <-chan Event) {
	for ev := range events {
		r.Handle(ev)
	}
}

// Handle applies one completion event
func (r *Reporter) Handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := r.completed.Len(); n > r.count {
		r.count = n
	}
	r.message = fmt.Sprintf("%s upload success!", ev.Key)

	if r.bar != nil {
		r.bar.Describe(r.message)
		_ = r.bar.Set(r.count)
		return
	}

	fields := []zap.Field{
		zap.Int("completed", r.count),
		zap.Int("total", r.total),
	}
	if r.tracker != nil {
		status := r.tracker.GetStatus()
		fields = append(fields,
			zap.String("speed", FormatSpeed(status.CurrentSpeed)),
			zap.String("eta", FormatDuration(status.ETA)),
		)
	}
	r.logger.Info(r.message, fields...)
}

// Count returns the value currently shown by the counter
func (r *Reporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count
}

// Message returns the current status line
func (r *Reporter) Message() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.message
}

// Finish stops drawing the bar. It does not fill it up when files failed.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar == nil {
		return
	}
	if r.count >= r.total {
		_ = r.bar.Finish()
		return
	}
	_ = r.bar.Exit()
}

// IsTerminalSupported checks whether stderr can render a progress bar
func IsTerminalSupported() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
