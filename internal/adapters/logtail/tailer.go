// Package logtail reads a game server log file: it replays the current
// session's history and then follows appended lines.
package logtail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/warden/internal/clock"
	"github.com/brianly1003/warden/internal/domain"
	"github.com/brianly1003/warden/internal/domain/events"
	"github.com/brianly1003/warden/internal/sync"
)

// Tailer defaults.
const (
	DefaultSessionMarker  = "InitGame:"
	DefaultTimestampWidth = 7
	DefaultPollInterval   = 250 * time.Millisecond
	backlogBlockSize      = 4096
)

// Options configures a Tailer. Zero values select defaults.
type Options struct {
	Encoding string // utf-8, latin1 or windows-1252

	// TimestampWidth is the fixed-width prefix stripped from each line.
	// Negative disables stripping.
	TimestampWidth int

	// SessionMarker is the line content that opens a game session. History
	// is replayed from the last occurrence.
	SessionMarker string

	// BacklogFilters are regular expressions. Matching history lines are
	// dropped so replayed chat cannot re-trigger commands.
	BacklogFilters []string

	PollInterval time.Duration
	Clock        clock.Clock
}

// Sink receives each line in file order.
type Sink func(events.LogMessage)

// Tailer follows a single log file.
type Tailer struct {
	path    string
	opts    Options
	decode  decoder
	filters []*regexp.Regexp
	clock   clock.Clock

	// Read position; touched only by the goroutine running Run.
	offset  int64
	partial []byte
	info    os.FileInfo

	mu       sync.Mutex
	stopping bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New validates options and creates a tailer for path.
func New(path string, opts Options) (*Tailer, error) {
	if path == "" {
		return nil, domain.NewValidationError("logfile.path", "log file path is required")
	}
	if opts.TimestampWidth == 0 {
		opts.TimestampWidth = DefaultTimestampWidth
	}
	if opts.SessionMarker == "" {
		opts.SessionMarker = DefaultSessionMarker
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	decode, err := newDecoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	filters := make([]*regexp.Regexp, 0, len(opts.BacklogFilters))
	for _, pattern := range opts.BacklogFilters {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: backlog filter %q: %v", domain.ErrConfiguration, pattern, err)
		}
		filters = append(filters, re)
	}

	c := opts.Clock
	if c == nil {
		c = clock.Real()
	}

	return &Tailer{
		path:    path,
		opts:    opts,
		decode:  decode,
		filters: filters,
		clock:   c,
	}, nil
}

// Path returns the followed file.
func (t *Tailer) Path() string {
	return t.path
}

// Backlog returns the current session's lines, from the last session
// marker to the last complete line, timestamp-stripped and filtered.
func (t *Tailer) Backlog() ([]string, error) {
	lines, _, _, err := t.readBacklog()
	return lines, err
}

func (t *Tailer) readBacklog() ([]string, int64, os.FileInfo, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil, fmt.Errorf("%w: log file %s does not exist", domain.ErrConfiguration, t.path)
		}
		return nil, 0, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, nil, err
	}

	session, err := scanToMarker(f, info.Size(), []byte(t.opts.SessionMarker))
	if err != nil {
		return nil, 0, nil, err
	}

	// Only complete lines belong to the backlog; a trailing fragment is
	// picked up by the live tail once its newline arrives.
	end := bytes.LastIndexByte(session, '\n') + 1
	offset := info.Size() - int64(len(session)-end)

	var lines []string
	for _, line := range t.splitLines(session[:end]) {
		if t.filtered(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines, offset, info, nil
}

// scanToMarker returns the bytes from the start of the line holding the
// last occurrence of marker to size, or the whole file when there is no
// marker.
func scanToMarker(r io.ReaderAt, size int64, marker []byte) ([]byte, error) {
	start, err := sessionStart(r, size, marker)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size-start)
	if _, err := r.ReadAt(buf, start); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf, nil
}

// sessionStart reads backward from size in blocks and returns the offset
// of the line holding the last marker, or 0. Each window reaches
// len(marker)-1 bytes into the block after it so a marker split across
// two blocks is still found.
func sessionStart(r io.ReaderAt, size int64, marker []byte) (int64, error) {
	if len(marker) == 0 {
		return 0, nil
	}
	overlap := int64(len(marker) - 1)
	window := make([]byte, backlogBlockSize+overlap)

	pos := size
	found := false
	for pos > 0 && !found {
		n := min(int64(backlogBlockSize), pos)
		pos -= n
		end := min(pos+n+overlap, size)

		buf := window[:end-pos]
		if _, err := r.ReadAt(buf, pos); err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		idx := bytes.LastIndex(buf, marker)
		if idx < 0 {
			continue
		}
		found = true
		if nl := bytes.LastIndexByte(buf[:idx], '\n'); nl >= 0 {
			return pos + int64(nl) + 1, nil
		}
	}
	if !found {
		return 0, nil
	}

	// The marker line started before the block it was found in.
	for pos > 0 {
		n := min(int64(backlogBlockSize), pos)
		pos -= n

		buf := window[:n]
		if _, err := r.ReadAt(buf, pos); err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if nl := bytes.LastIndexByte(buf, '\n'); nl >= 0 {
			return pos + int64(nl) + 1, nil
		}
	}
	return 0, nil
}

func (t *Tailer) filtered(line string) bool {
	for _, re := range t.filters {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// splitLines decodes complete lines and strips their timestamps. Blank
// lines are dropped.
func (t *Tailer) splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := t.decode(data)
	raw := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		line = t.stripTimestamp(line)
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func (t *Tailer) stripTimestamp(line string) string {
	w := t.opts.TimestampWidth
	if w <= 0 {
		return line
	}
	if len(line) <= w {
		return ""
	}
	return line[w:]
}

// Start replays the backlog into sink and follows the file in a background
// goroutine until Stop.
func (t *Tailer) Start(sink Sink) error {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return errors.New("log tailer already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.stopping = false
	t.mu.Unlock()

	if err := t.replay(sink); err != nil {
		cancel()
		t.mu.Lock()
		t.cancel = nil
		t.mu.Unlock()
		return err
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.follow(ctx, sink)
	}()
	return nil
}

// Run replays the backlog into sink and follows the file until ctx is
// done or Stop is called.
func (t *Tailer) Run(ctx context.Context, sink Sink) error {
	if err := t.replay(sink); err != nil {
		return err
	}
	t.follow(ctx, sink)
	return nil
}

// Stop signals the follow loop and waits for it to exit.
func (t *Tailer) Stop() {
	t.mu.Lock()
	t.stopping = true
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.wg.Wait()
}

func (t *Tailer) stopRequested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopping
}

func (t *Tailer) replay(sink Sink) error {
	lines, offset, info, err := t.readBacklog()
	if err != nil {
		return err
	}
	for _, line := range lines {
		sink(events.NewBacklogMessage(line))
	}
	t.offset = offset
	t.partial = nil
	t.info = info

	log.Info().
		Str("path", t.path).
		Int("backlog_lines", len(lines)).
		Int64("offset", offset).
		Msg("log backlog replayed")
	return nil
}

// follow reads appended lines on fsnotify events, with a polling ticker
// for filesystems that do not deliver them.
func (t *Tailer) follow(ctx context.Context, sink Sink) {
	var notify <-chan fsnotify.Event
	var errs <-chan error

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("fsnotify unavailable, polling log file")
	} else {
		defer watcher.Close()
		// Watch the directory so rotation and re-creation are seen.
		if err := watcher.Add(filepath.Dir(t.path)); err != nil {
			log.Warn().Err(err).Str("path", t.path).Msg("failed to watch log directory, polling")
		} else {
			notify = watcher.Events
			errs = watcher.Errors
		}
	}

	ticker := t.clock.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	target := filepath.Clean(t.path)
	for !t.stopRequested() {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-notify:
			if !ok {
				notify = nil
				continue
			}
			if filepath.Clean(event.Name) == target && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				t.checkForNewContent(sink)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn().Err(err).Msg("log watcher error")
		case <-ticker.C:
			t.checkForNewContent(sink)
		}
	}
}

// checkForNewContent emits complete lines appended since the last read.
// A shrunken or replaced file is read again from the start.
func (t *Tailer) checkForNewContent(sink Sink) {
	info, err := os.Stat(t.path)
	if err != nil {
		return
	}

	if t.info != nil && !os.SameFile(t.info, info) {
		log.Info().Str("path", t.path).Msg("log file replaced, reading from start")
		t.offset = 0
		t.partial = nil
	} else if info.Size() < t.offset {
		log.Info().Str("path", t.path).Msg("log file truncated, reading from start")
		t.offset = 0
		t.partial = nil
	}
	t.info = info

	if info.Size() == t.offset {
		return
	}

	f, err := os.Open(t.path)
	if err != nil {
		log.Warn().Err(err).Str("path", t.path).Msg("failed to open log file")
		return
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		log.Warn().Err(err).Msg("failed to seek in log file")
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read log file")
		return
	}
	t.offset += int64(len(data))

	data = append(t.partial, data...)
	end := bytes.LastIndexByte(data, '\n') + 1
	t.partial = append([]byte(nil), data[end:]...)

	for _, line := range t.splitLines(data[:end]) {
		sink(events.NewLogMessage(line))
	}
}
