package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
)

// maxLineBytes bounds a single log line; displayed_text attrs can make
// records long.
const maxLineBytes = 1 << 20

// followPoll is how often Follow checks the file for new output.
const followPoll = 200 * time.Millisecond

// LogEntry is one decoded line of the agent's JSON log.
type LogEntry struct {
	Time  time.Time      `json:"time"`
	Level string         `json:"level"`
	Msg   string         `json:"msg"`
	Attrs map[string]any `json:"-"`
	// Raw is the line as read from the file.
	Raw string `json:"-"`
	// IsValid is false for lines that are not JSON (panic traces,
	// stray prints); those pass through unformatted.
	IsValid bool `json:"-"`
}

// ViewerConfig filters and styles the log output.
type ViewerConfig struct {
	// Level drops entries below this level when set.
	Level string
	// Pattern drops lines it does not match when set.
	Pattern *regexp.Regexp
	// NoColor disables ANSI level coloring.
	NoColor bool
}

// Viewer reads the agent's JSON log back for the logs command.
type Viewer struct {
	config ViewerConfig
	out    io.Writer
}

// NewViewer creates a viewer writing formatted entries to out.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	return &Viewer{config: cfg, out: out}
}

// Tail returns the filtered entries among the last n lines of the file.
func (v *Viewer) Tail(path string, n int) ([]LogEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Keep only the trailing n lines while scanning; the log grows
	// unbounded between rotations.
	ring := make([]string, n)
	seen := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		ring[seen%n] = line
		seen++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	count := min(seen, n)
	entries := make([]LogEntry, 0, count)
	for i := seen - count; i < seen; i++ {
		entry := v.parseLine(ring[i%n])
		if v.matchesFilter(entry) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Follow streams filtered entries appended to the file into the channel
// until ctx is cancelled. It survives lumberjack rotations by reopening
// the path when the file it reads is no longer the file the path names.
func (v *Viewer) Follow(ctx context.Context, path string, entries chan<- LogEntry) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	r := bufio.NewReader(f)
	tick := time.NewTicker(followPoll)
	defer tick.Stop()

	var partial []byte
	for {
		chunk, err := r.ReadBytes('\n')
		if err == nil {
			line := string(append(partial, chunk[:len(chunk)-1]...))
			partial = partial[:0]
			if line == "" {
				continue
			}
			entry := v.parseLine(line)
			if !v.matchesFilter(entry) {
				continue
			}
			select {
			case entries <- entry:
			case <-ctx.Done():
				return nil
			}
			continue
		}

		// At EOF. Stash the unterminated tail, if any, and wait for
		// more output or a rotation.
		partial = append(partial, chunk...)
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if nf := reopenIfRotated(f, path); nf != nil {
				_ = f.Close()
				f = nf
				r.Reset(nf)
				partial = partial[:0]
			}
		}
	}
}

// reopenIfRotated returns a handle on the file now at path when f no
// longer is that file, nil otherwise.
func reopenIfRotated(f *os.File, path string) *os.File {
	held, err := f.Stat()
	if err != nil {
		return nil
	}
	named, err := os.Stat(path)
	if err != nil || os.SameFile(held, named) {
		return nil
	}
	nf, err := os.Open(path)
	if err != nil {
		return nil
	}
	return nf
}

// FormatEntry renders one entry as "HH:MM:SS.mmm LEVEL msg k=v ...",
// attributes in key order. Non-JSON lines come back verbatim.
func (v *Viewer) FormatEntry(entry LogEntry) string {
	if !entry.IsValid {
		return entry.Raw
	}

	var b strings.Builder
	b.WriteString(entry.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(v.paintLevel(entry.Level))
	b.WriteByte(' ')
	b.WriteString(entry.Msg)

	keys := make([]string, 0, len(entry.Attrs))
	for k := range entry.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Attrs[k])
	}
	return b.String()
}

// Print writes entries to the viewer's output, one line each.
func (v *Viewer) Print(entries []LogEntry) {
	for _, e := range entries {
		_, _ = fmt.Fprintln(v.out, v.FormatEntry(e))
	}
}

// parseLine decodes one line of slog JSON output.
func (v *Viewer) parseLine(line string) LogEntry {
	entry := LogEntry{Raw: line}

	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return LogEntry{Raw: line}
	}

	var all map[string]any
	if err := json.Unmarshal([]byte(line), &all); err != nil {
		return LogEntry{Raw: line}
	}
	delete(all, "time")
	delete(all, "level")
	delete(all, "msg")

	entry.Attrs = all
	entry.IsValid = true
	return entry
}

// matchesFilter applies the configured level and pattern filters.
func (v *Viewer) matchesFilter(entry LogEntry) bool {
	if v.config.Level != "" &&
		LevelFromString(entry.Level) < LevelFromString(v.config.Level) {
		return false
	}
	if v.config.Pattern != nil && !v.config.Pattern.MatchString(entry.Raw) {
		return false
	}
	return true
}

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "\033[90m",
	slog.LevelInfo:  "\033[32m",
	slog.LevelWarn:  "\033[33m",
	slog.LevelError: "\033[31m",
}

// paintLevel renders a fixed-width, optionally colored level tag.
func (v *Viewer) paintLevel(level string) string {
	tag := strings.ToUpper(level)
	if len(tag) > 5 {
		tag = tag[:5]
	}
	tag = fmt.Sprintf("%-5s", tag)

	if v.config.NoColor {
		return tag
	}
	color, ok := levelColors[LevelFromString(level)]
	if !ok {
		return tag
	}
	return color + tag + "\033[0m"
}
