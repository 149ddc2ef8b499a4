package stream

import (
	"regexp"
	"strings"
)

// DefaultProgressMarkers identify the progress lines our recon tools print.
var DefaultProgressMarkers = []string{"raw_extract:", "lines/sec"}

var rateRe = regexp.MustCompile(`\d+(?:\.\d+)?\s?(?:it|items|req|lines|[KMG]?B)/s\b`)

// ProgressMatcher recognises progress lines.
type ProgressMatcher interface {
	IsProgress(line string) bool
}

// MarkerMatcher treats a line as progress when it contains one of its
// markers or a throughput figure such as "12.5 it/s".
type MarkerMatcher struct {
	markers []string
	rates   bool
}

// NewMarkerMatcher matches the given markers. With no markers it falls back
// to DefaultProgressMarkers.
func NewMarkerMatcher(markers ...string) MarkerMatcher {
	if len(markers) == 0 {
		markers = DefaultProgressMarkers
	}
	return MarkerMatcher{markers: markers, rates: true}
}

// MarkersOnly disables throughput detection.
func (m MarkerMatcher) MarkersOnly() MarkerMatcher {
	m.rates = false
	return m
}

func (m MarkerMatcher) IsProgress(line string) bool {
	for _, marker := range m.markers {
		if marker != "" && strings.Contains(line, marker) {
			return true
		}
	}
	return m.rates && rateRe.MatchString(line)
}

// Buffer accumulates run output. Progress fragments replace the trailing
// run of progress lines instead of appending.
type Buffer struct {
	matcher   ProgressMatcher
	buf       []byte
	signature string
}

// NewBuffer creates an empty buffer. A nil matcher uses the defaults.
func NewBuffer(matcher ProgressMatcher) *Buffer {
	if matcher == nil {
		matcher = NewMarkerMatcher()
	}
	return &Buffer{matcher: matcher}
}

// Write adds one inbound fragment.
func (b *Buffer) Write(fragment string) {
	if b.matcher.IsProgress(fragment) {
		b.replaceProgressTail(fragment)
		b.signature = progressSignature(fragment)
		return
	}
	if len(b.buf) > 0 && b.buf[len(b.buf)-1] != '\n' {
		b.buf = append(b.buf, '\n')
	}
	b.buf = append(b.buf, fragment...)
}

func (b *Buffer) replaceProgressTail(fragment string) {
	end := trimBlankTail(b.buf)
	for end > 0 {
		start := lastLineStart(b.buf[:end])
		if !b.matcher.IsProgress(string(b.buf[start:end])) {
			break
		}
		end = max(start-1, 0)
	}
	b.buf = b.buf[:end]
	if end > 0 {
		b.buf = append(b.buf, '\n')
	}
	b.buf = append(b.buf, fragment...)
}

// trimBlankTail returns the length of buf without trailing blank lines.
func trimBlankTail(buf []byte) int {
	end := len(buf)
	for end > 0 {
		start := lastLineStart(buf[:end])
		if strings.TrimSpace(string(buf[start:end])) != "" {
			return end
		}
		end = max(start-1, 0)
	}
	return 0
}

func lastLineStart(buf []byte) int {
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

// progressSignature keeps the label part of a progress line so callers can
// tell which indicator is currently updating.
func progressSignature(line string) string {
	line = strings.TrimSpace(line)
	if i := strings.IndexAny(line, "0123456789"); i > 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// String returns the accumulated output.
func (b *Buffer) String() string {
	return string(b.buf)
}

// Len returns the accumulated output size in bytes.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// LastProgress returns the signature of the most recent progress fragment.
func (b *Buffer) LastProgress() string {
	return b.signature
}

// Reset clears the buffer.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.signature = ""
}

// Tail returns at most n trailing lines.
func (b *Buffer) Tail(n int) string {
	if n <= 0 {
		return ""
	}
	end := trimBlankTail(b.buf)
	start := end
	for i := 0; i < n && start > 0; i++ {
		start = lastLineStart(b.buf[:start])
		if i < n-1 && start > 0 {
			start--
		}
	}
	return string(b.buf[start:end])
}
