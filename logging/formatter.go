package logging

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultPattern matches the original hierarchy's default: time, level,
// logger name, tab, message, newline.
const DefaultPattern = "%d [%p] %c%T%m%n"

// Formatter renders an Event into text using a pattern string built from
// the tags %m %p %t %n %c %d %f %l %T (message, level, goroutine ID,
// newline, logger name, date, file, line, tab).
type Formatter struct {
	pattern string
}

// NewFormatter compiles pattern into a Formatter. An empty pattern falls
// back to DefaultPattern.
func NewFormatter(pattern string) *Formatter {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &Formatter{pattern: pattern}
}

// Format renders event according to the formatter's pattern.
func (f *Formatter) Format(event Event) string {
	var b strings.Builder
	runes := []rune(f.pattern)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' || i+1 >= len(runes) {
			b.WriteRune(runes[i])
			continue
		}
		i++
		switch runes[i] {
		case 'm':
			b.WriteString(event.Message)
		case 'p':
			b.WriteString(event.Level.String())
		case 't':
			b.WriteString(strconv.FormatUint(event.GoroutineID, 10))
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteString(event.LoggerName)
		case 'd':
			b.WriteString(event.Time.Format("2006-01-02 15:04:05.000"))
		case 'f':
			b.WriteString(filepath.Base(event.File))
		case 'l':
			b.WriteString(strconv.Itoa(event.Line))
		case 'T':
			b.WriteByte('\t')
		case '%':
			b.WriteByte('%')
		default:
			b.WriteString(fmt.Sprintf("%%%c", runes[i]))
		}
	}
	return b.String()
}

// Pattern returns the compiled pattern string.
func (f *Formatter) Pattern() string {
	return f.pattern
}
