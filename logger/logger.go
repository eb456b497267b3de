// Package logger provides the logrus formatter of the counter processor.
// Fields describing the counter a line is about are printed first, in a
// fixed order, so that the lines of one counter are easy to grep.
package logger

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTimestampFormat = "2006-01-02 15:04:05.000"

// leading fields, in print order
var leading = []string{"ocid", "object", "counter", "variable"}

type TextFormatter struct {
	// Disable timestamp logging. useful when output is redirected to logging
	// system that already adds timestamps
	DisableTimestamp bool

	// Timestamp format to use for display when a full timestamp is printed
	TimestampFormat string

	// The name of the module, printed before the log message if not empty
	ModuleName string
}

// Format renders a single log entry.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	if !f.DisableTimestamp {
		format := f.TimestampFormat
		if format == "" {
			format = defaultTimestampFormat
		}
		b.WriteString(entry.Time.Format(format))
		b.WriteByte(' ')
	}

	b.WriteByte('[')
	b.WriteString(strings.ToUpper(entry.Level.String()))
	b.WriteString("] ")

	if f.ModuleName != "" {
		b.WriteByte('[')
		b.WriteString(f.ModuleName)
		b.WriteString("] ")
	}

	b.WriteString(entry.Message)
	for _, key := range sortedKeys(entry.Data) {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		appendValue(b, entry.Data[key])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// sortedKeys returns the leading keys present in data, then the others sorted.
func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for _, k := range leading {
		if _, ok := data[k]; ok {
			keys = append(keys, k)
		}
	}
	rest := make([]string, 0, len(data))
	for k := range data {
		if !isLeading(k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func isLeading(key string) bool {
	for _, k := range leading {
		if k == key {
			return true
		}
	}
	return false
}

func needsQuoting(text string) bool {
	if text == "" {
		return true
	}
	for _, ch := range text {
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' || ch == '.' || ch == '_' || ch == ':') {
			return true
		}
	}
	return false
}

func appendValue(b *bytes.Buffer, value interface{}) {
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case error:
		text = v.Error()
	case time.Duration:
		b.WriteString(v.String())
		return
	default:
		fmt.Fprint(b, v)
		return
	}
	if needsQuoting(text) {
		b.WriteString(strconv.Quote(text))
		return
	}
	b.WriteString(text)
}

// Setup installs the formatter on the standard logger and sets its level.
func Setup(level, module string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetFormatter(&TextFormatter{ModuleName: module})
	logrus.SetLevel(lvl)
	return nil
}
