// Package telemetry appends structured sensor readings to a
// comma-delimited per-session log.
package telemetry

import (
	"fmt"
	"io"
	"strconv"

	"github.com/guardpost/guardpost/pkg/jsontime"
)

// Header is the column header row written first to every log.
const Header = "timestamp,temp,humidity,mic_peak"

// Record is one timestamped sensor reading. Values are passed through
// structurally; no range validation is performed.
type Record struct {
	Time     jsontime.Milli
	Temp     float64
	Humidity float64
	MicPeak  float64
}

// Log appends records as CSV rows to an underlying writer.
// It is not safe for concurrent use.
type Log struct {
	w    io.Writer
	rows int
}

// NewLog writes the header row to w and returns a Log positioned to
// append records.
func NewLog(w io.Writer) (*Log, error) {
	if _, err := io.WriteString(w, Header+"\n"); err != nil {
		return nil, fmt.Errorf("telemetry: write header: %w", err)
	}
	return &Log{w: w}, nil
}

// Append writes one record as a CSV row.
func (l *Log) Append(rec Record) error {
	row := strconv.FormatInt(rec.Time.Time().UnixMilli(), 10) +
		"," + formatValue(rec.Temp) +
		"," + formatValue(rec.Humidity) +
		"," + formatValue(rec.MicPeak) + "\n"
	if _, err := io.WriteString(l.w, row); err != nil {
		return fmt.Errorf("telemetry: append row: %w", err)
	}
	l.rows++
	return nil
}

// Rows returns the number of data rows appended (excluding the header).
func (l *Log) Rows() int {
	return l.rows
}

// formatValue renders a sensor value the way it arrived on the wire:
// integral values without a decimal point, others in shortest form.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
