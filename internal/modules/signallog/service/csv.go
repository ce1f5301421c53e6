package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"signal_bot/internal/models"
)

const csvTimeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{
	"signal_id", "timestamp_wat", "origin", "asset", "signal", "confidence", "price",
	"analysis", "confirms", "meta", "result", "result_time_wat",
}

// CSV — файл журнала. Исход пишется отдельной строкой с тем же signal_id.
type CSV struct {
	zone *time.Location

	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

var _ Sink = (*CSV)(nil)

func NewCSV(path string, zone *time.Location) (*CSV, error) {
	if zone == nil {
		zone = time.UTC
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("signallog.NewCSV: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("signallog.NewCSV: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("signallog.NewCSV: %w", err)
	}

	c := &CSV{zone: zone, f: f, w: csv.NewWriter(f)}
	if st.Size() == 0 {
		if err := c.write(csvHeader); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *CSV) row(e models.LogEntry) []string {
	var resultAt string
	if !e.ResultAt.IsZero() {
		resultAt = e.ResultAt.In(c.zone).Format(csvTimeLayout)
	}
	return []string{
		e.SignalID,
		e.CreatedAt.In(c.zone).Format(csvTimeLayout),
		string(e.Origin),
		e.Symbol,
		string(e.Direction),
		strconv.Itoa(e.Confidence),
		strconv.FormatFloat(e.Price, 'f', -1, 64),
		e.Reasons,
		strconv.Itoa(e.Confirmations),
		string(e.Snapshot),
		string(e.Result),
		resultAt,
	}
}

func (c *CSV) write(rec []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.w.Write(rec); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSV) Append(_ context.Context, e models.LogEntry) error {
	return c.write(c.row(e))
}

func (c *CSV) Outcome(_ context.Context, e models.LogEntry) error {
	return c.write(c.row(e))
}

func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	return c.f.Close()
}
