// internal/sink/csv.go
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tamzrod/ptprobe/internal/frame"
)

// CSV writes one row per sample:
//
//	timestamp, active0..3, fault0..3, t0..3, tref0..3, p0..3
type CSV struct {
	path string
	f    *os.File
	w    *csv.Writer
}

func NewCSV(path string) *CSV { return &CSV{path: path} }

func (c *CSV) Name() string { return "csv:" + c.path }

func (c *CSV) Open() error {
	if c.f != nil {
		return fmt.Errorf("sink csv: %s already open", c.path)
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("sink csv: %w", err)
		}
	}
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("sink csv: %w", err)
	}
	w := csv.NewWriter(f)
	err = w.Write(csvHeader())
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("sink csv: header: %w", err)
	}
	c.f, c.w = f, w
	return nil
}

func (c *CSV) Write(s frame.Sample) error {
	if c.w == nil {
		return ErrClosed
	}
	if err := c.w.Write(csvRow(s)); err != nil {
		return fmt.Errorf("sink csv: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSV) Close() error {
	if c.f == nil {
		return nil
	}
	c.w.Flush()
	ferr := c.w.Error()
	cerr := c.f.Close()
	c.f, c.w = nil, nil
	if ferr != nil {
		return fmt.Errorf("sink csv: flush: %w", ferr)
	}
	return cerr
}

func csvHeader() []string {
	h := []string{"timestamp"}
	for _, col := range []string{"active", "fault", "t", "tref", "p"} {
		for ch := 0; ch < frame.Channels; ch++ {
			h = append(h, fmt.Sprintf("%s%d", col, ch))
		}
	}
	return h
}

func csvRow(s frame.Sample) []string {
	row := make([]string, 0, 1+5*frame.Channels)
	row = append(row, strconv.FormatUint(uint64(s.Timestamp), 10))
	for _, a := range s.ActiveT {
		if a {
			row = append(row, "1")
		} else {
			row = append(row, "0")
		}
	}
	for _, f := range s.FaultT {
		row = append(row, strconv.FormatUint(uint64(f), 10))
	}
	for _, group := range [][frame.Channels]float32{s.Temperature, s.RefTemperature, s.Pressure} {
		for _, v := range group {
			row = append(row, strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
	}
	return row
}
