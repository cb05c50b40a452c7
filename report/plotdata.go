package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/karlbench/karlbench/bench"
)

// Series is one line of a chart: elapsed seconds against cumulative
// bytes. It encodes as the array [xs, ys, label].
type Series struct {
	X     []float64
	Y     []float64
	Label string
}

// MarshalJSON implements json.Marshaler.
func (s Series) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{nonNil(s.X), nonNil(s.Y), s.Label})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode series: %w", err)
	}

	if len(raw) != 3 {
		return fmt.Errorf("decode series: want 3 elements, got %d", len(raw))
	}

	if err := json.Unmarshal(raw[0], &s.X); err != nil {
		return fmt.Errorf("decode series x values: %w", err)
	}
	if err := json.Unmarshal(raw[1], &s.Y); err != nil {
		return fmt.Errorf("decode series y values: %w", err)
	}
	if err := json.Unmarshal(raw[2], &s.Label); err != nil {
		return fmt.Errorf("decode series label: %w", err)
	}

	if len(s.X) != len(s.Y) {
		return fmt.Errorf("decode series %q: %d x values but %d y values",
			s.Label, len(s.X), len(s.Y))
	}

	return nil
}

// Disk describes the device a group of series belongs to.
type Disk struct {
	Label      string `json:"label"`
	Mountpoint string `json:"mountpoint"`
}

// DeviceSeries groups the (write, read) series pairs of every run
// against one device. It encodes as [disk, [[write, read], ...]].
type DeviceSeries struct {
	Disk Disk
	Runs [][2]Series
}

// MarshalJSON implements json.Marshaler.
func (d DeviceSeries) MarshalJSON() ([]byte, error) {
	runs := d.Runs
	if runs == nil {
		runs = [][2]Series{}
	}

	return json.Marshal([]any{d.Disk, runs})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DeviceSeries) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode device: %w", err)
	}

	if len(raw) != 2 {
		return fmt.Errorf("decode device: want 2 elements, got %d", len(raw))
	}

	if err := json.Unmarshal(raw[0], &d.Disk); err != nil {
		return fmt.Errorf("decode device metadata: %w", err)
	}

	return json.Unmarshal(raw[1], &d.Runs)
}

// PlotData groups results by device, in order of first appearance.
// Runs that did not finish both the write and read phase are skipped.
func PlotData(results []bench.Result) []DeviceSeries {
	var out []DeviceSeries

	index := make(map[string]int)

	for _, r := range results {
		write, okWrite := r.Phase(bench.PhaseWrite)
		read, okRead := r.Phase(bench.PhaseRead)

		if !okWrite || !okRead {
			continue
		}

		i, ok := index[r.Device]
		if !ok {
			i = len(out)
			index[r.Device] = i
			out = append(out, DeviceSeries{Disk: Disk{Label: r.Device}})
		}

		out[i].Runs = append(out[i].Runs, [2]Series{
			phaseSeries(write, "write "+shortID(r.ID)),
			phaseSeries(read, "read "+shortID(r.ID)),
		})
	}

	return out
}

// WritePlotData encodes the plot series for results to w.
func WritePlotData(w io.Writer, results []bench.Result) error {
	data := PlotData(results)
	if data == nil {
		data = []DeviceSeries{}
	}

	return json.NewEncoder(w).Encode(data)
}

// ReadPlotData decodes plot series from r.
func ReadPlotData(r io.Reader) ([]DeviceSeries, error) {
	var data []DeviceSeries
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode plot data: %w", err)
	}

	return data, nil
}

func phaseSeries(pr bench.PhaseResult, label string) Series {
	s := Series{
		X:     []float64{0},
		Y:     []float64{0},
		Label: label,
	}

	for _, sample := range pr.Samples {
		s.X = append(s.X, sample.Seconds)
		s.Y = append(s.Y, float64(sample.Bytes))
	}

	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}

	return v
}
