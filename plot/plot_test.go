package plot

import (
	"bytes"
	"testing"

	"github.com/karlbench/karlbench/report"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	data := []report.DeviceSeries{
		{
			Disk: report.Disk{Label: "/dev/disk4"},
			Runs: [][2]report.Series{{
				{X: []float64{0, 1, 2}, Y: []float64{0, 512, 1024}, Label: "write abc"},
				{X: []float64{0, 1}, Y: []float64{0, 1024}, Label: "read abc"},
			}},
		},
		{
			Disk: report.Disk{Label: "/dev/disk5"},
			Runs: [][2]report.Series{{
				{X: []float64{0, 3}, Y: []float64{0, 2048}, Label: "write def"},
				{X: []float64{0, 2}, Y: []float64{0, 2048}, Label: "read def"},
			}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "karlbench", data))

	out := buf.String()
	require.Contains(t, out, "karlbench")
	require.Contains(t, out, "/dev/disk4")
	require.Contains(t, out, "/dev/disk5")
	require.Contains(t, out, "write abc")
	require.Contains(t, out, "read def")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Render(&buf, "karlbench", nil))
}

func TestPoints(t *testing.T) {
	got := points(report.Series{X: []float64{0, 1.5}, Y: []float64{0, 4096}})
	require.Len(t, got, 2)
	require.Equal(t, []interface{}{1.5, 4096.0}, got[1].Value)
}
