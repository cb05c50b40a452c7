package blockcopy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/karlbench/karlbench/privilege"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want []string
	}{
		{
			name: "plain",
			req: Request{
				Source: "/dev/urandom", Destination: "/tmp/in",
				BlockSizeBytes: 1 << 20, BlockCount: 1024,
			},
			want: []string{"if=/dev/urandom", "of=/tmp/in", "bs=1048576", "count=1024"},
		},
		{
			name: "write phase",
			req: Request{
				Source: "/tmp/in", Destination: "/dev/disk4",
				BlockSizeBytes: 4096, BlockCount: 10,
				DestSeekBlocks: 77, Conversion: ConversionSyncOnError,
				NoTruncate: true, ReportProgress: true,
			},
			want: []string{
				"if=/tmp/in", "of=/dev/disk4", "bs=4096", "count=10",
				"seek=77", "conv=sync,noerror,notrunc", "status=progress",
			},
		},
		{
			name: "read phase",
			req: Request{
				Source: "/dev/disk4", Destination: "/tmp/out",
				BlockSizeBytes: 4096, BlockCount: 10,
				SourceSeekBlocks: 77, Conversion: ConversionSyncOnError,
			},
			want: []string{
				"if=/dev/disk4", "of=/tmp/out", "bs=4096", "count=10",
				"skip=77", "conv=sync,noerror",
			},
		},
		{
			name: "notrunc only",
			req: Request{
				Source: "a", Destination: "b",
				BlockSizeBytes: 1, BlockCount: 1, NoTruncate: true,
			},
			want: []string{"if=a", "of=b", "bs=1", "count=1", "conv=notrunc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Args(tt.req))
		})
	}
}

func TestValidate(t *testing.T) {
	ok := Request{Source: "a", Destination: "b", BlockSizeBytes: 1, BlockCount: 1}
	require.NoError(t, ok.Validate())

	for _, bad := range []Request{
		{Destination: "b", BlockSizeBytes: 1, BlockCount: 1},
		{Source: "a", BlockSizeBytes: 1, BlockCount: 1},
		{Source: "a", Destination: "b", BlockCount: 1},
		{Source: "a", Destination: "b", BlockSizeBytes: 1},
		{Source: "a", Destination: "b", BlockSizeBytes: 1, BlockCount: 1, DestSeekBlocks: -1},
	} {
		require.ErrorIs(t, bad.Validate(), ErrInvalidRequest)
	}
}

func TestConversionString(t *testing.T) {
	require.Equal(t, "none", ConversionNone.String())
	require.Equal(t, "sync-on-error", ConversionSyncOnError.String())
	require.Equal(t, "Conversion(7)", Conversion(7).String())
}

func requireDD(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("dd"); err != nil {
		t.Skip("dd not available")
	}
}

func newTestDD(progress io.Writer) *DD {
	return NewDD(privilege.None{}, progress, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writePattern(t *testing.T, path string, n int) []byte {
	t.Helper()

	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return data
}

func TestDDCopy(t *testing.T) {
	requireDD(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	data := writePattern(t, src, 4*4096)

	var progress bytes.Buffer
	stats, err := newTestDD(&progress).Copy(context.Background(), Request{
		Label:          "generate",
		Source:         src,
		Destination:    dst,
		BlockSizeBytes: 4096,
		BlockCount:     4,
		ReportProgress: true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(4*4096), stats.BytesCopied)
	require.NotEmpty(t, stats.Samples)
	require.Equal(t, int64(4*4096), stats.Samples[len(stats.Samples)-1].Bytes)
	require.Contains(t, progress.String(), "bytes")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestDDCopyWithSeek(t *testing.T) {
	requireDD(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	device := filepath.Join(dir, "device")
	out := filepath.Join(dir, "out")
	data := writePattern(t, src, 2*512)
	require.NoError(t, os.WriteFile(device, make([]byte, 8*512), 0o600))

	d := newTestDD(nil)
	ctx := context.Background()

	stats, err := d.Copy(ctx, Request{
		Label: "write", Source: src, Destination: device,
		BlockSizeBytes: 512, BlockCount: 2, DestSeekBlocks: 3,
		Conversion: ConversionSyncOnError, NoTruncate: true, Elevated: true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1024), stats.BytesCopied)

	info, err := os.Stat(device)
	require.NoError(t, err)
	require.Equal(t, int64(8*512), info.Size())

	stats, err = d.Copy(ctx, Request{
		Label: "read", Source: device, Destination: out,
		BlockSizeBytes: 512, BlockCount: 2, SourceSeekBlocks: 3,
		Conversion: ConversionSyncOnError, Elevated: true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1024), stats.BytesCopied)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

// recordingEscalator passes commands through unchanged and remembers them.
type recordingEscalator struct {
	name string
	args []string
}

func (e *recordingEscalator) Wrap(name string, args []string) (string, []string, error) {
	e.name, e.args = name, args

	return name, args, nil
}

func TestDDCopyElevatedPinsLocale(t *testing.T) {
	requireDD(t)
	if _, err := exec.LookPath("env"); err != nil {
		t.Skip("env not available")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writePattern(t, src, 2*512)

	esc := &recordingEscalator{}
	d := NewDD(esc, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	stats, err := d.Copy(context.Background(), Request{
		Label: "write", Source: src, Destination: filepath.Join(dir, "dst"),
		BlockSizeBytes: 512, BlockCount: 2, Elevated: true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1024), stats.BytesCopied)

	require.Equal(t, "env", esc.name)
	require.Equal(t, []string{"LC_ALL=C", "dd", "if=" + src}, esc.args[:3])
}

func TestDDCopyMissingSource(t *testing.T) {
	requireDD(t)

	dir := t.TempDir()
	_, err := newTestDD(nil).Copy(context.Background(), Request{
		Label:          "read",
		Source:         filepath.Join(dir, "does-not-exist"),
		Destination:    filepath.Join(dir, "out"),
		BlockSizeBytes: 512,
		BlockCount:     1,
	})
	require.ErrorIs(t, err, ErrCopyFailed)

	var copyErr *CopyFailedError
	require.ErrorAs(t, err, &copyErr)
	require.Equal(t, "read", copyErr.Label)
	require.NotEmpty(t, copyErr.Stderr)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
}

func TestDDCopyEscalationUnavailable(t *testing.T) {
	d := NewDD(privilege.Unavailable{}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := d.Copy(context.Background(), Request{
		Label: "write", Source: "a", Destination: "b",
		BlockSizeBytes: 1, BlockCount: 1, Elevated: true,
	})
	require.ErrorIs(t, err, privilege.ErrEscalationUnavailable)
	require.NotErrorIs(t, err, ErrCopyFailed)
}

func TestDDCopyInvalidRequest(t *testing.T) {
	_, err := newTestDD(nil).Copy(context.Background(), Request{Source: "a", Destination: "b"})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestProgressParser(t *testing.T) {
	p := &progressParser{}
	input := "1048576 bytes (1.0 MB, 1.0 MiB) copied, 1 s, 1.0 MB/s\r" +
		"2097152 bytes (2.1 MB, 2.0 MiB) copied, 2 s, 1.0 MB/s\r" +
		"\n2+0 records in\n2+0 records out\n" +
		"2097152 bytes (2.1 MB, 2.0 MiB) copied, 2,5 s, 839 kB/s\n"

	// Feed in small chunks to exercise partial line handling.
	for i := 0; i < len(input); i += 7 {
		end := min(i+7, len(input))
		_, err := p.Write([]byte(input[i:end]))
		require.NoError(t, err)
	}
	p.Flush()

	require.Equal(t, []Sample{
		{Seconds: 1, Bytes: 1048576},
		{Seconds: 2, Bytes: 2097152},
		{Seconds: 2.5, Bytes: 2097152},
	}, p.Samples())

	n, ok := p.Bytes()
	require.True(t, ok)
	require.Equal(t, int64(2097152), n)
	require.Contains(t, p.Tail(), "2+0 records out")
}

func TestParseStatusLine(t *testing.T) {
	tests := []struct {
		line string
		want Sample
		ok   bool
	}{
		{"10485760 bytes (10 MB, 10 MiB) copied, 0.0234 s, 448 MB/s", Sample{0.0234, 10485760}, true},
		{"0 bytes copied, 0.000123 s, 0.0 kB/s", Sample{0.000123, 0}, true},
		{"512 bytes copied, 6.4e-05 s, 8.0 MB/s", Sample{6.4e-05, 512}, true},
		{"10485760 bytes transferred in 0.012345 secs (849406235 bytes/sec)", Sample{0.012345, 10485760}, true},
		{"  10485760 bytes (10 MB, 10 MiB) transferred 1.002s, 10 MB/s", Sample{1.002, 10485760}, true},
		{"10+0 records in", Sample{}, false},
		{"dd: failed to open 'x': No such file or directory", Sample{}, false},
	}

	for _, tt := range tests {
		got, ok := parseStatusLine(tt.line)
		require.Equal(t, tt.ok, ok, tt.line)
		require.Equal(t, tt.want, got, tt.line)
	}
}

type stubCopier struct {
	stats Stats
	err   error
}

func (c stubCopier) Copy(context.Context, Request) (Stats, error) {
	return c.stats, c.err
}

func TestMetricsCopier(t *testing.T) {
	ctx := context.Background()
	req := Request{Label: "metrics-test"}

	okBefore := testutil.ToFloat64(copyOperationsTotal.WithLabelValues("metrics-test", "success"))
	failBefore := testutil.ToFloat64(copyOperationsTotal.WithLabelValues("metrics-test", "copy_failed"))
	bytesBefore := testutil.ToFloat64(copyBytesTotal.WithLabelValues("metrics-test"))

	_, err := NewMetricsCopier(stubCopier{stats: Stats{BytesCopied: 4096}}).Copy(ctx, req)
	require.NoError(t, err)

	failure := &CopyFailedError{Label: "metrics-test", Err: errors.New("exit status 1")}
	_, err = NewMetricsCopier(stubCopier{err: failure}).Copy(ctx, req)
	require.ErrorIs(t, err, ErrCopyFailed)

	require.Equal(t, okBefore+1, testutil.ToFloat64(copyOperationsTotal.WithLabelValues("metrics-test", "success")))
	require.Equal(t, failBefore+1, testutil.ToFloat64(copyOperationsTotal.WithLabelValues("metrics-test", "copy_failed")))
	require.Equal(t, bytesBefore+4096, testutil.ToFloat64(copyBytesTotal.WithLabelValues("metrics-test")))
}
