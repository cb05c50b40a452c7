package blockcopy

import (
	"regexp"
	"strconv"
	"strings"
)

// Matches both GNU ("N bytes (..) copied, 1.5 s, ..") and BSD
// ("N bytes transferred in 1.5 secs ..", "N bytes (..) transferred 1.5s, ..")
// status lines.
var statusLine = regexp.MustCompile(
	`^\s*(\d+) bytes\b.*?(?:copied,|transferred(?: in)?)\s*([0-9]+(?:[.,][0-9]+)?(?:e[-+]?[0-9]+)?)\s*s`,
)

const tailLines = 5

// progressParser consumes dd diagnostics and extracts transfer
// samples. Lines may be terminated by '\r' (progress updates) or '\n'.
type progressParser struct {
	partial []byte
	samples []Sample
	tail    []string
}

func (p *progressParser) Write(b []byte) (int, error) {
	for _, c := range b {
		if c == '\r' || c == '\n' {
			p.line(string(p.partial))
			p.partial = p.partial[:0]

			continue
		}

		p.partial = append(p.partial, c)
	}

	return len(b), nil
}

// Flush processes a trailing unterminated line.
func (p *progressParser) Flush() {
	if len(p.partial) > 0 {
		p.line(string(p.partial))
		p.partial = p.partial[:0]
	}
}

func (p *progressParser) line(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}

	p.tail = append(p.tail, s)
	if len(p.tail) > tailLines {
		p.tail = p.tail[len(p.tail)-tailLines:]
	}

	sample, ok := parseStatusLine(s)
	if !ok {
		return
	}

	if n := len(p.samples); n > 0 && p.samples[n-1] == sample {
		return
	}

	p.samples = append(p.samples, sample)
}

// Bytes returns the last reported byte count.
func (p *progressParser) Bytes() (int64, bool) {
	if len(p.samples) == 0 {
		return 0, false
	}

	return p.samples[len(p.samples)-1].Bytes, true
}

func (p *progressParser) Samples() []Sample {
	return append([]Sample(nil), p.samples...)
}

func (p *progressParser) Tail() string {
	return strings.Join(p.tail, "; ")
}

func parseStatusLine(s string) (Sample, bool) {
	m := statusLine.FindStringSubmatch(s)
	if m == nil {
		return Sample{}, false
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Sample{}, false
	}

	secs, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
	if err != nil {
		return Sample{}, false
	}

	return Sample{Seconds: secs, Bytes: n}, true
}
