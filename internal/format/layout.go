package format

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LayoutIssue is one violation of a format's fixed-width layout.
type LayoutIssue struct {
	Line    int // 1-based; 0 for whole-file issues
	Message string
}

func (i LayoutIssue) String() string {
	if i.Line == 0 {
		return i.Message
	}
	return fmt.Sprintf("line %d: %s", i.Line, i.Message)
}

const (
	iagaLineWidth    = 70
	imfHeaderWidth   = 62
	imfRecordWidth   = 62
	imfBlockRecords  = 30
	imfHoursPerDay   = 24
	maxLayoutIssues  = 50
	internetFieldCnt = 7
)

var (
	iagaDataLine  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}) (\d{3}) {4} *-?\d+\.\d{2}( +-?\d+\.\d{2}){3}$`)
	imfHeaderLine = regexp.MustCompile(`^([A-Z0-9 ]{3}) ([A-Z]{3}\d{4}) (\d{3}) (\d{2}) XYZF [RD] [A-Z0-9 ]{3} \d{8} 000000 R{16}$`)
	imfRecordLine = regexp.MustCompile(`^ *-?\d+( +-?\d+){3}  +-?\d+( +-?\d+){3}$`)
)

// CheckLayout reads an encoded file and reports where it departs from the
// fixed-width layout of f. An empty result means the layout is valid.
// Reporting stops after a bounded number of issues.
func CheckLayout(r io.Reader, f Format) ([]LayoutIssue, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	var issues []LayoutIssue
	switch f {
	case IAGA2002:
		issues = checkIAGA(lines)
	case IMFV122:
		issues = checkIMF(lines)
	case Internet:
		issues = checkInternet(lines)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
	}
	if len(issues) > maxLayoutIssues {
		issues = append(issues[:maxLayoutIssues], LayoutIssue{Message: "too many issues, stopping"})
	}
	return issues, nil
}

type rawLine struct {
	text string
	crlf bool
}

func readLines(r io.Reader) ([]rawLine, error) {
	var lines []rawLine
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		text := sc.Text()
		crlf := strings.HasSuffix(text, "\r")
		lines = append(lines, rawLine{text: strings.TrimSuffix(text, "\r"), crlf: crlf})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return lines, nil
}

func checkIAGA(lines []rawLine) []LayoutIssue {
	var issues []LayoutIssue
	add := func(n int, format string, args ...any) {
		issues = append(issues, LayoutIssue{Line: n, Message: fmt.Sprintf(format, args...)})
	}

	header := -1
	for i, l := range lines {
		n := i + 1
		if !l.crlf {
			add(n, "record does not end with CRLF")
		}
		if len(l.text) != iagaLineWidth {
			add(n, "record is %d characters, want %d", len(l.text), iagaLineWidth)
		}
		if header >= 0 {
			continue
		}
		switch {
		case strings.HasPrefix(l.text, "DATE       TIME"):
			header = i
		case !strings.HasPrefix(l.text, " "):
			add(n, "header record must start with a space")
		case !strings.HasSuffix(l.text, "|"):
			add(n, "header record must end with |")
		}
	}
	if header < 0 {
		return append(issues, LayoutIssue{Message: "missing DATE TIME column header"})
	}

	var prev, day time.Time
	var step time.Duration
	for i := header + 1; i < len(lines); i++ {
		n := i + 1
		m := iagaDataLine.FindStringSubmatch(lines[i].text)
		if m == nil {
			add(n, "malformed data record")
			continue
		}
		ts, err := time.Parse("2006-01-02 15:04:05.000", m[1])
		if err != nil {
			add(n, "bad timestamp %q", m[1])
			continue
		}
		if doy, _ := strconv.Atoi(m[2]); doy != ts.YearDay() {
			add(n, "day of year %s does not match %s", m[2], m[1])
		}
		switch {
		case day.IsZero():
			day = ts.Truncate(24 * time.Hour)
		case ts.Truncate(24*time.Hour) != day:
			add(n, "record outside day %s", day.Format(time.DateOnly))
		}
		if !prev.IsZero() {
			d := ts.Sub(prev)
			if step == 0 {
				step = d
			}
			if d != step || d <= 0 {
				add(n, "timestamp step %s, want %s", d, step)
			}
		}
		prev = ts
	}
	return issues
}

func checkIMF(lines []rawLine) []LayoutIssue {
	var issues []LayoutIssue
	add := func(n int, format string, args ...any) {
		issues = append(issues, LayoutIssue{Line: n, Message: fmt.Sprintf(format, args...)})
	}

	want := imfHoursPerDay * (imfBlockRecords + 1)
	if len(lines) != want {
		add(0, "file has %d records, want %d", len(lines), want)
	}
	var station, date string
	for i, l := range lines {
		n := i + 1
		if l.crlf {
			add(n, "record ends with CRLF, want LF")
		}
		if i%(imfBlockRecords+1) != 0 {
			if len(l.text) != imfRecordWidth {
				add(n, "data record is %d characters, want %d", len(l.text), imfRecordWidth)
			} else if !imfRecordLine.MatchString(l.text) {
				add(n, "malformed data record")
			}
			continue
		}

		if len(l.text) != imfHeaderWidth {
			add(n, "block header is %d characters, want %d", len(l.text), imfHeaderWidth)
		}
		m := imfHeaderLine.FindStringSubmatch(l.text)
		if m == nil {
			add(n, "malformed block header")
			continue
		}
		if station == "" {
			station, date = m[1], m[2]
		} else if m[1] != station || m[2] != date {
			add(n, "block header %s %s differs from %s %s", m[1], m[2], station, date)
		}
		if hour, _ := strconv.Atoi(m[4]); hour != i/(imfBlockRecords+1) {
			add(n, "block hour %s, want %02d", m[4], i/(imfBlockRecords+1))
		}
	}
	return issues
}

func checkInternet(lines []rawLine) []LayoutIssue {
	var issues []LayoutIssue
	for i, l := range lines {
		fields := strings.Fields(l.text)
		if len(fields) != internetFieldCnt {
			issues = append(issues, LayoutIssue{Line: i + 1, Message: fmt.Sprintf("record has %d fields, want %d", len(fields), internetFieldCnt)})
			continue
		}
		for _, v := range fields[3:] {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				issues = append(issues, LayoutIssue{Line: i + 1, Message: fmt.Sprintf("bad value %q", v)})
			}
		}
	}
	return issues
}
