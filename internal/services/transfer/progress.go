package transfer

import (
	"bytes"
	"regexp"
	"strconv"
)

// Progress is one parsed progress line of the transfer tool
type Progress struct {
	Percent float64 `json:"percent"`
	Speed   string  `json:"speed,omitempty"`
	ETA     string  `json:"eta,omitempty"`
}

var (
	percentRegex = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)%`)
	speedRegex   = regexp.MustCompile(`(\d+(?:\.\d+)?\s*[KMGT]?i?B(?:ps|/s))`)
	etaRegex     = regexp.MustCompile(`(\d{2}:\d{2}:\d{2})\s*$`)
)

// ParseProgress extracts percent, speed and eta from a tool output line.
// ok is false for lines carrying no percentage.
func ParseProgress(line string) (Progress, bool) {
	m := percentRegex.FindAllStringSubmatch(line, -1)
	if len(m) == 0 {
		return Progress{}, false
	}
	// the last percentage on the line is the overall one
	percent, err := strconv.ParseFloat(m[len(m)-1][1], 64)
	if err != nil || percent > 100 {
		return Progress{}, false
	}

	p := Progress{Percent: percent}
	if s := speedRegex.FindStringSubmatch(line); s != nil {
		p.Speed = s[1]
	}
	if e := etaRegex.FindStringSubmatch(line); e != nil {
		p.ETA = e[1]
	}
	return p, true
}

// scanLines splits on \n or \r, since progress bars redraw with carriage returns
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
