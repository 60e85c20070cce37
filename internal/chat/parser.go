// Package chat parses exported chat transcripts into ordered events.
package chat

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

// Line header: "04/09/2025, 10:15 - " with optional seconds, 2-digit year,
// "a. m."/"p. m." suffix and "[...]" brackets. WhatsApp separates the time
// and the suffix with no-break spaces, hence the extra space classes.
var headerRegex = regexp.MustCompile(
	`^\[?(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})` +
		`(?:,?[\s\x{00A0}\x{202F}]+(\d{1,2}):(\d{2})(?::(\d{2}))?` +
		`(?:[\s\x{00A0}\x{202F}]*([aApP])\.?[\s\x{00A0}\x{202F}]*[mM]\.?)?)?` +
		`\]?[\s\x{00A0}\x{202F}]*(?:-[\s\x{00A0}\x{202F}]*)?(.*)$`)

var (
	audioFilenameRegex = regexp.MustCompile(`(?i)\b(?:PTT|AUD)-\d{8}-WA\d+\.(?:opus|ogg|mp3|m4a|wav)\b`)
	imageFilenameRegex = regexp.MustCompile(`(?i)\bIMG-\d{8}-WA\d+\.(?:jpe?g|png)\b`)
	audioMarkerRegex   = regexp.MustCompile(`(?i)\baudio\s+(?:omitido|omitted)\b`)
	imageMarkerRegex   = regexp.MustCompile(`(?i)\b(?:imagen\s+omitida|image\s+omitted)\b`)
)

// attachmentStrategy recognises one way of referencing an attachment.
type attachmentStrategy struct {
	name    string
	kind    Kind
	dialect Dialect
	re      *regexp.Regexp
}

// Filename strategies come first: a line naming the file is never treated as
// a bare marker.
var attachmentStrategies = []attachmentStrategy{
	{name: "audio-filename", kind: KindAudio, dialect: DialectFilename, re: audioFilenameRegex},
	{name: "image-filename", kind: KindImage, dialect: DialectFilename, re: imageFilenameRegex},
	{name: "audio-marker", kind: KindAudio, dialect: DialectMarker, re: audioMarkerRegex},
	{name: "image-marker", kind: KindImage, dialect: DialectMarker, re: imageMarkerRegex},
}

// Options control which lines become events.
type Options struct {
	// MinYear drops lines dated before this year (0 keeps everything).
	MinYear int

	// AgentSenders are case-insensitive sender substrings whose text
	// messages are not customer requests and are dropped.
	AgentSenders []string

	// Location for parsed timestamps (defaults to time.Local).
	Location *time.Location
}

// Parser yields events lazily in transcript line order. It is forward-only:
// restarting requires a new reader.
type Parser struct {
	sc     *bufio.Scanner
	opts   Options
	agents []string
	line   int
	ev     Event
	err    error
}

// NewParser returns a parser reading from r.
func NewParser(r io.Reader, opts Options) *Parser {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	if opts.Location == nil {
		opts.Location = time.Local
	}

	var agents []string
	for _, a := range opts.AgentSenders {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			agents = append(agents, a)
		}
	}

	return &Parser{sc: sc, opts: opts, agents: agents}
}

// Next advances to the next event, returning false at end of input or on a
// read error.
func (p *Parser) Next() bool {
	for p.sc.Scan() {
		p.line++
		if ev, ok := p.parseLine(p.sc.Text()); ok {
			p.ev = ev
			return true
		}
	}
	p.err = p.sc.Err()
	return false
}

// Event returns the event produced by the last call to Next.
func (p *Parser) Event() Event {
	return p.ev
}

// Err returns the first read error, if any.
func (p *Parser) Err() error {
	return p.err
}

// ParseAll drains r into a slice.
func ParseAll(r io.Reader, opts Options) ([]Event, error) {
	p := NewParser(r, opts)
	var events []Event
	for p.Next() {
		events = append(events, p.Event())
	}
	return events, p.Err()
}

func (p *Parser) parseLine(raw string) (Event, bool) {
	line := strings.TrimSpace(strings.TrimLeft(raw, "\ufeff\u200e\u200f"))
	if line == "" {
		return Event{}, false
	}

	m := headerRegex.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}

	ts, ok := parseTimestamp(m[1:8], p.opts.Location)
	if !ok {
		return Event{}, false
	}
	if ts.Year() < p.opts.MinYear {
		return Event{}, false
	}

	sender, message := splitSender(m[8])

	ev := Event{
		Timestamp: ts,
		Sender:    sender,
		Line:      p.line,
	}

	for _, s := range attachmentStrategies {
		match := s.re.FindString(message)
		if match == "" {
			continue
		}
		ev.Kind = s.kind
		ev.Dialect = s.dialect
		if s.dialect == DialectFilename {
			ev.Attachment = match
		}
		return ev, true
	}

	if p.isAgent(sender) {
		return Event{}, false
	}

	ev.Kind = KindText
	ev.Text = message
	return ev, true
}

func (p *Parser) isAgent(sender string) bool {
	if sender == "" {
		return false
	}
	s := strings.ToLower(sender)
	for _, a := range p.agents {
		if strings.Contains(s, a) {
			return true
		}
	}
	return false
}

// splitSender separates "Sender: message". System lines without a sender
// return the whole body as the message.
func splitSender(body string) (string, string) {
	idx := strings.Index(body, ": ")
	if idx <= 0 {
		if strings.HasSuffix(body, ":") {
			return strings.TrimSpace(strings.TrimSuffix(body, ":")), ""
		}
		return "", strings.TrimSpace(body)
	}
	return strings.TrimSpace(body[:idx]), strings.TrimSpace(body[idx+2:])
}

// parseTimestamp builds a time from the header groups
// day, month, year, hour, minute, second, meridiem.
func parseTimestamp(g []string, loc *time.Location) (time.Time, bool) {
	day, _ := strconv.Atoi(g[0])
	month, _ := strconv.Atoi(g[1])
	year, _ := strconv.Atoi(g[2])
	if len(g[2]) == 2 {
		year += 2000
	}

	var hour, minute, second int
	if g[3] != "" {
		hour, _ = strconv.Atoi(g[3])
		minute, _ = strconv.Atoi(g[4])
		if g[5] != "" {
			second, _ = strconv.Atoi(g[5])
		}
		switch strings.ToLower(g[6]) {
		case "p":
			if hour < 12 {
				hour += 12
			}
		case "a":
			if hour == 12 {
				hour = 0
			}
		}
	}
	if month < 1 || month > 12 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}

	ts := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	// reject normalised dates such as 31/02
	if ts.Day() != day || int(ts.Month()) != month {
		return time.Time{}, false
	}
	return ts, true
}
