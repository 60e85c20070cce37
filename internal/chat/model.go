package chat

import "time"

// Kind discriminates the event variants.
type Kind int

const (
	KindText Kind = iota
	KindAudio
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// Dialect tells how an attachment was referenced in the transcript.
type Dialect int

const (
	DialectNone     Dialect = iota // text events
	DialectFilename                // "PTT-20250904-WA0008.opus (archivo adjunto)"
	DialectMarker                  // "<audio omitido>", no filename
)

func (d Dialect) String() string {
	switch d {
	case DialectFilename:
		return "filename"
	case DialectMarker:
		return "marker"
	default:
		return "none"
	}
}

// Event is one atomic transcript item. Text is set for text events,
// Attachment for filename-dialect media events.
type Event struct {
	Kind       Kind
	Timestamp  time.Time
	Sender     string
	Text       string
	Attachment string
	Dialect    Dialect
	Line       int // 1-based line number in the transcript
}

// Date returns the calendar day of the event.
func (e Event) Date() time.Time {
	y, m, d := e.Timestamp.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.Timestamp.Location())
}
