package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/jklein/kleinchat/pkg/logs"
)

// dataPrefix marks a meaningful record. Anything else on the wire
// (keep-alives, blank separators, garbage) is tolerated and dropped.
const dataPrefix = "data: "

// Event is one parsed occurrence on a message stream: either a Delta or a
// Done.
type Event interface {
	streamEvent()
}

// Delta is an incremental fragment of assistant output. Fragments are
// delivered in wire order and are never merged or reordered.
type Delta struct {
	Content string
}

// Done terminates a stream. SessionID is set only when the exchange created
// the session it answered into; otherwise it is empty.
type Done struct {
	SessionID string
}

func (Delta) streamEvent() {}
func (Done) streamEvent()  {}

// record is the wire shape of one "data: " line. Error is emitted by the
// server on upstream failure; it is not part of the event union and is only
// logged.
type record struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
	ChatID  string `json:"chat_id"`
	Error   string `json:"error"`
}

// Parser converts successive body chunks into Events. Records may be split
// across chunk boundaries; the trailing partial line is carried over to the
// next Feed. After a Done the parser is terminal and swallows any remainder.
type Parser struct {
	carry    []byte
	terminal bool
}

func NewParser() *Parser {
	return &Parser{}
}

// Feed consumes one chunk and returns the events it completes, in order.
func (p *Parser) Feed(chunk []byte) []Event {
	if p.terminal {
		return nil
	}
	p.carry = append(p.carry, chunk...)

	var events []Event
	for {
		i := bytes.IndexByte(p.carry, '\n')
		if i < 0 {
			break
		}
		line := string(p.carry[:i])
		p.carry = p.carry[i+1:]

		events = append(events, p.parseLine(line)...)
		if p.terminal {
			p.carry = nil
			break
		}
	}
	return events
}

func (p *Parser) parseLine(line string) []Event {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return nil
	}
	var rec record
	if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &rec); err != nil {
		// Malformed records must not abort consumption.
		return nil
	}
	if rec.Error != "" && rec.Content == "" && !rec.Done {
		logs.Warnf("[stream] server reported error record: %s", rec.Error)
		return nil
	}

	var events []Event
	if rec.Content != "" {
		events = append(events, Delta{Content: rec.Content})
	}
	if rec.Done {
		events = append(events, Done{SessionID: rec.ChatID})
		p.terminal = true
	}
	return events
}

// Close flushes the parser at end of stream. A stream that physically ends
// without a done record still completes: an implicit Done with no session id
// is synthesized rather than leaving the caller hanging.
func (p *Parser) Close() []Event {
	if p.terminal {
		return nil
	}
	p.terminal = true
	p.carry = nil
	return []Event{Done{}}
}

// Done reports whether a terminal event has been produced.
func (p *Parser) Done() bool {
	return p.terminal
}

const readBufferSize = 4096

// Consume drains body, invoking onDelta once per content fragment in order
// and onDone exactly once: with the terminal record's session id, or with an
// empty id when the stream ends without one. Reading stops at the done record
// even if the stream has more to say. A read failure aborts with that error
// and onDone is never called; the caller decides what to render instead.
func Consume(ctx context.Context, body io.Reader, onDelta func(content string), onDone func(sessionID string)) error {
	parser := NewParser()
	buf := make([]byte, readBufferSize)

	dispatch := func(events []Event) bool {
		for _, event := range events {
			switch e := event.(type) {
			case Delta:
				onDelta(e.Content)
			case Done:
				onDone(e.SessionID)
				return true
			}
		}
		return false
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := body.Read(buf)
		if n > 0 {
			if dispatch(parser.Feed(buf[:n])) {
				return nil
			}
		}
		if err == io.EOF {
			dispatch(parser.Close())
			return nil
		}
		if err != nil {
			return err
		}
	}
}
