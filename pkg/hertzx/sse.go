package hertzx

import (
	"encoding/json"

	"github.com/hertz-contrib/sse"

	"github.com/jklein/kleinchat/pkg/logs"
)

type SseSender struct {
	ss *sse.Stream
}

func NewSseSender(ss *sse.Stream) *SseSender {
	return &SseSender{ss: ss}
}

// Send publishes one event on the stream.
func (s *SseSender) Send(data *sse.Event) error {
	return s.ss.Publish(data)
}

// SendData marshals data and publishes it as a bare data event.
func (s *SseSender) SendData(data any) error {
	return s.ss.Publish(BuildDataEvent(data))
}

// BuildDataEvent wraps data into a data-only event.
func BuildDataEvent(data any) *sse.Event {
	if data == nil {
		return nil
	}
	if ev, ok := data.(*sse.Event); ok {
		return ev
	}
	if str, ok := data.(string); ok {
		return &sse.Event{
			Data: []byte(str),
		}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		logs.Errorf("[sse] marshal event payload failed: %v", err)
		return &sse.Event{Data: []byte("{}")}
	}
	return &sse.Event{
		Data: raw,
	}
}
