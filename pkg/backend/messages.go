package backend

import "encoding/json"

// Chat WebSocket frames are tagged JSON objects discriminated by the "t"
// field. Only the tags below are meaningful; anything else is ignored so new
// backend frame types never break an in-flight turn.
const (
	tagQuery       = "cq" // client -> backend: start a turn
	tagContext     = "cx" // turn acknowledged, carries the message id
	tagPartial     = "cp" // incremental content fragment
	tagAccumulated = "cr" // full accumulated content so far
	tagFinal       = "ca" // final metadata, terminates the turn
	tagError       = "ce" // backend-side failure, terminates the turn
	tagDone        = "cd" // explicit end of stream
)

type frameKind int

const (
	frameIgnore frameKind = iota
	frameContext
	framePartial
	frameAccumulated
	frameFinal
	frameError
	frameDone
)

// frame is one decoded WebSocket message from the backend.
type frame struct {
	kind frameKind

	// body carries content for partial and accumulated frames, and the
	// failure text for error frames.
	body string
}

// decodeFrame classifies one raw WebSocket message. Malformed or unknown
// messages decode to frameIgnore; a stream must never die because the backend
// sent something we do not understand.
func decodeFrame(data []byte) frame {
	var msg struct {
		T     string `json:"t"`
		Body  string `json:"body"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		// Retry with just the tag: frames like ca carry non-string
		// bodies (metadata objects) that fail the strict decode above.
		var head struct {
			T string `json:"t"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return frame{kind: frameIgnore}
		}
		msg.T = head.T
	}

	switch msg.T {
	case tagContext:
		return frame{kind: frameContext}
	case tagPartial:
		return frame{kind: framePartial, body: msg.Body}
	case tagAccumulated:
		return frame{kind: frameAccumulated, body: msg.Body}
	case tagFinal:
		return frame{kind: frameFinal}
	case tagDone:
		return frame{kind: frameDone}
	case tagError:
		text := msg.Error
		if text == "" {
			text = msg.Body
		}
		if text == "" {
			text = "unknown error"
		}
		return frame{kind: frameError, body: text}
	default:
		return frame{kind: frameIgnore}
	}
}
