package live

import (
	"bufio"
	"encoding/json"
	"fmt"
)

// WriteEvent writes one server-sent event and flushes it. A flush error
// means the client has gone away.
func WriteEvent(w *bufio.Writer, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return w.Flush()
}

// WriteComment writes an SSE keep-alive comment.
func WriteComment(w *bufio.Writer, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	return w.Flush()
}
