package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/snapshot"
)

// JSONExporter exports audit events as a JSON array.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Format returns "json".
func (e *JSONExporter) Format() string { return FormatJSON }

// Export writes events to w as a JSON array. An empty set is written as [].
func (e *JSONExporter) Export(ctx context.Context, events []*audit.Event, w io.Writer) error {
	out := make([]*audit.Event, len(events))
	for i, event := range events {
		out[i] = encodable(event)
	}
	events = out

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(events, "", "  ")
	} else {
		data, err = json.Marshal(events)
	}
	if err != nil {
		return audit.NewExportError(FormatJSON, len(events), err)
	}

	if _, err := w.Write(data); err != nil {
		return audit.NewExportError(FormatJSON, len(events), err)
	}
	return nil
}

// ExportStream writes events from a channel as a JSON array without holding
// them all in memory. It returns when the channel is closed or ctx is done.
func (e *JSONExporter) ExportStream(ctx context.Context, eventsCh <-chan *audit.Event, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return audit.NewExportError(FormatJSON, 0, err)
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-eventsCh:
			if !ok {
				if _, err := w.Write([]byte("]")); err != nil {
					return audit.NewExportError(FormatJSON, count, err)
				}
				return nil
			}

			if count > 0 {
				sep := ","
				if e.Pretty {
					sep = ",\n"
				}
				if _, err := w.Write([]byte(sep)); err != nil {
					return audit.NewExportError(FormatJSON, count, err)
				}
			}

			data, err := e.serialize(event)
			if err != nil {
				return audit.NewExportError(FormatJSON, count, err)
			}
			if _, err := w.Write(data); err != nil {
				return audit.NewExportError(FormatJSON, count, err)
			}
			count++
		}
	}
}

func (e *JSONExporter) serialize(event *audit.Event) ([]byte, error) {
	event = encodable(event)
	if e.Pretty {
		return json.MarshalIndent(event, "  ", "  ")
	}
	return json.Marshal(event)
}

// encodable returns event with any snapshot that is not valid JSON replaced
// by a JSON string of its text. The event itself is never modified.
func encodable(event *audit.Event) *audit.Event {
	if event == nil || (validSnapshot(event.Before) && validSnapshot(event.After)) {
		return event
	}
	c := *event
	c.Before = textSnapshot(c.Before)
	c.After = textSnapshot(c.After)
	return &c
}

func validSnapshot(raw json.RawMessage) bool {
	return len(raw) == 0 || json.Valid(raw)
}

func textSnapshot(raw json.RawMessage) json.RawMessage {
	if validSnapshot(raw) {
		return raw
	}
	v := snapshot.Parse(raw)
	if v == nil {
		return nil
	}
	return json.RawMessage(v.Canonical())
}
