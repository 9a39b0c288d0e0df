package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Format selects an output encoding for a sequence of events.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// TextOptions controls WriteText.
type TextOptions struct {
	// Color enables ANSI coloring of event kinds.
	Color bool
	// IDs appends the instance id to every line.
	IDs bool
}

// Write encodes events in the given format.
func Write(w io.Writer, f Format, events []Event, opts TextOptions) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, events)
	case FormatYAML:
		return WriteYAML(w, events)
	case FormatText, "":
		return WriteText(w, events, opts)
	}
	return fmt.Errorf("unknown output format %q", f)
}

var kindColors = map[Kind][]color.Attribute{
	KindConstruct: {color.FgCyan},
	KindRender:    {color.FgBlue},
	KindMount:     {color.FgGreen, color.Bold},
	KindChange:    {color.FgYellow},
	KindUnmount:   {color.FgMagenta},
	KindDestroy:   {color.FgHiBlack},
	KindError:     {color.FgRed, color.Bold},
}

// WriteText writes one line per event: sequence number, padded kind and the
// rest of the signature.
func WriteText(w io.Writer, events []Event, opts TextOptions) error {
	for _, e := range events {
		tag := fmt.Sprintf("%-9s", e.Kind)
		if attrs, ok := kindColors[e.Kind]; ok {
			c := color.New(attrs...)
			if opts.Color {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
			tag = c.Sprint(tag)
		}
		rest := strings.TrimPrefix(e.Signature(), e.Kind.String()+" ")
		line := fmt.Sprintf("%4d  %s %s", e.Seq, tag, rest)
		if e.Kind == KindError && e.Err != "" {
			line += ": " + e.Err
		}
		if opts.IDs {
			line += "  [" + e.Instance + "]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes one JSON object per line.
func WriteJSON(w io.Writer, events []Event) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

// WriteYAML writes the events as a single YAML sequence.
func WriteYAML(w io.Writer, events []Event) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if events == nil {
		events = []Event{}
	}
	if err := enc.Encode(events); err != nil {
		return err
	}
	return enc.Close()
}
