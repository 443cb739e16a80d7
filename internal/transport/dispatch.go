package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// dispatch decodes m's arguments for its address and invokes the matching
// Dispatcher method. Commands whose reply is not a plain confirm string
// (stats, list_segments, get_segment_field) write directly to sender and
// return "" so handle does not also emit a confirm.
func dispatch(ctx context.Context, d Dispatcher, m message, sender *Server) (string, error) {
	switch m.Address {
	case "invoke":
		text, err := m.string(0)
		if err != nil {
			return "", err
		}
		return d.Invoke(ctx, text)

	case "add_recording":
		path, err := m.string(0)
		if err != nil {
			return "", err
		}
		desc, err := m.string(1)
		if err != nil {
			return "", err
		}
		return d.AddRecording(ctx, path, desc, nil)

	case "add_segment":
		return dispatchAddSegment(ctx, d, m)

	case "add_effect":
		path, err := m.string(0)
		if err != nil {
			return "", err
		}
		obj, err := m.object(1)
		if err != nil {
			return "", err
		}
		desc, _ := stringField(obj, "description")
		return d.AddEffect(path, desc)

	case "add_preset":
		return dispatchAddPreset(ctx, d, m)

	case "rebuild_index":
		return d.RebuildIndex(ctx)

	case "stats":
		sender.sendStatsResult(d.Stats())
		return "", nil

	case "list_segments":
		n := 10
		if f, err := m.float(0); err == nil {
			n = int(f)
		}
		segs := d.ListSegments(n)
		lines := make([]string, len(segs))
		for i, s := range segs {
			lines[i] = fmt.Sprintf("%d: %s", s.ID, s.Description)
		}
		sender.sendConfirm(strings.Join(lines, "\n"))
		return "", nil

	case "get_segment_field":
		idF, err := m.float(0)
		if err != nil {
			return "", err
		}
		field, err := m.string(1)
		if err != nil {
			return "", err
		}
		value, err := d.GetSegmentField(int(idF), field)
		if err != nil {
			return "", err
		}
		sender.sendSegmentField(int(idF), field, value)
		return "", nil

	case "generate_description":
		return dispatchGenerateDescription(ctx, d, m)

	case "stop":
		if err := d.Stop(); err != nil {
			return "", err
		}
		return "shutting down", nil

	default:
		return "", fmt.Errorf("invalid input: unknown command %q", m.Address)
	}
}

// dispatchAddSegment expects the literal keyword tokens of the wire
// shape add_segment(path, description, "start", float, "end", float).
func dispatchAddSegment(ctx context.Context, d Dispatcher, m message) (string, error) {
	path, err := m.string(0)
	if err != nil {
		return "", err
	}
	desc, err := m.string(1)
	if err != nil {
		return "", err
	}
	startTok, err := m.string(2)
	if err != nil || startTok != "start" {
		return "", fmt.Errorf("invalid input: expected literal \"start\" token")
	}
	start, err := m.float(3)
	if err != nil {
		return "", err
	}
	endTok, err := m.string(4)
	if err != nil || endTok != "end" {
		return "", fmt.Errorf("invalid input: expected literal \"end\" token")
	}
	end, err := m.float(5)
	if err != nil {
		return "", err
	}
	return d.AddSegment(ctx, path, desc, start, end, nil)
}

func dispatchAddPreset(ctx context.Context, d Dispatcher, m message) (string, error) {
	desc, err := m.string(0)
	if err != nil {
		return "", err
	}
	obj, err := m.object(1)
	if err != nil {
		return "", err
	}
	effectPath, _ := stringField(obj, "effect_path")
	if effectPath == "" {
		return "", fmt.Errorf("invalid input: missing effect_path")
	}
	var params []float64
	if raw, ok := obj["parameters"]; ok {
		if err := json.Unmarshal(raw, &params); err != nil {
			return "", fmt.Errorf("invalid input: malformed parameters: %w", err)
		}
	}
	return d.AddPreset(ctx, desc, effectPath, params)
}

func dispatchGenerateDescription(ctx context.Context, d Dispatcher, m message) (string, error) {
	collection, err := m.string(0)
	if err != nil {
		return "", err
	}
	idF, err := m.float(1)
	if err != nil {
		return "", err
	}
	force := false
	if tok, err := m.string(2); err == nil && tok == "force" {
		force = true
	}
	return d.GenerateDescription(ctx, collection, int(idF), force)
}

func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
