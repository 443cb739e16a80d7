// Package transport is the datagram-style control protocol handler:
// independent of the orchestration core, it decodes inbound command
// datagrams, dispatches them to the Controller, and marshals outbound
// confirm/error/manifest/stats_result/segment_field messages back to the
// configured peer. A diagnostics WebSocket feed and an admin gRPC
// surface ride alongside it.
package transport

import "encoding/json"

// message is the wire envelope for both directions: an address path plus
// a tuple of typed arguments, JSON-encoded.
type message struct {
	Address string            `json:"address"`
	Args    []json.RawMessage `json:"args,omitempty"`
}

func encode(address string, args ...any) ([]byte, error) {
	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return json.Marshal(message{Address: address, Args: raw})
}

func decode(data []byte) (message, error) {
	var m message
	err := json.Unmarshal(data, &m)
	return m, err
}

func (m message) string(i int) (string, error) {
	if i >= len(m.Args) {
		return "", errArity
	}
	var s string
	if err := json.Unmarshal(m.Args[i], &s); err != nil {
		return "", err
	}
	return s, nil
}

func (m message) float(i int) (float64, error) {
	if i >= len(m.Args) {
		return 0, errArity
	}
	var f float64
	if err := json.Unmarshal(m.Args[i], &f); err != nil {
		return 0, err
	}
	return f, nil
}

func (m message) object(i int) (map[string]json.RawMessage, error) {
	if i >= len(m.Args) {
		return nil, errArity
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(m.Args[i], &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
