package event

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// emptyDocument is the payload of events published without one.
var emptyDocument = []byte("{}")

// Payload is the JSON document carried by an event.
//
// Publish stores an immutable snapshot; subscribers receive either a mutable
// copy or a frozen view of it. Paths use gjson/sjson syntax ("data.x",
// "items.0.name").
type Payload struct {
	raw    []byte
	frozen bool
}

// NewPayload snapshots v as a JSON document. v may be any JSON encodable
// value, raw JSON bytes, a json.RawMessage or another *Payload. A nil v
// yields an empty object. The snapshot shares no memory with v.
func NewPayload(v any) (*Payload, error) {
	var raw []byte
	switch val := v.(type) {
	case nil:
		raw = emptyDocument
	case *Payload:
		if val == nil {
			raw = emptyDocument
		} else {
			raw = val.raw
		}
	case json.RawMessage:
		if !gjson.ValidBytes(val) {
			return nil, errors.Wrap(ErrInvalidPayload, "malformed JSON")
		}
		raw = val
	case []byte:
		if !gjson.ValidBytes(val) {
			return nil, errors.Wrap(ErrInvalidPayload, "malformed JSON")
		}
		raw = val
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidPayload, "encode %T: %v", v, err)
		}
		raw = encoded
	}
	return &Payload{raw: bytes.Clone(raw)}, nil
}

// MustPayload is like NewPayload but panics on error. It is meant for tests
// and literals.
func MustPayload(v any) *Payload {
	p, err := NewPayload(v)
	if err != nil {
		panic(err)
	}
	return p
}

// Get returns the value at path.
func (p *Payload) Get(path string) gjson.Result {
	return gjson.GetBytes(p.raw, path)
}

// Set replaces the value at path, creating intermediate objects as needed.
func (p *Payload) Set(path string, value any) error {
	if p.frozen {
		return errors.Wrapf(ErrFrozen, "set %q", path)
	}
	raw, err := sjson.SetBytes(p.raw, path, value)
	if err != nil {
		return errors.Wrapf(err, "set %q", path)
	}
	p.raw = raw
	return nil
}

// Delete removes the value at path.
func (p *Payload) Delete(path string) error {
	if p.frozen {
		return errors.Wrapf(ErrFrozen, "delete %q", path)
	}
	raw, err := sjson.DeleteBytes(p.raw, path)
	if err != nil {
		return errors.Wrapf(err, "delete %q", path)
	}
	p.raw = raw
	return nil
}

// Decode unmarshals the document into v.
func (p *Payload) Decode(v any) error {
	return json.Unmarshal(p.raw, v)
}

// Value returns the document as plain Go values (maps, slices, float64,
// string, bool, nil).
func (p *Payload) Value() any {
	return gjson.ParseBytes(p.raw).Value()
}

// Bytes returns a copy of the encoded document.
func (p *Payload) Bytes() []byte {
	return bytes.Clone(p.raw)
}

// String returns the encoded document.
func (p *Payload) String() string {
	return string(p.raw)
}

// Clone returns an independent, writable copy.
func (p *Payload) Clone() *Payload {
	return &Payload{raw: bytes.Clone(p.raw)}
}

// Frozen reports whether writes are rejected.
func (p *Payload) Frozen() bool {
	return p.frozen
}

// MarshalJSON implements json.Marshaler.
func (p *Payload) MarshalJSON() ([]byte, error) {
	return p.Bytes(), nil
}

// freeze marks the payload read-only. Frozen payloads never change, so their
// bytes may be shared without copying.
func (p *Payload) freeze() *Payload {
	p.frozen = true
	return p
}
