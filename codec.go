package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wippyai/function-harness/errors"
)

// Codec selects the payload encoding carried over the guest's input and
// result channels. Input is always authored as JSON; the msgpack codec
// transcodes it before the guest sees it.
type Codec string

const (
	// CodecJSON passes JSON both ways.
	CodecJSON Codec = "json"
	// CodecMessagepack transcodes JSON input to MessagePack and decodes
	// MessagePack output.
	CodecMessagepack Codec = "messagepack"
	// CodecRaw passes bytes through unvalidated.
	CodecRaw Codec = "raw"
)

// ParseCodec maps a CLI flag value to a Codec.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return CodecJSON, nil
	case "messagepack", "msgpack":
		return CodecMessagepack, nil
	case "raw":
		return CodecRaw, nil
	default:
		return "", errors.InvalidConfig(fmt.Sprintf("unknown codec %q", s))
	}
}

// DecodeInput validates and transcodes the caller-supplied input bytes
// into the form the guest reads. The returned value is the decoded JSON
// value, nil for the raw codec. Failure here means the run is rejected
// as invalid input before anything is instantiated.
func (c Codec) DecodeInput(raw []byte) (guest []byte, value any, err error) {
	switch c {
	case CodecRaw:
		return raw, nil, nil
	case CodecJSON:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, nil, errors.InvalidInput(fmt.Sprintf("invalid input JSON: %v", err))
		}
		minified, err := json.Marshal(v)
		if err != nil {
			return nil, nil, errors.Internal("encode input JSON", err)
		}
		return minified, v, nil
	case CodecMessagepack:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, nil, errors.InvalidInput(fmt.Sprintf("invalid input JSON: %v", err))
		}
		packed, err := msgpack.Marshal(v)
		if err != nil {
			return nil, nil, errors.InvalidInput(fmt.Sprintf("couldn't convert JSON to MessagePack: %v", err))
		}
		return packed, v, nil
	default:
		return nil, nil, errors.InvalidConfig(fmt.Sprintf("unknown codec %q", string(c)))
	}
}

// DecodeOutput decodes the guest's result-channel bytes. A nil error
// with a nil value means the codec carries no structured form (raw).
// A non-nil error marks the run's output as invalid; the caller retains
// the raw bytes for diagnostics.
func (c Codec) DecodeOutput(raw []byte) (any, error) {
	switch c {
	case CodecRaw:
		return nil, nil
	case CodecJSON:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case CodecMessagepack:
		var v any
		if err := msgpack.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("invalid MessagePack output: %w", err)
		}
		return v, nil
	default:
		return nil, errors.InvalidConfig(fmt.Sprintf("unknown codec %q", string(c)))
	}
}

// Humanize renders payload bytes for the human-readable report: pretty
// JSON when the value decodes, space-separated hex for the raw codec,
// and lossy text otherwise.
func (c Codec) Humanize(raw []byte) string {
	if c == CodecRaw {
		parts := make([]string, len(raw))
		for i, b := range raw {
			parts[i] = fmt.Sprintf("%02x", b)
		}
		return strings.Join(parts, " ")
	}
	if v, err := c.DecodeOutput(raw); err == nil && v != nil {
		pretty, err := json.MarshalIndent(v, "", "  ")
		if err == nil {
			return string(pretty)
		}
	}
	return strings.ToValidUTF8(string(raw), "�")
}
