package msg

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/tinylib/msgp/msgp"
)

type Format uint8

// every message on the wire starts with one byte identifying its format:
// <FormatJSON><json document>
// <FormatSnappyJSON><snappy block of a json document>
// <FormatMsgp><msgp encoded message>
const (
	FormatJSON Format = iota + 1
	FormatSnappyJSON
	FormatMsgp
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatSnappyJSON:
		return "snappy-json"
	case FormatMsgp:
		return "msgp"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// FormatFromString parses the name of a format as used in config files.
func FormatFromString(s string) (Format, error) {
	for _, f := range []Format{FormatJSON, FormatSnappyJSON, FormatMsgp} {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown message format %q", s)
}

var (
	ErrEmpty         = errors.New("empty message")
	ErrNotMsgp       = errors.New("message type does not support msgp")
	errUnknownFormat = "unknown message format %d"
)

// Encode serializes v in the given format, prefixed with the format byte.
func Encode(format Format, v interface{}) ([]byte, error) {
	switch format {
	case FormatJSON, FormatSnappyJSON:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if format == FormatSnappyJSON {
			data = snappy.Encode(nil, data)
		}
		return append([]byte{byte(format)}, data...), nil
	case FormatMsgp:
		m, ok := v.(msgp.Marshaler)
		if !ok {
			return nil, ErrNotMsgp
		}
		return m.MarshalMsg([]byte{byte(format)})
	}
	return nil, fmt.Errorf(errUnknownFormat, format)
}

// Decode deserializes data produced by Encode into v.
func Decode(data []byte, v interface{}) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	format := Format(data[0])
	data = data[1:]
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatSnappyJSON:
		raw, err := snappy.Decode(nil, data)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, v)
	case FormatMsgp:
		u, ok := v.(msgp.Unmarshaler)
		if !ok {
			return ErrNotMsgp
		}
		_, err := u.UnmarshalMsg(data)
		return err
	}
	return fmt.Errorf(errUnknownFormat, format)
}
