package jsontime

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMsgpack implements msgpack.CustomEncoder, encoding the value
// as Unix milliseconds to match the JSON representation. The zero time
// is encoded as 0 so it survives a roundtrip as the zero time.
func (ep Milli) EncodeMsgpack(enc *msgpack.Encoder) error {
	if time.Time(ep).IsZero() {
		return enc.EncodeInt64(0)
	}
	return enc.EncodeInt64(time.Time(ep).UnixMilli())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (ep *Milli) DecodeMsgpack(dec *msgpack.Decoder) error {
	t, err := dec.DecodeInt64()
	if err != nil {
		return err
	}
	if t == 0 {
		*ep = Milli{}
		return nil
	}
	*ep = Milli(time.UnixMilli(t))
	return nil
}

var (
	_ msgpack.CustomEncoder = Milli{}
	_ msgpack.CustomDecoder = (*Milli)(nil)
)
