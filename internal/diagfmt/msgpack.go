package diagfmt

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"mod2fix/internal/report"
)

// MsgPack writes r in MessagePack, keyed by the same names as the JSON form.
func MsgPack(w io.Writer, r report.Report) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode msgpack report: %w", err)
	}
	return nil
}

// DecodeMsgPack reads a report written by MsgPack.
func DecodeMsgPack(rd io.Reader) (report.Report, error) {
	dec := msgpack.NewDecoder(rd)
	dec.SetCustomStructTag("json")
	var r report.Report
	if err := dec.Decode(&r); err != nil {
		return report.Report{}, fmt.Errorf("failed to decode msgpack report: %w", err)
	}
	return r, nil
}
