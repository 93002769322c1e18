// Package tcp implements a gossip transport over TCP.
package tcp

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ugorji/go/codec"
)

// Each connection carries a single request and response.
//
// A request begins with a fixed header containing the message type and
// protocol version, followed by the msgpack encoded request header and
// body. For a SYN the body is the version summary and the response is the
// diff. For an ACK the body is the updates and the response is the peers
// request header.

type messageType uint8

const (
	messageTypeSyn messageType = iota + 1
	messageTypeAck
)

func (t messageType) String() string {
	switch t {
	case messageTypeSyn:
		return "syn"
	case messageTypeAck:
		return "ack"
	default:
		return "unknown"
	}
}

const (
	supportedVersion uint8 = 0
)

type requestHeader struct {
	NodeID string `codec:"node_id"`
}

// trackedWriter is a wrapper for the underlying writer that counts the number
// of bytes written.
type trackedWriter struct {
	w io.Writer
	n int
}

func newTrackedWriter(w io.Writer) *trackedWriter {
	return &trackedWriter{
		w: w,
	}
}

func (w *trackedWriter) Write(b []byte) (int, error) {
	n, err := w.w.Write(b)
	w.n += n
	return n, err
}

func (w *trackedWriter) NumBytesWritten() int {
	return w.n
}

var _ io.Writer = &trackedWriter{}

// trackedReader is a wrapper for the underlying reader that counts the number
// of bytes read.
type trackedReader struct {
	r io.Reader
	n int
}

func newTrackedReader(r io.Reader) *trackedReader {
	return &trackedReader{
		r: r,
	}
}

func (r *trackedReader) Read(b []byte) (int, error) {
	n, err := r.r.Read(b)
	r.n += n
	return n, err
}

func (r *trackedReader) NumBytesRead() int {
	return r.n
}

var _ io.Reader = &trackedReader{}

type encoder struct {
	encoder *codec.Encoder
}

func newEncoder(w io.Writer) *encoder {
	var handle codec.MsgpackHandle
	return &encoder{
		encoder: codec.NewEncoder(w, &handle),
	}
}

func (e *encoder) Encode(v interface{}) error {
	return e.encoder.Encode(v)
}

type decoder struct {
	decoder *codec.Decoder
}

func newDecoder(r io.Reader) *decoder {
	var handle codec.MsgpackHandle
	return &decoder{
		decoder: codec.NewDecoder(r, &handle),
	}
}

func (d *decoder) Decode(v interface{}) error {
	return d.decoder.Decode(v)
}

// writeRequest writes the fixed header followed by the encoded request
// header and body.
func writeRequest(
	w *bufio.Writer,
	messageType messageType,
	header requestHeader,
	body interface{},
) error {
	_ = w.WriteByte(uint8(messageType))
	_ = w.WriteByte(supportedVersion)

	encoder := newEncoder(w)
	if err := encoder.Encode(&header); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := encoder.Encode(body); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// readFixedHeader reads the message type and checks the protocol version is
// supported.
func readFixedHeader(r *bufio.Reader) (messageType, error) {
	firstByte, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	messageType := messageType(firstByte)

	version, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	if version != supportedVersion {
		return 0, fmt.Errorf("unsupported version: %d", version)
	}
	return messageType, nil
}
