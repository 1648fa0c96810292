// Package protocol implements the wire codec for the remote-control
// connection: length-prefixed frames carrying an encrypted envelope of
// (version, transaction id, content type, body), plus secondary parsing of
// structured body kinds (images, file streams).
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/psconn-dev/psconn/internal/crypt"
)

// ErrConnectionClosed reports that the peer closed the connection before a
// complete frame was read.
var ErrConnectionClosed = errors.New("protocol: connection closed")

// FormatError reports a frame that violates the wire format: bad length,
// version mismatch, undersized header, or a truncated structured body.
// Always fatal — once framing is lost the stream cannot be resynchronized.
type FormatError struct {
	Reason string
	Size   int   // offending size, when relevant
	Err    error // underlying decode error, when any
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: %s: %v", e.Reason, e.Err)
	}
	if e.Size != 0 {
		return fmt.Sprintf("protocol: %s (%d bytes)", e.Reason, e.Size)
	}
	return "protocol: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// ImageData is the decoded body of a ContentImage frame.
type ImageData struct {
	Kind   byte    // ImageKindJPEG or ImageKindPixmap
	Data   []byte  // compressed bytes when Kind == ImageKindJPEG
	Pixmap *Pixmap // set when Kind == ImageKindPixmap
}

// FileStreamData is the decoded body of a ContentFileStream frame: a JSON
// metadata record followed by the raw stream bytes.
type FileStreamData struct {
	MimeFormat string `json:"mimeFormat"`
	Position   int64  `json:"position"`
	Size       int64  `json:"size"`
	FullSize   int64  `json:"fullSize"`
	Path       string `json:"path,omitempty"`

	Data []byte `json:"-"`
}

// Response is one parsed inbound frame.
//
// Status is the outer, unencrypted status word. When it is non-zero the peer
// sent a plaintext diagnostic: Body holds the raw bytes and every other
// field is zero. That usually means the shared password is wrong.
type Response struct {
	Status      uint32
	Protocol    uint32
	Transaction uint32
	ContentType ContentType
	Body        []byte

	// Set for ContentImage / ContentFileStream bodies respectively.
	Image *ImageData
	File  *FileStreamData
}

// Codec frames, encrypts, and parses messages for one connection.
// Safe for concurrent use, but callers must serialize writes to a shared
// socket themselves — the wire has no message boundary beyond the length
// prefix, so interleaved partial writes corrupt the stream.
type Codec struct {
	cipher *crypt.Cipher
}

// NewCodec derives the connection key from password and returns a Codec.
func NewCodec(password []byte) (*Codec, error) {
	c, err := crypt.New(password)
	if err != nil {
		return nil, err
	}
	return &Codec{cipher: c}, nil
}

// Send writes exactly one framed, encrypted message to w.
func (c *Codec) Send(w io.Writer, ct ContentType, body []byte, transaction uint32) error {
	inner := make([]byte, innerHeaderSize+len(body))
	binary.BigEndian.PutUint32(inner[0:4], Version)
	binary.BigEndian.PutUint32(inner[4:8], transaction)
	binary.BigEndian.PutUint32(inner[8:12], uint32(ct))
	copy(inner[innerHeaderSize:], body)

	encrypted := c.cipher.Encrypt(inner)

	// One buffer, one write: the frame must hit the socket atomically with
	// respect to other senders.
	frame := make([]byte, lengthSize+statusSize+len(encrypted))
	binary.BigEndian.PutUint32(frame[0:4], uint32(statusSize+len(encrypted)))
	binary.BigEndian.PutUint32(frame[4:8], 0) // status, always 0 on send
	copy(frame[8:], encrypted)

	_, err := w.Write(frame)
	return err
}

// Receive reads exactly one frame from r, blocking until it is complete.
// Each call is a full ReadLength -> ReadBody -> parse cycle; no partial
// frame state survives across calls.
func (c *Codec) Receive(r io.Reader) (*Response, error) {
	var lengthBuf [lengthSize]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, readErr(err)
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length < statusSize {
		return nil, &FormatError{Reason: "frame length too small", Size: int(length)}
	}
	if length > MaxFrameSize {
		return nil, &FormatError{Reason: "frame length exceeds limit", Size: int(length)}
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, readErr(err)
	}

	status := binary.BigEndian.Uint32(body[:statusSize])
	payload := body[statusSize:]

	if status != 0 {
		// Diagnostic frame, sent in the clear. Do not decrypt.
		return &Response{Status: status, Body: payload}, nil
	}

	plain, err := c.cipher.Decrypt(payload)
	if err != nil {
		return nil, &FormatError{Reason: "decrypt frame", Err: err}
	}
	if len(plain) < innerHeaderSize {
		return nil, &FormatError{Reason: "decrypted frame too short", Size: len(plain)}
	}
	version := binary.BigEndian.Uint32(plain[0:4])
	if version != Version {
		return nil, &FormatError{Reason: "unsupported protocol version", Size: int(version)}
	}

	resp := &Response{
		Protocol:    version,
		Transaction: binary.BigEndian.Uint32(plain[4:8]),
		ContentType: ContentType(binary.BigEndian.Uint32(plain[8:12])),
		Body:        plain[innerHeaderSize:],
	}

	switch resp.ContentType {
	case ContentImage:
		resp.Image, err = parseImage(resp.Body)
	case ContentFileStream:
		resp.File, err = parseFileStream(resp.Body)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// readErr maps EOF-family errors to ErrConnectionClosed; anything else is a
// transport error and passes through wrapped.
func readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrConnectionClosed
	}
	return fmt.Errorf("protocol: read frame: %w", err)
}

func parseImage(body []byte) (*ImageData, error) {
	if len(body) == 0 {
		return nil, &FormatError{Reason: "empty image body"}
	}
	switch body[0] {
	case ImageKindJPEG:
		return &ImageData{Kind: ImageKindJPEG, Data: body[1:]}, nil
	case ImageKindPixmap:
		p, err := ParsePixmap(body[1:])
		if err != nil {
			return nil, err
		}
		return &ImageData{Kind: ImageKindPixmap, Pixmap: p}, nil
	default:
		return nil, &FormatError{Reason: "unsupported image kind", Size: int(body[0])}
	}
}

func parseFileStream(body []byte) (*FileStreamData, error) {
	if len(body) < 4 {
		return nil, &FormatError{Reason: "file stream body truncated", Size: len(body)}
	}
	jsonLen := binary.BigEndian.Uint32(body[:4])
	if uint64(jsonLen) > uint64(len(body)-4) {
		return nil, &FormatError{Reason: "file stream metadata length exceeds body", Size: int(jsonLen)}
	}
	var fs FileStreamData
	if err := json.Unmarshal(body[4:4+jsonLen], &fs); err != nil {
		return nil, &FormatError{Reason: "file stream metadata", Err: err}
	}
	fs.Data = body[4+jsonLen:]
	return &fs, nil
}
