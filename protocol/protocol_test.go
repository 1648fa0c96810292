package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/psconn-dev/psconn/internal/crypt"
)

const testPassword = "secret"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec([]byte(testPassword))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// encryptFrame builds a raw wire frame with an arbitrary inner header,
// letting tests inject malformed versions and short headers.
func encryptFrame(t *testing.T, inner []byte, status uint32) []byte {
	t.Helper()
	ci, err := crypt.New([]byte(testPassword))
	if err != nil {
		t.Fatal(err)
	}
	encrypted := ci.Encrypt(inner)
	frame := make([]byte, 8+len(encrypted))
	binary.BigEndian.PutUint32(frame[0:4], uint32(4+len(encrypted)))
	binary.BigEndian.PutUint32(frame[4:8], status)
	copy(frame[8:], encrypted)
	return frame
}

func TestSendReceiveRoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	cases := []struct {
		ct   ContentType
		body []byte
		txn  uint32
	}{
		{ContentScript, []byte("{}"), 0},
		{ContentScriptShared, []byte(`alert("hi")`), 7},
		{ContentKeepAlive, nil, 1<<32 - 1},
		{ContentData, bytes.Repeat([]byte{0xA5}, 1000), 42},
		{ContentErrorString, []byte("ERROR"), 3},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		if err := codec.Send(&buf, tc.ct, tc.body, tc.txn); err != nil {
			t.Fatalf("send: %v", err)
		}
		resp, err := codec.Receive(&buf)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if resp.Status != 0 {
			t.Fatalf("status = %d, want 0", resp.Status)
		}
		if resp.Protocol != Version {
			t.Fatalf("protocol = %d, want %d", resp.Protocol, Version)
		}
		if resp.Transaction != tc.txn {
			t.Fatalf("transaction = %d, want %d", resp.Transaction, tc.txn)
		}
		if resp.ContentType != tc.ct {
			t.Fatalf("content type = %v, want %v", resp.ContentType, tc.ct)
		}
		if !bytes.Equal(resp.Body, tc.body) {
			t.Fatalf("body = %q, want %q", resp.Body, tc.body)
		}
	}
}

func TestSendFrameLayout(t *testing.T) {
	codec := newTestCodec(t)
	var buf bytes.Buffer
	if err := codec.Send(&buf, ContentScript, []byte("x"), 9); err != nil {
		t.Fatal(err)
	}
	frame := buf.Bytes()

	length := binary.BigEndian.Uint32(frame[0:4])
	if int(length) != len(frame)-4 {
		t.Fatalf("declared length %d, frame remainder %d", length, len(frame)-4)
	}
	if status := binary.BigEndian.Uint32(frame[4:8]); status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}

	// Decrypt the captured ciphertext independently and re-check the header.
	ci, err := crypt.New([]byte(testPassword))
	if err != nil {
		t.Fatal(err)
	}
	plain, err := ci.Decrypt(frame[8:])
	if err != nil {
		t.Fatal(err)
	}
	if v := binary.BigEndian.Uint32(plain[0:4]); v != Version {
		t.Fatalf("version = %d, want %d", v, Version)
	}
	if txn := binary.BigEndian.Uint32(plain[4:8]); txn != 9 {
		t.Fatalf("transaction = %d, want 9", txn)
	}
	if ct := binary.BigEndian.Uint32(plain[8:12]); ContentType(ct) != ContentScript {
		t.Fatalf("content type = %d, want %d", ct, ContentScript)
	}
	if !bytes.Equal(plain[12:], []byte("x")) {
		t.Fatalf("body = %q, want %q", plain[12:], "x")
	}
}

func TestReceiveNonZeroStatusSkipsDecryption(t *testing.T) {
	codec := newTestCodec(t)
	// Diagnostic frames are plaintext; the trailing bytes would not decrypt.
	diag := []byte("wrong password?")
	frame := make([]byte, 8+len(diag))
	binary.BigEndian.PutUint32(frame[0:4], uint32(4+len(diag)))
	binary.BigEndian.PutUint32(frame[4:8], 1)
	copy(frame[8:], diag)

	resp, err := codec.Receive(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if resp.Status != 1 {
		t.Fatalf("status = %d, want 1", resp.Status)
	}
	if !bytes.Equal(resp.Body, diag) {
		t.Fatalf("body = %q, want %q", resp.Body, diag)
	}
}

func TestReceiveConnectionClosed(t *testing.T) {
	codec := newTestCodec(t)

	// Empty stream: no length prefix at all.
	if _, err := codec.Receive(bytes.NewReader(nil)); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("empty stream: %v, want ErrConnectionClosed", err)
	}

	// Short length prefix.
	if _, err := codec.Receive(bytes.NewReader([]byte{0, 0})); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("short prefix: %v, want ErrConnectionClosed", err)
	}

	// Declared length longer than the stream.
	var buf bytes.Buffer
	if err := codec.Send(&buf, ContentScript, []byte("body"), 0); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()-3]
	if _, err := codec.Receive(bytes.NewReader(truncated)); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("truncated frame: %v, want ErrConnectionClosed", err)
	}
}

func TestReceiveFormatErrors(t *testing.T) {
	codec := newTestCodec(t)

	badVersion := make([]byte, 12)
	binary.BigEndian.PutUint32(badVersion[0:4], 2)

	cases := []struct {
		name  string
		frame []byte
	}{
		{"length below minimum", func() []byte {
			b := make([]byte, 4)
			binary.BigEndian.PutUint32(b, 3)
			return b
		}()},
		{"length above limit", func() []byte {
			b := make([]byte, 4)
			binary.BigEndian.PutUint32(b, MaxFrameSize+1)
			return b
		}()},
		{"undecryptable payload", func() []byte {
			b := make([]byte, 8+7)
			binary.BigEndian.PutUint32(b[0:4], 4+7)
			return b
		}()},
		{"short inner header", encryptFrame(t, []byte{0, 0, 0, 1}, 0)},
		{"version mismatch", encryptFrame(t, badVersion, 0)},
	}
	for _, tc := range cases {
		_, err := codec.Receive(bytes.NewReader(tc.frame))
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("%s: got %v, want *FormatError", tc.name, err)
		}
	}
}

func TestReceiveImageJPEG(t *testing.T) {
	codec := newTestCodec(t)
	var buf bytes.Buffer
	if err := codec.Send(&buf, ContentImage, []byte{ImageKindJPEG, 0x00}, 0); err != nil {
		t.Fatal(err)
	}
	resp, err := codec.Receive(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Image == nil || resp.Image.Kind != ImageKindJPEG {
		t.Fatalf("image = %+v, want JPEG kind", resp.Image)
	}
	if !bytes.Equal(resp.Image.Data, []byte{0x00}) {
		t.Fatalf("image data = %v, want [0]", resp.Image.Data)
	}
}

func TestReceiveImagePixmap(t *testing.T) {
	codec := newTestCodec(t)
	pm := &Pixmap{Width: 2, Height: 2, RowBytes: 8, ColorMode: 3, Channels: 3, Bits: 8, Data: make([]byte, 16)}
	body := append([]byte{ImageKindPixmap}, pm.Dump()...)

	var buf bytes.Buffer
	if err := codec.Send(&buf, ContentImage, body, 0); err != nil {
		t.Fatal(err)
	}
	resp, err := codec.Receive(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Image == nil || resp.Image.Kind != ImageKindPixmap || resp.Image.Pixmap == nil {
		t.Fatalf("image = %+v, want pixmap kind", resp.Image)
	}
	if resp.Image.Pixmap.Width != 2 || resp.Image.Pixmap.RowBytes != 8 {
		t.Fatalf("pixmap header mismatch: %+v", resp.Image.Pixmap)
	}
}

func TestReceiveImageUnknownKind(t *testing.T) {
	codec := newTestCodec(t)
	for _, body := range [][]byte{{}, {3}, {0xFF, 1, 2}} {
		var buf bytes.Buffer
		if err := codec.Send(&buf, ContentImage, body, 0); err != nil {
			t.Fatal(err)
		}
		_, err := codec.Receive(&buf)
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("image body %v: got %v, want *FormatError", body, err)
		}
	}
}

func TestReceiveFileStream(t *testing.T) {
	codec := newTestCodec(t)
	meta := []byte(`{"mimeFormat":"image/vnd.adobe.photoshop","position":0,"size":3,"fullSize":3}`)
	body := make([]byte, 4+len(meta)+3)
	binary.BigEndian.PutUint32(body[:4], uint32(len(meta)))
	copy(body[4:], meta)
	copy(body[4+len(meta):], []byte{1, 2, 3})

	var buf bytes.Buffer
	if err := codec.Send(&buf, ContentFileStream, body, 0); err != nil {
		t.Fatal(err)
	}
	resp, err := codec.Receive(&buf)
	if err != nil {
		t.Fatal(err)
	}
	fs := resp.File
	if fs == nil {
		t.Fatal("file stream not parsed")
	}
	if fs.MimeFormat != "image/vnd.adobe.photoshop" || fs.Size != 3 || fs.FullSize != 3 {
		t.Fatalf("metadata mismatch: %+v", fs)
	}
	if !bytes.Equal(fs.Data, []byte{1, 2, 3}) {
		t.Fatalf("data = %v, want [1 2 3]", fs.Data)
	}
}

func TestReceiveFileStreamTruncatedMetadata(t *testing.T) {
	codec := newTestCodec(t)
	// Declared JSON length runs past the end of the body.
	body := make([]byte, 6)
	binary.BigEndian.PutUint32(body[:4], 100)

	var buf bytes.Buffer
	if err := codec.Send(&buf, ContentFileStream, body, 0); err != nil {
		t.Fatal(err)
	}
	_, err := codec.Receive(&buf)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v, want *FormatError", err)
	}
}
