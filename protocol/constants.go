package protocol

// Wire format version. The peer speaks exactly one.
const Version = 1

// DefaultPort is the TCP port the host application listens on when remote
// connections are enabled.
const DefaultPort = 49494

// Outer frame: [4B total_length big-endian][4B status][ciphertext].
// total_length counts the status word plus the ciphertext.
const (
	lengthSize      = 4
	statusSize      = 4
	innerHeaderSize = 12 // version (4) + transaction (4) + content type (4)
)

// MaxFrameSize caps the declared frame length. Anything larger is treated
// as a malformed frame rather than an allocation request — a garbage length
// here usually means the stream is out of sync.
const MaxFrameSize = 1 << 28 // 256 MB

// ContentType identifies how a frame's body is interpreted.
type ContentType uint32

const (
	ContentIllegal       ContentType = 0
	ContentErrorString   ContentType = 1
	ContentScript        ContentType = 2
	ContentImage         ContentType = 3
	ContentProfile       ContentType = 4
	ContentData          ContentType = 5
	ContentKeepAlive     ContentType = 6
	ContentFileStream    ContentType = 7
	ContentCancelCommand ContentType = 8
	ContentEventStatus   ContentType = 9
	// ContentScriptShared requests non-exclusive script execution; replies
	// come back tagged ContentScript.
	ContentScriptShared ContentType = 10
)

func (c ContentType) String() string {
	switch c {
	case ContentIllegal:
		return "illegal"
	case ContentErrorString:
		return "errorString"
	case ContentScript:
		return "script"
	case ContentImage:
		return "image"
	case ContentProfile:
		return "profile"
	case ContentData:
		return "data"
	case ContentKeepAlive:
		return "keepAlive"
	case ContentFileStream:
		return "fileStream"
	case ContentCancelCommand:
		return "cancelCommand"
	case ContentEventStatus:
		return "eventStatus"
	case ContentScriptShared:
		return "scriptShared"
	default:
		return "unknown"
	}
}

// Image body kinds (first byte of a ContentImage body).
const (
	ImageKindJPEG   = 1 // compressed, opaque bytes
	ImageKindPixmap = 2 // uncompressed Pixmap struct
)
