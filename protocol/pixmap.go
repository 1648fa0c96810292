package protocol

import "encoding/binary"

// PixmapHeaderSize is the fixed header: 3 x u32 followed by 3 x u8.
const PixmapHeaderSize = 15

// Pixmap is an uncompressed raster payload: ARGB, row-major order.
// Data holds RowBytes*Height raw bytes; the length is not validated against
// the header fields, matching the peer's behavior.
type Pixmap struct {
	Width     uint32
	Height    uint32
	RowBytes  uint32
	ColorMode uint8
	Channels  uint8
	Bits      uint8
	Data      []byte
}

// ParsePixmap decodes a Pixmap from a ContentImage body (after the kind byte).
func ParsePixmap(data []byte) (*Pixmap, error) {
	if len(data) < PixmapHeaderSize {
		return nil, &FormatError{Reason: "pixmap header truncated", Size: len(data)}
	}
	return &Pixmap{
		Width:     binary.BigEndian.Uint32(data[0:4]),
		Height:    binary.BigEndian.Uint32(data[4:8]),
		RowBytes:  binary.BigEndian.Uint32(data[8:12]),
		ColorMode: data[12],
		Channels:  data[13],
		Bits:      data[14],
		Data:      data[PixmapHeaderSize:],
	}, nil
}

// Dump encodes the Pixmap back to its wire form. ParsePixmap(p.Dump())
// reproduces p exactly, including byte-identical Data.
func (p *Pixmap) Dump() []byte {
	out := make([]byte, PixmapHeaderSize+len(p.Data))
	binary.BigEndian.PutUint32(out[0:4], p.Width)
	binary.BigEndian.PutUint32(out[4:8], p.Height)
	binary.BigEndian.PutUint32(out[8:12], p.RowBytes)
	out[12] = p.ColorMode
	out[13] = p.Channels
	out[14] = p.Bits
	copy(out[PixmapHeaderSize:], p.Data)
	return out
}
