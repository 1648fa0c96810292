// Package kevlar wraps the remote-control session with the host
// application's high-level command vocabulary: opening documents,
// requesting thumbnails, document info, and file streams. Every operation
// is a script rendered to text and submitted through Session.Execute; none
// touch the wire codec directly.
package kevlar

import (
	"encoding/json"
	"fmt"

	"github.com/psconn-dev/psconn/protocol"
	"github.com/psconn-dev/psconn/session"
)

// Client layers document commands over a session.
type Client struct {
	*session.Session
}

// NewClient wraps an established session.
func NewClient(s *session.Session) *Client {
	return &Client{Session: s}
}

// OpenDocument opens the document at the given server-side path.
func (c *Client) OpenDocument(path string) error {
	_, err := c.Execute(OpenDocumentScript(path, "", false))
	return err
}

// GetDocumentThumbnail returns a thumbnail of the active document scaled to
// fit maxWidth x maxHeight. format FormatJPEG yields compressed bytes in
// ImageData.Data; FormatPixmap yields ImageData.Pixmap.
func (c *Client) GetDocumentThumbnail(maxWidth, maxHeight, format int) (*protocol.ImageData, error) {
	resp, err := c.Execute(DocumentThumbnailScript(maxWidth, maxHeight, format), session.WithSecondary())
	if err != nil {
		return nil, err
	}
	if resp.ContentType != protocol.ContentImage || resp.Image == nil {
		return nil, fmt.Errorf("kevlar: expected image response, got %s", resp.ContentType)
	}
	return resp.Image, nil
}

// GetLayerThumbnail returns a pixmap thumbnail of a single layer.
// A negative layerID targets the currently selected layers.
func (c *Client) GetLayerThumbnail(layerID, maxWidth, maxHeight int) (*protocol.Pixmap, error) {
	resp, err := c.Execute(LayerThumbnailScript(layerID, maxWidth, maxHeight), session.WithSecondary())
	if err != nil {
		return nil, err
	}
	if resp.ContentType != protocol.ContentImage || resp.Image == nil || resp.Image.Pixmap == nil {
		return nil, fmt.Errorf("kevlar: expected pixmap response, got %s", resp.ContentType)
	}
	return resp.Image.Pixmap, nil
}

// GetLayerShape returns the path, fill, and stroke style of shape layers
// as raw JSON.
func (c *Client) GetLayerShape(o LayerShapeOptions) (json.RawMessage, error) {
	resp, err := c.Execute(LayerShapeScript(o), session.WithSecondary())
	if err != nil {
		return nil, err
	}
	if resp.ContentType != protocol.ContentScript {
		return nil, fmt.Errorf("kevlar: expected script response, got %s", resp.ContentType)
	}
	if !json.Valid(resp.Body) {
		return nil, fmt.Errorf("kevlar: layer shape is not valid JSON")
	}
	return json.RawMessage(resp.Body), nil
}

// GetDocumentInfo returns the document description as raw JSON.
func (c *Client) GetDocumentInfo(o DocumentInfoOptions) (json.RawMessage, error) {
	resp, err := c.Execute(DocumentInfoScript(o), session.WithSecondary())
	if err != nil {
		return nil, err
	}
	if resp.ContentType != protocol.ContentScript {
		return nil, fmt.Errorf("kevlar: expected script response, got %s", resp.ContentType)
	}
	if !json.Valid(resp.Body) {
		return nil, fmt.Errorf("kevlar: document info is not valid JSON")
	}
	return json.RawMessage(resp.Body), nil
}

// GetDocumentStream returns the active document's file metadata and bytes.
func (c *Client) GetDocumentStream(position, size int64) (*protocol.FileStreamData, error) {
	resp, err := c.Execute(DocumentStreamScript(position, size), session.WithSecondary())
	if err != nil {
		return nil, err
	}
	if resp.ContentType != protocol.ContentFileStream || resp.File == nil {
		return nil, fmt.Errorf("kevlar: expected file stream response, got %s", resp.ContentType)
	}
	return resp.File, nil
}

// Download opens the document at path as a smart object, pulls its file
// stream, and closes it again without saving.
func (c *Client) Download(path string) (*protocol.FileStreamData, error) {
	script := OpenDocumentScript(path, "", true) + DocumentStreamScript(0, 0)
	resp, err := c.Execute(script, session.WithSecondary())
	if err != nil {
		return nil, err
	}
	if _, cerr := c.Execute(CloseDocumentScript(false)); cerr != nil {
		return nil, cerr
	}
	if resp.ContentType != protocol.ContentFileStream || resp.File == nil {
		return nil, fmt.Errorf("kevlar: expected file stream response, got %s", resp.ContentType)
	}
	return resp.File, nil
}

// CloseDocument closes the active document.
func (c *Client) CloseDocument(save bool) error {
	_, err := c.Execute(CloseDocumentScript(save))
	return err
}
