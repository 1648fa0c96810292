package kevlar

import (
	"fmt"
	"strings"
)

// Thumbnail formats for DocumentThumbnailScript.
const (
	FormatJPEG   = 1
	FormatPixmap = 2 // uncompressed, with transparency
)

// OpenDocumentScript opens the document at the given server-side path.
// fileType optionally forces the format reader (e.g. "JPEG", "PHOTOSHOP");
// smartObject places the file as a smart object instead.
func OpenDocumentScript(path, fileType string, smartObject bool) string {
	var b strings.Builder
	b.WriteString("var desc = new ActionDescriptor();\n")
	fmt.Fprintf(&b, "desc.putPath( charIDToTypeID( \"null\" ), new File( \"%s\" ) );\n", escapeJS(path))
	if fileType != "" {
		fmt.Fprintf(&b, "desc.putClass( charIDToTypeID( \"As  \" ), stringIDToTypeID( \"%s\" ) );\n", escapeJS(fileType))
	}
	event := `charIDToTypeID( "Opn " )`
	if smartObject {
		event = `stringIDToTypeID( "placeEvent" )`
	}
	fmt.Fprintf(&b, "executeAction( %s, desc, DialogModes.NO );\n", event)
	return b.String()
}

// CloseDocumentScript closes the active document, optionally saving changes.
func CloseDocumentScript(save bool) string {
	if save {
		return "activeDocument.close(SaveOptions.SAVECHANGES);"
	}
	return "activeDocument.close(SaveOptions.DONOTSAVECHANGES);"
}

// DocumentThumbnailScript requests a thumbnail of the active document's
// composite, scaled to fit maxWidth x maxHeight. format is FormatJPEG or
// FormatPixmap.
func DocumentThumbnailScript(maxWidth, maxHeight, format int) string {
	return fmt.Sprintf(`var idNS = stringIDToTypeID( "sendDocumentThumbnailToNetworkClient" );
var desc = new ActionDescriptor();
desc.putInteger( stringIDToTypeID( "width" ), %d );
desc.putInteger( stringIDToTypeID( "height" ), %d );
desc.putInteger( stringIDToTypeID( "format" ), %d );
executeAction( idNS, desc, DialogModes.NO );
`, maxWidth, maxHeight, format)
}

// LayerThumbnailScript requests a pixmap thumbnail of a single layer.
// A negative layerID targets the currently selected layers.
func LayerThumbnailScript(layerID, maxWidth, maxHeight int) string {
	var b strings.Builder
	b.WriteString("var idNS = stringIDToTypeID( \"sendLayerThumbnailToNetworkClient\" );\n")
	b.WriteString("var desc = new ActionDescriptor();\n")
	fmt.Fprintf(&b, "desc.putInteger( stringIDToTypeID( \"width\" ), %d );\n", maxWidth)
	fmt.Fprintf(&b, "desc.putInteger( stringIDToTypeID( \"height\" ), %d );\n", maxHeight)
	b.WriteString("desc.putInteger( stringIDToTypeID( \"format\" ), 2 );\n")
	if layerID >= 0 {
		fmt.Fprintf(&b, "desc.putInteger( stringIDToTypeID( \"layerID\" ), %d );\n", layerID)
	}
	b.WriteString("executeAction( idNS, desc, DialogModes.NO );\n")
	return b.String()
}

// LayerShapeOptions selects which shape layers LayerShapeScript describes.
type LayerShapeOptions struct {
	Document  string   // document id, active document when empty
	Layer     int      // layer id; negative targets the currently selected layers
	Version   string   // shape schema version, e.g. "1.0.0"
	PlacedIDs []string // smart object references within the document
}

// LayerShapeScript requests the path, fill, and stroke style of shape
// layers as JSON.
func LayerShapeScript(o LayerShapeOptions) string {
	var b strings.Builder
	b.WriteString("var idNS = stringIDToTypeID( \"sendLayerShapeToNetworkClient\" );\n")
	b.WriteString("var desc = new ActionDescriptor();\n")
	if o.Document != "" {
		fmt.Fprintf(&b, "desc.putString( stringIDToTypeID( \"documentID\" ), \"%s\" );\n", escapeJS(o.Document))
	}
	if o.Version != "" {
		fmt.Fprintf(&b, "desc.putString( stringIDToTypeID( \"version\" ), \"%s\" );\n", escapeJS(o.Version))
	}
	if o.Layer >= 0 {
		fmt.Fprintf(&b, "desc.putInteger( stringIDToTypeID( \"layerID\" ), %d );\n", o.Layer)
	}
	if len(o.PlacedIDs) > 0 {
		b.WriteString("var ids = new ActionList();\n")
		for _, id := range o.PlacedIDs {
			fmt.Fprintf(&b, "ids.putString( \"%s\" );\n", escapeJS(id))
		}
		b.WriteString("desc.putList( stringIDToTypeID( \"placedIDs\" ), ids );\n")
	}
	b.WriteString("executeAction( idNS, desc, DialogModes.NO );\n")
	return b.String()
}

// DocumentInfoOptions narrows what DocumentInfoScript asks for. The zero
// value requests the default layer and image info of the active document.
type DocumentInfoOptions struct {
	Document           string // document id, active document when empty
	ExpandSmartObjects bool
	GetTextStyles      bool
	GetPathData        bool
	LayerInfo          bool
	ImageInfo          bool
}

// DocumentInfoScript requests the document description as JSON.
func DocumentInfoScript(o DocumentInfoOptions) string {
	var b strings.Builder
	b.WriteString("var idNS = stringIDToTypeID( \"sendDocumentInfoToNetworkClient\" );\n")
	b.WriteString("var desc = new ActionDescriptor();\n")
	if o.Document != "" {
		fmt.Fprintf(&b, "desc.putString( stringIDToTypeID( \"documentID\" ), \"%s\" );\n", escapeJS(o.Document))
	}
	putBool := func(key string, v bool) {
		fmt.Fprintf(&b, "desc.putBoolean( stringIDToTypeID( \"%s\" ), %t );\n", key, v)
	}
	putBool("expandSmartObjects", o.ExpandSmartObjects)
	putBool("getTextStyles", o.GetTextStyles)
	putBool("getPathData", o.GetPathData)
	putBool("layerInfo", o.LayerInfo)
	putBool("imageInfo", o.ImageInfo)
	b.WriteString("executeAction( idNS, desc, DialogModes.NO );\n")
	return b.String()
}

// DocumentStreamScript requests the active document's file stream.
// position/size select a byte range; size 0 requests all bytes.
func DocumentStreamScript(position, size int64) string {
	var b strings.Builder
	b.WriteString("var idNS = stringIDToTypeID( \"sendDocumentStreamToNetworkClient\" );\n")
	b.WriteString("var desc = new ActionDescriptor();\n")
	if position > 0 {
		fmt.Fprintf(&b, "desc.putInteger( stringIDToTypeID( \"position\" ), %d );\n", position)
	}
	if size > 0 {
		fmt.Fprintf(&b, "desc.putInteger( stringIDToTypeID( \"size\" ), %d );\n", size)
	}
	b.WriteString("executeAction( idNS, desc, DialogModes.NO );\n")
	return b.String()
}

// escapeJS escapes a value for embedding in a double-quoted script literal.
func escapeJS(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
	return r.Replace(s)
}
