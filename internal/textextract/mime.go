package textextract

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	MimePDF   = "application/pdf"
	MimeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDOC   = "application/msword"
	MimeText  = "text/plain"
	MimeOctet = "application/octet-stream"
)

// extensionTypes covers the formats timetables arrive in. The system MIME
// table is consulted only for anything else, since minimal containers often
// ship without one.
var extensionTypes = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDOCX,
	".doc":  MimeDOC,
	".rtf":  "application/rtf",
	".odt":  "application/vnd.oasis.opendocument.text",
	".txt":  MimeText,
	".text": MimeText,
	".md":   "text/markdown",
	".csv":  "text/csv",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// DetectMIME returns the MIME type of a document, by extension first and by
// content sniffing otherwise. Parameters are stripped.
func DetectMIME(path string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := extensionTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return BaseMIME(ct)
	}
	if len(data) == 0 {
		return MimeOctet
	}
	return BaseMIME(http.DetectContentType(data))
}

// BaseMIME lower-cases a MIME type and drops its parameters.
func BaseMIME(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// IsPlainText reports whether the type can be read directly as text.
func IsPlainText(contentType string) bool {
	ct := BaseMIME(contentType)
	return ct == MimeText || ct == "text/markdown" || ct == "text/csv"
}

// IsImage reports whether the type is an image.
func IsImage(contentType string) bool {
	return strings.HasPrefix(BaseMIME(contentType), "image/")
}
