package utils

import (
	"path/filepath"
	"strings"
)

// DefaultContentType is served for extensions missing from the table.
const DefaultContentType = "application/octet-stream"

// contentTypes is the single extension -> MIME table shared by the
// download and preview handlers.
var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"txt":  "text/plain",
	"rtf":  "application/rtf",
	"msg":  "application/vnd.ms-outlook",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"zip":  "application/zip",
	"rar":  "application/x-rar-compressed",
}

// previewable lists the types browsers render inline in an iframe or img.
var previewable = map[string]bool{
	"pdf": true, "jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
}

// fileExt returns the lower-cased extension of name without the dot.
func fileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// ContentTypeFor resolves the MIME type of a file name by its extension,
// case-insensitively.
func ContentTypeFor(fileName string) string {
	if ct, ok := contentTypes[fileExt(fileName)]; ok {
		return ct
	}
	return DefaultContentType
}

// IsPreviewable reports whether the file can be shown inline.  Clients use
// it to fall back to a download link; the preview handler does not reject
// other types.
func IsPreviewable(fileName string) bool {
	return previewable[fileExt(fileName)]
}
