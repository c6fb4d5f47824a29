package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnrecognizedPath is returned when a stored file_path is neither a
// bare key nor a URL pointing into the expected bucket.
var ErrUnrecognizedPath = errors.New("unrecognized file path")

// NormalizeFilePath turns a documents.file_path value into a key relative
// to bucket.  Two shapes are accepted:
//
//	blog-images/doc-123.pdf
//	https://x.supabase.co/storage/v1/object/public/customer_docs/blog-images/doc-123.pdf?token=...
//
// For the URL form everything after the first "/<bucket>/" segment is the
// key; the query string is dropped and percent-escapes are decoded.  Keys
// with a ".." segment are rejected in either form.
func NormalizeFilePath(raw, bucket string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrUnrecognizedPath)
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(raw, "://") {
			return "", fmt.Errorf("%w: unsupported scheme", ErrUnrecognizedPath)
		}
		return checkKey(strings.TrimLeft(raw, "/"))
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnrecognizedPath, err)
	}
	marker := "/" + bucket + "/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return "", fmt.Errorf("%w: no /%s/ segment", ErrUnrecognizedPath, bucket)
	}
	return checkKey(u.Path[idx+len(marker):])
}

func checkKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrUnrecognizedPath)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: parent segment", ErrUnrecognizedPath)
		}
	}
	return key, nil
}
