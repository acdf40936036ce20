package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
)

const maxUploadSize = 20 << 20

var (
	errNoUpload          = errors.New("no upload")
	errUnsupportedUpload = errors.New("unsupported image format")
)

// allowedImageTypes is the set of MIME types accepted for uploaded images.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

type upload struct {
	filename string
	mimeType string
	data     []byte
}

// readImageUpload reads an image from a parsed multipart form. A missing
// field, an empty filename or an empty body yield errNoUpload.
func readImageUpload(r *http.Request, field string, logger *slog.Logger) (*upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, errNoUpload
	}
	if err != nil {
		return nil, err
	}
	defer closeWithLog(file, "upload file", logger)

	if header.Filename == "" {
		return nil, errNoUpload
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errNoUpload
	}

	mimeType, ok := allowedImageMIME(data)
	if !ok {
		return nil, errUnsupportedUpload
	}
	return &upload{filename: header.Filename, mimeType: mimeType, data: data}, nil
}
