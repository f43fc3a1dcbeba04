package filehandler

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrReadFile is wrapped by every error caused by failing to read an
// uploaded file's bytes.
var ErrReadFile = errors.New("failed to read file")

// ErrInvalidDataURL is returned when a string is not a base64 data URL.
var ErrInvalidDataURL = errors.New("invalid data URL")

const dataURLScheme = "data:"

// Preview is an accepted image ready for display and transport.
type Preview struct {
	// DataURL embeds the MIME type and payload; usable directly as an <img> src.
	DataURL string
	// Payload is the bare base64 text sent over the wire.
	Payload string
	// MIMEType is the declared content type of the file.
	MIMEType string
	// Size is the number of raw bytes read.
	Size int64
}

// EncodeBase64 reads r to the end and returns its standard base64 encoding.
func EncodeBase64(r io.Reader) (string, error) {
	var buf bytes.Buffer
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(enc, r); err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadFile, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadFile, err)
	}
	return buf.String(), nil
}

// DataURL builds "data:<mime>;base64,<payload>".
func DataURL(mimeType, payload string) string {
	return dataURLScheme + mimeType + ";base64," + payload
}

// SplitDataURL strips the descriptive prefix from a data URL, returning the
// MIME type and the bare base64 payload.
func SplitDataURL(s string) (mimeType, payload string, err error) {
	if !strings.HasPrefix(s, dataURLScheme) {
		return "", "", fmt.Errorf("%w: missing %q scheme", ErrInvalidDataURL, dataURLScheme)
	}
	header, payload, ok := strings.Cut(s[len(dataURLScheme):], ",")
	if !ok {
		return "", "", fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}
	mimeType, ok = strings.CutSuffix(header, ";base64")
	if !ok {
		return "", "", fmt.Errorf("%w: payload is not base64", ErrInvalidDataURL)
	}
	return mimeType, payload, nil
}

// DecodeDataURL decodes a data URL back into raw bytes and its MIME type.
func DecodeDataURL(s string) ([]byte, string, error) {
	mimeType, payload, err := SplitDataURL(s)
	if err != nil {
		return nil, "", err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return data, mimeType, nil
}

// ReadPreview encodes an accepted file for preview and transport.
func ReadPreview(r io.Reader, mimeType string) (*Preview, error) {
	counter := &countingReader{r: r}
	payload, err := EncodeBase64(counter)
	if err != nil {
		log.Warn().Err(err).Str("mime_type", mimeType).Msg("Failed to encode upload")
		return nil, err
	}

	log.Debug().
		Str("mime_type", mimeType).
		Int64("size_bytes", counter.n).
		Int("payload_length", len(payload)).
		Msg("Upload encoded for preview")

	return &Preview{
		DataURL:  DataURL(mimeType, payload),
		Payload:  payload,
		MIMEType: mimeType,
		Size:     counter.n,
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
