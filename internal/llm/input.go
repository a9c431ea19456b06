package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const MimePDF = "application/pdf"

var (
	ErrUpload                = errors.New("upload failed")
	ErrUnsupportedAttachment = errors.New("unsupported attachment type")
)

// Attachment is a decoded file sent alongside a user message.
type Attachment struct {
	Name     string
	MimeType string
	Data     []byte
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

func (a Attachment) IsPDF() bool {
	return a.MimeType == MimePDF
}

// SupportedMimeType reports whether a file of this type can be relayed.
func SupportedMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == MimePDF
}

// Uploader stores a file with the provider and returns its id.
type Uploader interface {
	UploadFile(ctx context.Context, name, mimeType string, data []byte) (string, error)
}

// UploadError is returned when a PDF cannot be stored with the provider.
// The turn cannot continue as text-only.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("PDF upload failed for %q: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() []error {
	return []error{ErrUpload, e.Err}
}

// BuildInput turns message text and an optional attachment into provider input.
// Images are inlined as data URLs, PDFs are uploaded first.
func BuildInput(ctx context.Context, up Uploader, text string, att *Attachment) (Input, error) {
	if att == nil {
		return Input{Text: text}, nil
	}

	switch {
	case att.IsImage():
		url := "data:" + att.MimeType + ";base64," + base64.StdEncoding.EncodeToString(att.Data)
		return Input{Text: text, ImageURL: url}, nil

	case att.IsPDF():
		fileID, err := up.UploadFile(ctx, att.Name, att.MimeType, att.Data)
		if err != nil {
			return Input{}, &UploadError{Name: att.Name, Err: err}
		}
		return Input{Text: text, FileID: fileID}, nil

	default:
		return Input{}, fmt.Errorf("%w: %s", ErrUnsupportedAttachment, att.MimeType)
	}
}
