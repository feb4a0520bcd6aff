package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/five82/lector/internal/ocrapi"
	"github.com/five82/lector/internal/transport"
)

// DefaultMaxBytes is the largest upload accepted without configuration.
const DefaultMaxBytes int64 = 16 * 1024 * 1024

// AcceptedTypes lists the content types the service can extract text from.
var AcceptedTypes = []string{"image/png", "image/jpeg", "application/pdf"}

const msgNoFile = "No file selected"

// Limits constrain uploads before they leave the client.
type Limits struct {
	MaxBytes int64
	Accepted []string
}

// DefaultLimits returns the 16MB PNG/JPEG/PDF limits.
func DefaultLimits() Limits {
	return Limits{MaxBytes: DefaultMaxBytes, Accepted: AcceptedTypes}
}

func (l Limits) normalized() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	if len(l.Accepted) == 0 {
		l.Accepted = AcceptedTypes
	}
	return l
}

// File is a file chosen for submission.
type File struct {
	Name string
	Data []byte
}

// LoadFile reads path, refusing files over maxBytes without reading them.
func LoadFile(path string, maxBytes int64) (File, error) {
	if strings.TrimSpace(path) == "" {
		return File{}, transport.Validation(msgNoFile)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat upload: %w", err)
	}
	if info.IsDir() {
		return File{}, transport.Validation("%s is a directory", path)
	}
	if info.Size() > maxBytes {
		return File{}, sizeError(maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read upload: %w", err)
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// Validate checks file against limits and prepares it for upload. The content
// type is sniffed from the bytes; the file name is not trusted.
func Validate(file File, limits Limits) (ocrapi.Upload, error) {
	limits = limits.normalized()
	if len(file.Data) == 0 {
		return ocrapi.Upload{}, transport.Validation(msgNoFile)
	}
	if int64(len(file.Data)) > limits.MaxBytes {
		return ocrapi.Upload{}, sizeError(limits.MaxBytes)
	}

	detected := mimetype.Detect(file.Data)
	contentType := ""
	for _, accepted := range limits.Accepted {
		if detected.Is(accepted) {
			contentType = accepted
			break
		}
	}
	if contentType == "" {
		return ocrapi.Upload{}, transport.Validation("File type %s not allowed. Accepted types: %s", detected.String(), acceptedLabel(limits.Accepted))
	}

	name := filepath.Base(strings.TrimSpace(file.Name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload" + detected.Extension()
	}
	return ocrapi.Upload{Filename: name, ContentType: contentType, Data: file.Data}, nil
}

func sizeError(maxBytes int64) error {
	mb := float64(maxBytes) / (1024 * 1024)
	return transport.Validation("File size exceeds the %sMB limit.", strconv.FormatFloat(mb, 'f', -1, 64))
}

func acceptedLabel(types []string) string {
	labels := make([]string, 0, len(types))
	for _, t := range types {
		switch t {
		case "image/png":
			labels = append(labels, "PNG")
		case "image/jpeg":
			labels = append(labels, "JPG")
		case "application/pdf":
			labels = append(labels, "PDF")
		default:
			labels = append(labels, t)
		}
	}
	return strings.Join(labels, ", ")
}
