package core

import (
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ReceiptKind is the display variant of an expense's proof attachment.
type ReceiptKind int

const (
	ReceiptNone ReceiptKind = iota
	ReceiptDocument
	ReceiptImage
)

func (k ReceiptKind) String() string {
	switch k {
	case ReceiptDocument:
		return "document"
	case ReceiptImage:
		return "image"
	default:
		return "none"
	}
}

// ActionLabel is the hover caption of the receipt thumbnail.
func (k ReceiptKind) ActionLabel() string {
	switch k {
	case ReceiptDocument:
		return "OPEN PDF"
	case ReceiptImage:
		return "VIEW IMG"
	default:
		return ""
	}
}

// ClassifyReceipt decides how a receipt URL is rendered. The extension check
// is case-insensitive and ignores any query string or fragment.
func ClassifyReceipt(imageURL *string) ReceiptKind {
	if imageURL == nil {
		return ReceiptNone
	}
	raw := strings.TrimSpace(*imageURL)
	if raw == "" {
		return ReceiptNone
	}
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	if strings.HasSuffix(strings.ToLower(p), ".pdf") {
		return ReceiptDocument
	}
	return ReceiptImage
}

// ReceiptObjectPath builds the storage path of an uploaded proof:
// "<race id>/<random>.<ext>". The random part avoids collisions between
// uploads of identically named files.
func ReceiptObjectPath(raceID uuid.UUID, filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(path.Base(filename)), "."))
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		ext = "bin"
	}
	return raceID.String() + "/" + uuid.NewString() + "." + ext
}
