package upload

import (
	"errors"
	"fmt"
	"strings"
)

// AllowedTypes is the MIME allow-list: five image types, four documents.
var AllowedTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

// ErrInvalidType is matched by every *TypeError.
var ErrInvalidType = errors.New("invalid file type")

// TypeError rejects a file whose declared MIME type is not allowed.
type TypeError struct {
	MIME string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("Invalid file type: %s. Allowed types: %s", e.MIME, strings.Join(AllowedTypes, ", "))
}

func (e *TypeError) Is(target error) bool { return target == ErrInvalidType }

// ValidateMIME returns a *TypeError unless mime is on the allow-list.
func ValidateMIME(mime string) error {
	for _, t := range AllowedTypes {
		if mime == t {
			return nil
		}
	}
	return &TypeError{MIME: mime}
}

func isImage(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}
