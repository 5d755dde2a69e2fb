package chat

import (
	"path/filepath"
	"strings"
	"time"

	"parley/internal/pkg/errs"
)

const (
	// UploadKeyPrefix is the object-storage prefix under which all chat uploads live.
	// A message's file reference must point below this prefix.
	UploadKeyPrefix = "uploads/"

	// MaxAttachmentSizeMB is the maximum allowed file size in megabytes.
	MaxAttachmentSizeMB = 5

	// MaxAttachmentSize is the maximum allowed file size in bytes.
	MaxAttachmentSize = MaxAttachmentSizeMB * 1024 * 1024

	// PresignedURLDuration is the fixed duration for which presigned URLs are valid.
	PresignedURLDuration = 5 * time.Minute
)

// AllowedMIMETypes defines the set of permitted MIME types for file attachments.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxAttachmentSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	return nil
}

// ValidateFileType checks if the provided file name and MIME type are allowed,
// and that the extension and MIME type agree.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" || len(ext) < 2 {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	if expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}

// ValidFileRef reports whether a message's file reference points at a
// previously presigned upload key: below the upload prefix, without path
// traversal, with an allowed extension.
func ValidFileRef(ref string) bool {
	if !strings.HasPrefix(ref, UploadKeyPrefix) {
		return false
	}

	if strings.Contains(ref, "..") {
		return false
	}

	rest := ref[len(UploadKeyPrefix):]
	if rest == "" || strings.ContainsAny(rest, "/\\") {
		return false
	}

	ext := strings.ToLower(filepath.Ext(rest))
	_, ok := ExtToMIME[ext]
	return ok
}
