package attach

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Limits are the acceptability constraints applied at staging time.
type Limits struct {
	MaxDocumentBytes   int64
	MaxImageBytes      int64
	DocumentExtensions []string // lower-case, with leading dot
}

// DefaultLimits returns the stock rules: .pdf/.docx/.txt up to 10 MiB,
// images up to 2 MiB.
func DefaultLimits() Limits {
	return Limits{
		MaxDocumentBytes:   10 * 1024 * 1024,
		MaxImageBytes:      2 * 1024 * 1024,
		DocumentExtensions: []string{".pdf", ".docx", ".txt"},
	}
}

// Attachments is an immutable copy of the staged set.
type Attachments struct {
	Document  *File
	Images    []File
	Reference string
}

// IsEmpty reports whether nothing is staged.
func (a Attachments) IsEmpty() bool {
	return a.Document == nil && len(a.Images) == 0 && a.Reference == ""
}

// Set is the staging area. It only ever holds valid members.
type Set struct {
	mu        sync.RWMutex
	limits    Limits
	document  *File
	images    []File
	reference string
}

// NewSet creates an empty staging set enforcing l.
func NewSet(l Limits) *Set {
	exts := make([]string, 0, len(l.DocumentExtensions))
	for _, e := range l.DocumentExtensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	l.DocumentExtensions = exts
	return &Set{limits: l}
}

// Limits returns the rules this set enforces.
func (s *Set) Limits() Limits {
	return s.limits
}

// StageDocument replaces the staged document with f if f passes the
// extension and size rules.
func (s *Set) StageDocument(f File) error {
	if err := s.checkDocument(f); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc := f
	s.document = &doc
	return nil
}

func (s *Set) checkDocument(f File) error {
	ext := strings.ToLower(filepath.Ext(f.Name))
	allowed := false
	for _, e := range s.limits.DocumentExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return &ValidationError{
			Kind:    KindDocumentType,
			Name:    f.Name,
			Message: fmt.Sprintf("Please select a %s file.", describeExtensions(s.limits.DocumentExtensions)),
		}
	}
	if f.Size > s.limits.MaxDocumentBytes {
		return &ValidationError{
			Kind:    KindDocumentSize,
			Name:    f.Name,
			Message: fmt.Sprintf("File size must be less than %s.", formatMiB(s.limits.MaxDocumentBytes)),
		}
	}
	return nil
}

// StageImages appends files to the staged images. The batch is
// all-or-nothing: one invalid member rejects every member.
func (s *Set) StageImages(files []File) error {
	for _, f := range files {
		if !strings.HasPrefix(f.MIMEType, "image/") || f.Size > s.limits.MaxImageBytes {
			return &ValidationError{
				Kind:    KindImageBatch,
				Name:    f.Name,
				Message: fmt.Sprintf("Please select valid image files (max %s each).", formatMiB(s.limits.MaxImageBytes)),
			}
		}
	}
	if len(files) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, files...)
	return nil
}

// UnstageDocument drops the staged document, if any.
func (s *Set) UnstageDocument() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = nil
}

// UnstageImage drops the image at index i. Out of range is a no-op.
func (s *Set) UnstageImage(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.images) {
		return
	}
	s.images = append(s.images[:i:i], s.images[i+1:]...)
}

// SetReference stores the trimmed text. Blank text is ignored and
// reported as false.
func (s *Set) SetReference(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reference = text
	return true
}

// ClearReference drops the staged reference.
func (s *Set) ClearReference() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reference = ""
}

// Reset clears every staged attachment.
func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = nil
	s.images = nil
	s.reference = ""
}

// HasDocument reports whether a document is staged.
func (s *Set) HasDocument() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document != nil
}

// Snapshot copies the current staged state.
func (s *Set) Snapshot() Attachments {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := Attachments{Reference: s.reference}
	if s.document != nil {
		doc := *s.document
		a.Document = &doc
	}
	if len(s.images) > 0 {
		a.Images = append([]File(nil), s.images...)
	}
	return a
}

// describeExtensions renders [".pdf", ".docx", ".txt"] as "PDF, DOCX, or TXT".
func describeExtensions(exts []string) string {
	names := make([]string, len(exts))
	for i, e := range exts {
		names[i] = strings.ToUpper(strings.TrimPrefix(e, "."))
	}
	switch len(names) {
	case 0:
		return "supported"
	case 1:
		return names[0]
	case 2:
		return names[0] + " or " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", or " + names[len(names)-1]
}
