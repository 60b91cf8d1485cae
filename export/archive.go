package export

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s-]+`)
var spaces = regexp.MustCompile(`\s+`)

// CleanName strips non-word characters and replaces spaces with underscores.
func CleanName(s string) string {
	s = nonWord.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(strings.TrimSpace(s), "_")
	return s
}

// FileName is the PDF name of one document of one employee.
func FileName(e *model.Employee, label string) string {
	name := CleanName(e.FullName())
	if name == "" {
		name = e.DNI
	}
	return name + "_" + CleanName(label) + ".pdf"
}

// Archive is an in-memory ZIP written with the fastest deflate level; the
// PDFs inside already carry compressed rasters.
type Archive struct {
	buf   bytes.Buffer
	zw    *zip.Writer
	names map[string]bool
	now   time.Time
}

// NewArchive creates an empty ZIP archive.
func NewArchive() *Archive {
	a := &Archive{names: make(map[string]bool), now: time.Now()}
	a.zw = zip.NewWriter(&a.buf)
	a.zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestSpeed)
	})
	return a
}

// Add stores data under name. When name is taken, dni is appended, then a counter.
func (a *Archive) Add(name, dni string, data []byte) (string, error) {
	name = a.unique(name, dni)
	w, err := a.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: a.now})
	if err != nil {
		return "", fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("failed to write %s to archive: %w", name, err)
	}
	a.names[name] = true
	return name, nil
}

func (a *Archive) unique(name, dni string) string {
	if !a.names[name] {
		return name
	}
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i:]
	}
	if dni != "" {
		candidate := base + "_" + dni + ext
		if !a.names[candidate] {
			return candidate
		}
		base += "_" + dni
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", base, n, ext)
		if !a.names[candidate] {
			return candidate
		}
	}
}

func (a *Archive) Len() int { return len(a.names) }

// Bytes finishes the archive.
func (a *Archive) Bytes() ([]byte, error) {
	if err := a.zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return a.buf.Bytes(), nil
}
