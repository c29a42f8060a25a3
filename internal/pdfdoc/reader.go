package pdfdoc

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
	rowTolerance      = 3
)

// Reader loads report PDFs into Documents.
type Reader struct {
	maxFileSize int64
}

// NewReader creates a reader that refuses files larger than maxFileSize
// bytes.
func NewReader(maxFileSize int64) *Reader {
	return &Reader{maxFileSize: maxFileSize}
}

// ReadFile parses every page of the PDF at path. Pages that fail to parse
// individually are returned with empty content rather than aborting the
// whole document.
func (r *Reader) ReadFile(path string) (*Document, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if err := r.validatePDFFile(path, fileInfo); err != nil {
		return nil, err
	}

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	doc := &Document{
		Path:  path,
		Size:  fileInfo.Size(),
		Pages: make([]Page, 0, pdfReader.NumPage()),
	}

	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := r.readPage(pdfReader, pageNum)
		doc.Pages = append(doc.Pages, page)
	}

	return doc, nil
}

// readPage extracts one page with panic recovery, since malformed content
// streams can panic inside the parser.
func (r *Reader) readPage(pdfReader *pdf.Reader, pageNum int) (result Page) {
	result = Page{Number: pageNum, Width: defaultPageWidth, Height: defaultPageHeight}

	defer func() {
		if rec := recover(); rec != nil {
			result.Text = ""
			result.Words = nil
			result.Shapes = nil
		}
	}()

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return result
	}

	if w, h, ok := pageDimensions(page); ok {
		result.Width, result.Height = w, h
	}

	if text, err := page.GetPlainText(nil); err == nil {
		result.Text = text
	}

	content := page.Content()

	frags := make([]fragment, 0, len(content.Text))
	for _, t := range content.Text {
		frags = append(frags, fragment{
			text:     t.S,
			x:        t.X,
			y:        t.Y,
			width:    t.W,
			fontSize: t.FontSize,
		})
	}
	result.Words = assembleWords(frags, rowTolerance)

	for _, rect := range content.Rect {
		result.Shapes = append(result.Shapes, Shape{
			MinX: rect.Min.X,
			MinY: rect.Min.Y,
			MaxX: rect.Max.X,
			MaxY: rect.Max.Y,
		})
	}

	return result
}

// pageDimensions reads the MediaBox, falling back through the page tree
// is left to the library; absent or malformed boxes report ok=false.
func pageDimensions(page pdf.Page) (width, height float64, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
		}
	}()

	mediaBox := page.V.Key("MediaBox")
	if mediaBox.IsNull() || mediaBox.Kind() != pdf.Array || mediaBox.Len() < 4 {
		return 0, 0, false
	}

	width = mediaBox.Index(2).Float64() - mediaBox.Index(0).Float64()
	height = mediaBox.Index(3).Float64() - mediaBox.Index(1).Float64()
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// validatePDFFile performs basic checks before parsing.
func (r *Reader) validatePDFFile(path string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", path)
	}
	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if fileInfo.Size() > r.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), r.maxFileSize)
	}
	return nil
}
