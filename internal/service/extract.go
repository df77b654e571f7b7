package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	errUnsupportedType = errors.New("unsupported file type")
	errNoText          = errors.New("document contains no extractable text")
)

var plainTextExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true, ".json": true,
	".yaml": true, ".yml": true, ".xml": true, ".html": true, ".go": true, ".py": true,
}

// ExtractText returns the readable text of a document. Plain text formats are
// returned as is, DOCX paragraphs are read from the archive and PDF pages are
// decoded with their content streams and fonts.
func ExtractText(filename, contentType string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var text string
	switch {
	case strings.HasPrefix(contentType, "text/") || plainTextExtensions[ext] || contentType == "application/json":
		text = strings.ToValidUTF8(string(data), "")
	case ext == ".docx" || strings.Contains(contentType, "wordprocessingml"):
		var err error
		if text, err = docxText(data); err != nil {
			return "", err
		}
	case ext == ".pdf" || contentType == "application/pdf":
		var err error
		if text, err = pdfText(data); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %s", errUnsupportedType, contentType)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errNoText
	}
	return text, nil
}

func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a valid docx archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return wordParagraphs(rc)
	}
	return "", fmt.Errorf("%w: docx has no document body", errNoText)
}

// wordParagraphs collects the character data of w:t elements, one line per w:p.
func wordParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("malformed docx body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inText = t.Name.Local == "t"
		case xml.EndElement:
			if t.Name.Local == "p" {
				sb.WriteByte('\n')
			}
			inText = false
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
}

// pdfText concatenates the plain text of every page.
func pdfText(data []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a valid pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("could not read pdf text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("could not read pdf text: %w", err)
	}
	return string(b), nil
}
