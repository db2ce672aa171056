package extractor

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Page is one PDF page: its plain text plus its positioned words.
type Page struct {
	Text  string
	Words []Word
}

// Document is the extracted content of one statement file. Exactly one of
// Pages (PDF family) or Rows (spreadsheet family) is populated.
type Document struct {
	Path    string
	Pages   []Page
	Rows    []Row
	Columns []string
}

// FirstPageText returns the text of the first page, or "" for non-PDF or
// empty documents.
func (d *Document) FirstPageText() string {
	if len(d.Pages) == 0 {
		return ""
	}
	return d.Pages[0].Text
}

// Load extracts a statement file into a Document based on its extension.
func Load(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported statement file type %q", filepath.Ext(path))
	}
}

func loadPDF(path string) (*Document, error) {
	texts, err := ExtractText(path)
	if err != nil {
		return nil, err
	}
	words, err := ExtractWords(path)
	if err != nil {
		return nil, err
	}

	doc := &Document{Path: path}
	for i, text := range texts {
		page := Page{Text: text}
		if i < len(words) {
			page.Words = words[i]
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

func loadXLSX(path string) (*Document, error) {
	columns, rows, err := ExtractRows(path)
	if err != nil {
		return nil, err
	}
	return &Document{Path: path, Columns: columns, Rows: rows}, nil
}
