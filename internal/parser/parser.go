package parser

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"manual-rag/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const defaultPageNumber = 1

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxLineBreak    = regexp.MustCompile(`<w:(br|cr)\s*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

// ExtractPages returns the per-page plain text of the document at filePath.
func ExtractPages(filePath string) ([]models.Page, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrSourceNotFound, filePath)
		}
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return extractPDF(filePath)
	case ".docx":
		return extractDOCX(filePath)
	case ".md", ".markdown":
		pages, _, err := ExtractMarkdown(filePath)
		return pages, err
	case ".txt":
		return extractText(filePath)
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, ext)
	}
}

func extractPDF(filePath string) ([]models.Page, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]models.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, models.Page{Number: i})
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		pages = append(pages, models.Page{Number: i, Text: pageText})
	}
	return pages, nil
}

func extractDOCX(filePath string) ([]models.Page, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	return []models.Page{{Number: defaultPageNumber, Text: docxToText(r.Editable().GetContent())}}, nil
}

// docxToText flattens document.xml into one line per paragraph.
func docxToText(xmlContent string) string {
	content := docxParagraphEnd.ReplaceAllString(xmlContent, "\n")
	content = docxLineBreak.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}

// pages in plain text files are separated by form feeds
func extractText(filePath string) ([]models.Page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var pages []models.Page
	for i, pageText := range strings.Split(string(data), "\f") {
		pages = append(pages, models.Page{Number: i + 1, Text: pageText})
	}
	return pages, nil
}

// ExtractMarkdown returns the document as a single page with one line per
// text block, along with the text of every Markdown heading.
func ExtractMarkdown(filePath string) ([]models.Page, []string, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	page, headings, err := markdownToPage(source)
	if err != nil {
		return nil, nil, err
	}
	return []models.Page{page}, headings, nil
}

func markdownToPage(source []byte) (models.Page, []string, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var (
		out      bytes.Buffer
		headings []string
	)
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock, *ast.CodeBlock, *ast.FencedCodeBlock:
		default:
			return ast.WalkContinue, nil
		}

		lines := n.Lines()
		var block []string
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if line := strings.TrimSpace(string(seg.Value(source))); line != "" {
				block = append(block, line)
			}
		}
		if _, ok := n.(*ast.Heading); ok && len(block) > 0 {
			headings = append(headings, strings.Join(block, " "))
			out.WriteString(strings.Join(block, " "))
			out.WriteByte('\n')
			return ast.WalkSkipChildren, nil
		}
		for _, line := range block {
			out.WriteString(line)
			out.WriteByte('\n')
		}
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return models.Page{}, nil, fmt.Errorf("failed to walk markdown: %w", err)
	}
	return models.Page{Number: defaultPageNumber, Text: out.String()}, headings, nil
}
