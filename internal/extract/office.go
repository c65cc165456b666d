package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractDOCX pulls the paragraph text out of a DOCX archive's main
// document part.
func extractDOCX(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}
	doc, err := zr.Open("word/document.xml")
	if err != nil {
		return "", fmt.Errorf("docx has no document part: %w", err)
	}
	defer doc.Close()
	return documentText(doc), nil
}

// documentText walks WordprocessingML tokens, keeping character data of
// w:t runs and starting a new paragraph at each w:p element. A truncated
// document part yields whatever was read before the cut.
func documentText(r io.Reader) string {
	var (
		paragraphs []string
		current    strings.Builder
		inRun      bool
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			paragraphs = append(paragraphs, s)
		}
		current.Reset()
	}

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inRun = true
			case "p":
				flush()
			}
		case xml.EndElement:
			if el.Name.Local == "t" {
				inRun = false
			}
		case xml.CharData:
			if inRun {
				current.Write(el)
			}
		}
	}
	flush()
	return strings.Join(paragraphs, "\n")
}

// extractXLSX flattens a workbook into tab-separated rows. Sheet names
// become section headers when the workbook has more than one sheet, and
// empty rows are dropped.
func extractXLSX(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read xlsx: %w", err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	var lines []string
	for _, sheet := range sheets {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(sheets) > 1 {
			lines = append(lines, sheet)
		}
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if line == "" {
				continue
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
