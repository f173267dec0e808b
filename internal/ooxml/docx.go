package ooxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"docconv/internal/domain"
)

const (
	nsWordML       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsWordMLStrict = "http://purl.oclc.org/ooxml/wordprocessingml/main"
	ctDocxMain     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

func isWordML(n xml.Name) bool {
	return n.Space == nsWordML || n.Space == nsWordMLStrict
}

// ReadDocxParagraphs returns the plain text of every body-level paragraph in
// document order. Paragraphs nested in tables, text boxes or other containers
// are not included; tabs and breaks inside runs become "\t" and "\n".
func ReadDocxParagraphs(data []byte) ([]string, error) {
	const op = "ooxml.read_docx"

	pkg, err := openPackage(op, data)
	if err != nil {
		return nil, err
	}
	main, err := pkg.mainPart("word/document.xml")
	if err != nil {
		return nil, err
	}
	body, err := pkg.read(main)
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		paras     []string
		sb        strings.Builder
		depth     int
		bodyDepth int
		inPara    bool
		runDepth  int
		inText    bool
		sawRoot   bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.Errorf(op, domain.KindInvalidFormat, "parse %s: %w", main, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if !isWordML(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "document":
				sawRoot = true
			case "body":
				if bodyDepth == 0 {
					bodyDepth = depth
				}
			case "p":
				if bodyDepth > 0 && depth == bodyDepth+1 {
					inPara = true
					sb.Reset()
				}
			case "r":
				if inPara {
					runDepth++
				}
			case "t":
				inText = inPara && runDepth > 0
			case "tab":
				if inPara && runDepth > 0 {
					sb.WriteByte('\t')
				}
			case "br", "cr":
				if inPara && runDepth > 0 {
					sb.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if isWordML(t.Name) {
				switch t.Name.Local {
				case "p":
					if inPara && depth == bodyDepth+1 {
						paras = append(paras, sb.String())
						inPara = false
					}
				case "r":
					if inPara && runDepth > 0 {
						runDepth--
					}
				case "t":
					inText = false
				case "body":
					if depth == bodyDepth {
						bodyDepth = -1
					}
				}
			}
			depth--
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	if !sawRoot {
		return nil, domain.Errorf(op, domain.KindInvalidFormat, "%s is not a WordprocessingML document", main)
	}
	return paras, nil
}

// WriteDocx writes a minimal WordprocessingML package holding one paragraph
// per element of paragraphs. Line breaks and tabs are preserved as w:br and w:tab.
func WriteDocx(w io.Writer, paragraphs []string) error {
	var doc strings.Builder
	doc.WriteString(xmlHeader)
	doc.WriteString(`<w:document xmlns:w="` + nsWordML + `" xmlns:r="` + nsOfficeRel + `"><w:body>`)
	for _, p := range paragraphs {
		writeDocxParagraph(&doc, p)
	}
	// A4 portrait with 1 inch margins.
	doc.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`)

	return writePackage(w, []part{
		{name: "[Content_Types].xml", body: contentTypesXML([]override{
			{part: "word/document.xml", contentType: ctDocxMain},
		})},
		{name: "_rels/.rels", body: relationshipsXML([]relationship{
			{ID: "rId1", Type: relOfficeDocument, Target: "word/document.xml"},
		})},
		{name: "word/document.xml", body: doc.String()},
	})
}

func writeDocxParagraph(b *strings.Builder, text string) {
	b.WriteString(`<w:p>`)
	if text == "" {
		b.WriteString(`</w:p>`)
		return
	}
	b.WriteString(`<w:r>`)
	for i, line := range splitLines(text) {
		if i > 0 {
			b.WriteString(`<w:br/>`)
		}
		for j, seg := range strings.Split(line, "\t") {
			if j > 0 {
				b.WriteString(`<w:tab/>`)
			}
			if seg != "" {
				b.WriteString(`<w:t xml:space="preserve">`)
				b.WriteString(escape(seg))
				b.WriteString(`</w:t>`)
			}
		}
	}
	b.WriteString(`</w:r></w:p>`)
}
