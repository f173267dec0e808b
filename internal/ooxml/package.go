// Package ooxml reads and writes the parts of Office Open XML packages
// (.docx, .pptx) that the conversion tools need: plain paragraph text in,
// plain paragraph text out.
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"docconv/internal/domain"
)

const (
	nsRelationships   = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes    = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsOfficeRel       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	relOfficeDocument = nsOfficeRel + "/officeDocument"
	relSlide          = nsOfficeRel + "/slide"
	relSlideLayout    = nsOfficeRel + "/slideLayout"
	relSlideMaster    = nsOfficeRel + "/slideMaster"
	relTheme          = nsOfficeRel + "/theme"
	relPresProps      = nsOfficeRel + "/presProps"
	ctRelationships   = "application/vnd.openxmlformats-package.relationships+xml"
)

// maxPartBytes bounds a single decompressed part.
const maxPartBytes int64 = 64 << 20

// opcPackage is an opened zip container.
type opcPackage struct {
	op    string
	files map[string]*zip.File
}

func openPackage(op string, data []byte) (*opcPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.Errorf(op, domain.KindInvalidFormat, "not a zip container: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[strings.TrimPrefix(f.Name, "/")] = f
	}
	return &opcPackage{op: op, files: files}, nil
}

func (p *opcPackage) read(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, domain.Errorf(p.op, domain.KindInvalidFormat, "missing part %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, domain.Errorf(p.op, domain.KindInvalidFormat, "open part %s: %w", name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, maxPartBytes+1))
	if err != nil {
		return nil, domain.Errorf(p.op, domain.KindInvalidFormat, "read part %s: %w", name, err)
	}
	if int64(len(b)) > maxPartBytes {
		return nil, domain.Errorf(p.op, domain.KindUnsupportedContent, "part %s exceeds %d bytes", name, maxPartBytes)
	}
	return b, nil
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
	Mode   string `xml:"TargetMode,attr"`
}

type relationships struct {
	XMLName xml.Name       `xml:"Relationships"`
	Items   []relationship `xml:"Relationship"`
}

// rels returns the relationships of part ("" for the package itself), keyed by id.
func (p *opcPackage) rels(part string) (map[string]relationship, error) {
	name := "_rels/.rels"
	if part != "" {
		name = path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
	}
	if _, ok := p.files[name]; !ok {
		return map[string]relationship{}, nil
	}
	b, err := p.read(name)
	if err != nil {
		return nil, err
	}
	var rs relationships
	if err := xml.Unmarshal(b, &rs); err != nil {
		return nil, domain.Errorf(p.op, domain.KindInvalidFormat, "parse %s: %w", name, err)
	}
	out := make(map[string]relationship, len(rs.Items))
	for _, r := range rs.Items {
		out[r.ID] = r
	}
	return out, nil
}

// mainPart resolves the officeDocument relationship, falling back to the
// conventional location.
func (p *opcPackage) mainPart(fallback string) (string, error) {
	rs, err := p.rels("")
	if err != nil {
		return "", err
	}
	for _, r := range rs {
		if r.Type == relOfficeDocument {
			return resolveTarget("", r.Target), nil
		}
	}
	if _, ok := p.files[fallback]; ok {
		return fallback, nil
	}
	return "", domain.Errorf(p.op, domain.KindInvalidFormat, "no main document part")
}

// resolveTarget turns a relationship target into a package part name.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Clean(strings.TrimPrefix(target, "/"))
	}
	return path.Clean(path.Join(path.Dir(source), target))
}

type part struct {
	name string
	body string
}

func writePackage(w io.Writer, parts []part) error {
	zw := zip.NewWriter(w)
	for _, p := range parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate})
		if err != nil {
			return err
		}
		if _, err := io.WriteString(fw, p.body); err != nil {
			return err
		}
	}
	return zw.Close()
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

type override struct {
	part        string
	contentType string
}

func contentTypesXML(overrides []override) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<Types xmlns="%s">`, nsContentTypes)
	fmt.Fprintf(&b, `<Default Extension="rels" ContentType="%s"/>`, ctRelationships)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	for _, o := range overrides {
		fmt.Fprintf(&b, `<Override PartName="/%s" ContentType="%s"/>`, o.part, o.contentType)
	}
	b.WriteString(`</Types>`)
	return b.String()
}

func relationshipsXML(items []relationship) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<Relationships xmlns="%s">`, nsRelationships)
	for _, r := range items {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"/>`, r.ID, r.Type, r.Target)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

// escape returns s as XML character data.
func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// splitLines normalizes CR/CRLF line ends and splits on LF.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}
