package ooxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"docconv/internal/domain"
)

const (
	nsDrawingML     = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPresentation  = "http://schemas.openxmlformats.org/presentationml/2006/main"
	ctPptxMain      = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ctPptxSlide     = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctPptxLayout    = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	ctPptxMaster    = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	ctPptxPresProps = "application/vnd.openxmlformats-officedocument.presentationml.presProps+xml"
	ctTheme         = "application/vnd.openxmlformats-officedocument.theme+xml"
)

// Slide geometry in EMU (914400 per inch): a 10in x 7.5in slide with a text box
// inset by 0.5in measuring 9in x 6.5in.
const (
	SlideWidthEMU  = 9144000
	SlideHeightEMU = 6858000
	TextBoxXEMU    = 457200
	TextBoxYEMU    = 457200
	TextBoxWEMU    = 8229600
	TextBoxHEMU    = 5943600
)

// Paragraph is a text-frame paragraph: the texts of its runs in order.
type Paragraph struct {
	Runs []string
}

// Text concatenates the runs.
func (p Paragraph) Text() string {
	return strings.Join(p.Runs, "")
}

// Shape is a text-bearing shape on a slide.
type Shape struct {
	Paragraphs []Paragraph
}

// Slide lists the text-bearing top-level shapes of a slide, in z-order.
type Slide struct {
	Shapes []Shape
}

// Text joins every paragraph of every shape with newlines.
func (s Slide) Text() string {
	var lines []string
	for _, sh := range s.Shapes {
		for _, p := range sh.Paragraphs {
			lines = append(lines, p.Text())
		}
	}
	return strings.Join(lines, "\n")
}

type xmlPresentation struct {
	XMLName  xml.Name `xml:"presentation"`
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type xmlSlide struct {
	XMLName xml.Name `xml:"sld"`
	Shapes  []struct {
		TxBody *struct {
			Paragraphs []struct {
				Runs []struct {
					Text string `xml:"t"`
				} `xml:"r"`
			} `xml:"p"`
		} `xml:"txBody"`
	} `xml:"cSld>spTree>sp"`
}

// ReadPptxSlides returns the slides of a presentation in presentation order.
// Only top-level shapes that carry a text body are reported; pictures, tables,
// charts and group shapes are skipped.
func ReadPptxSlides(data []byte) ([]Slide, error) {
	const op = "ooxml.read_pptx"

	pkg, err := openPackage(op, data)
	if err != nil {
		return nil, err
	}
	main, err := pkg.mainPart("ppt/presentation.xml")
	if err != nil {
		return nil, err
	}
	b, err := pkg.read(main)
	if err != nil {
		return nil, err
	}
	var pres xmlPresentation
	if err := xml.Unmarshal(b, &pres); err != nil {
		return nil, domain.Errorf(op, domain.KindInvalidFormat, "parse %s: %w", main, err)
	}
	rels, err := pkg.rels(main)
	if err != nil {
		return nil, err
	}

	slides := make([]Slide, 0, len(pres.SlideIDs))
	for _, id := range pres.SlideIDs {
		rel, ok := rels[id.RID]
		if !ok || rel.Type != relSlide {
			return nil, domain.Errorf(op, domain.KindInvalidFormat, "slide relationship %q not found", id.RID)
		}
		name := resolveTarget(main, rel.Target)
		raw, err := pkg.read(name)
		if err != nil {
			return nil, err
		}
		s, err := parseSlide(raw)
		if err != nil {
			return nil, domain.Errorf(op, domain.KindInvalidFormat, "parse %s: %w", name, err)
		}
		slides = append(slides, s)
	}
	return slides, nil
}

func parseSlide(raw []byte) (Slide, error) {
	var xs xmlSlide
	if err := xml.Unmarshal(raw, &xs); err != nil {
		return Slide{}, err
	}
	var s Slide
	for _, sp := range xs.Shapes {
		if sp.TxBody == nil {
			continue
		}
		var sh Shape
		for _, p := range sp.TxBody.Paragraphs {
			para := Paragraph{Runs: make([]string, 0, len(p.Runs))}
			for _, r := range p.Runs {
				para.Runs = append(para.Runs, r.Text)
			}
			sh.Paragraphs = append(sh.Paragraphs, para)
		}
		s.Shapes = append(s.Shapes, sh)
	}
	return s, nil
}

// WritePptx writes a presentation with one slide per element of texts. Each
// slide carries a single text box; every line of the text becomes a paragraph.
func WritePptx(w io.Writer, texts []string) error {
	overrides := []override{
		{part: "ppt/presentation.xml", contentType: ctPptxMain},
		{part: "ppt/presProps.xml", contentType: ctPptxPresProps},
		{part: "ppt/slideMasters/slideMaster1.xml", contentType: ctPptxMaster},
		{part: "ppt/slideLayouts/slideLayout1.xml", contentType: ctPptxLayout},
		{part: "ppt/theme/theme1.xml", contentType: ctTheme},
	}
	presRels := []relationship{
		{ID: "rId1", Type: relSlideMaster, Target: "slideMasters/slideMaster1.xml"},
		{ID: "rId2", Type: relTheme, Target: "theme/theme1.xml"},
		{ID: "rId3", Type: relPresProps, Target: "presProps.xml"},
	}

	var slideParts []part
	var sldIDs strings.Builder
	for i, text := range texts {
		n := i + 1
		name := fmt.Sprintf("ppt/slides/slide%d.xml", n)
		rid := fmt.Sprintf("rId%d", n+3)
		overrides = append(overrides, override{part: name, contentType: ctPptxSlide})
		presRels = append(presRels, relationship{ID: rid, Type: relSlide, Target: fmt.Sprintf("slides/slide%d.xml", n)})
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="%s"/>`, 255+n, rid)
		slideParts = append(slideParts,
			part{name: name, body: slideXML(text)},
			part{name: fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), body: relationshipsXML([]relationship{
				{ID: "rId1", Type: relSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
			})},
		)
	}

	pres := xmlHeader + `<p:presentation ` + pmlNamespaces + ` saveSubsetFonts="1">` +
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`
	if len(texts) > 0 {
		pres += `<p:sldIdLst>` + sldIDs.String() + `</p:sldIdLst>`
	}
	pres += fmt.Sprintf(`<p:sldSz cx="%d" cy="%d" type="screen4x3"/><p:notesSz cx="%d" cy="%d"/>`,
		SlideWidthEMU, SlideHeightEMU, SlideHeightEMU, SlideWidthEMU) +
		`<p:defaultTextStyle/></p:presentation>`

	parts := []part{
		{name: "[Content_Types].xml", body: contentTypesXML(overrides)},
		{name: "_rels/.rels", body: relationshipsXML([]relationship{
			{ID: "rId1", Type: relOfficeDocument, Target: "ppt/presentation.xml"},
		})},
		{name: "ppt/presentation.xml", body: pres},
		{name: "ppt/_rels/presentation.xml.rels", body: relationshipsXML(presRels)},
		{name: "ppt/presProps.xml", body: xmlHeader + `<p:presentationPr ` + pmlNamespaces + `/>`},
		{name: "ppt/slideMasters/slideMaster1.xml", body: slideMasterXML},
		{name: "ppt/slideMasters/_rels/slideMaster1.xml.rels", body: relationshipsXML([]relationship{
			{ID: "rId1", Type: relSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
			{ID: "rId2", Type: relTheme, Target: "../theme/theme1.xml"},
		})},
		{name: "ppt/slideLayouts/slideLayout1.xml", body: slideLayoutXML},
		{name: "ppt/slideLayouts/_rels/slideLayout1.xml.rels", body: relationshipsXML([]relationship{
			{ID: "rId1", Type: relSlideMaster, Target: "../slideMasters/slideMaster1.xml"},
		})},
		{name: "ppt/theme/theme1.xml", body: themeXML},
	}
	return writePackage(w, append(parts, slideParts...))
}

const pmlNamespaces = `xmlns:a="` + nsDrawingML + `" xmlns:r="` + nsOfficeRel + `" xmlns:p="` + nsPresentation + `"`

const emptyTreeProps = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

func slideXML(text string) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:sld ` + pmlNamespaces + `><p:cSld><p:spTree>`)
	b.WriteString(emptyTreeProps)
	b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="TextBox 1"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`)
	fmt.Fprintf(&b, `<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`,
		TextBoxXEMU, TextBoxYEMU, TextBoxWEMU, TextBoxHEMU)
	b.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>`)
	b.WriteString(`<p:txBody><a:bodyPr wrap="square" rtlCol="0"><a:normAutofit/></a:bodyPr><a:lstStyle/>`)
	for _, line := range splitLines(text) {
		if line == "" {
			b.WriteString(`<a:p><a:endParaRPr lang="en-US" sz="1200"/></a:p>`)
			continue
		}
		b.WriteString(`<a:p><a:r><a:rPr lang="en-US" sz="1200"/><a:t>`)
		b.WriteString(escape(line))
		b.WriteString(`</a:t></a:r></a:p>`)
	}
	b.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return b.String()
}

var slideMasterXML = xmlHeader + `<p:sldMaster ` + pmlNamespaces + `>` +
	`<p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>` + emptyTreeProps + `</p:spTree></p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" ` +
	`accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`<p:txStyles><p:titleStyle/><p:bodyStyle/><p:otherStyle/></p:txStyles>` +
	`</p:sldMaster>`

var slideLayoutXML = xmlHeader + `<p:sldLayout ` + pmlNamespaces + ` type="blank" preserve="1">` +
	`<p:cSld name="Blank"><p:spTree>` + emptyTreeProps + `</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

func themeColor(name, rgb string) string {
	return `<a:` + name + `><a:srgbClr val="` + rgb + `"/></a:` + name + `>`
}

func themeFontGroup(name string) string {
	return `<a:` + name + `><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:` + name + `>`
}

const solidFill = `<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>`

var themeXML = xmlHeader + `<a:theme xmlns:a="` + nsDrawingML + `" name="Office Theme"><a:themeElements>` +
	`<a:clrScheme name="Office">` +
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>` +
	`<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	themeColor("dk2", "1F497D") + themeColor("lt2", "EEECE1") +
	themeColor("accent1", "4F81BD") + themeColor("accent2", "C0504D") + themeColor("accent3", "9BBB59") +
	themeColor("accent4", "8064A2") + themeColor("accent5", "4BACC6") + themeColor("accent6", "F79646") +
	themeColor("hlink", "0000FF") + themeColor("folHlink", "800080") +
	`</a:clrScheme>` +
	`<a:fontScheme name="Office">` + themeFontGroup("majorFont") + themeFontGroup("minorFont") + `</a:fontScheme>` +
	`<a:fmtScheme name="Office">` +
	`<a:fillStyleLst>` + solidFill + solidFill + solidFill + `</a:fillStyleLst>` +
	`<a:lnStyleLst>` +
	`<a:ln w="9525">` + solidFill + `</a:ln><a:ln w="25400">` + solidFill + `</a:ln><a:ln w="38100">` + solidFill + `</a:ln>` +
	`</a:lnStyleLst>` +
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle>` +
	`<a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
	`<a:bgFillStyleLst>` + solidFill + solidFill + solidFill + `</a:bgFillStyleLst>` +
	`</a:fmtScheme></a:themeElements><a:objectDefaults/><a:extraClrSchemeLst/></a:theme>`
