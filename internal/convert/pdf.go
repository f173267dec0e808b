package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docconv/internal/domain"
)

// pdfConfig is the shared pdfcpu setup. Output keeps a classic xref table
// because the text extractor does not follow object streams.
func pdfConfig() *model.Configuration {
	return relaxed(model.NewDefaultConfiguration())
}

func relaxed(conf *model.Configuration) *model.Configuration {
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// pdfError classifies a pdfcpu failure. pdfcpu reports most conditions as
// plain errors, so the message is the only signal available.
func pdfError(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsCanceled(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password"):
		return domain.Wrap(op, domain.KindAuthenticationFailed, err)
	case strings.Contains(msg, "already encrypted"):
		return domain.Wrap(op, domain.KindInvalidRequest, err)
	default:
		return domain.Wrap(op, domain.KindInvalidFormat, err)
	}
}

// pdfcpu searches backwards from the end of the file for the xref section
// and never terminates on an empty input, so every entry point checks for a
// header first. Readers accept up to 1024 bytes of leading junk.
const (
	pdfHeader       = "%PDF-"
	pdfHeaderWindow = 1024
)

func checkHeader(op string, data []byte) error {
	if len(data) < len(pdfHeader) {
		return domain.Errorf(op, domain.KindInvalidFormat, "input of %d bytes is not a PDF", len(data))
	}
	head := data[:min(len(data), pdfHeaderWindow)]
	if !bytes.Contains(head, []byte(pdfHeader)) {
		return domain.Errorf(op, domain.KindInvalidFormat, "missing %s header", pdfHeader)
	}
	return nil
}

// PageCount returns the number of pages in a PDF.
func PageCount(data []byte) (int, error) {
	const op = "convert.page_count"
	if err := checkHeader(op, data); err != nil {
		return 0, err
	}
	Init()
	n, err := api.PageCount(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return 0, pdfError(op, err)
	}
	return n, nil
}

// MergePDFs concatenates every page of every input, in input order.
func MergePDFs(ctx context.Context, files []domain.Input) ([]byte, error) {
	const op = "convert.merge"
	if len(files) == 0 {
		return nil, domain.Errorf(op, domain.KindInvalidRequest, "no input files")
	}

	readers := make([]io.ReadSeeker, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Validate up front so a broken input is reported by name.
		if _, err := PageCount(f.Data); err != nil {
			return nil, domain.Wrap(op, domain.KindInvalidFormat, fmt.Errorf("input %d (%s): %w", i+1, f.Name, err))
		}
		readers = append(readers, bytes.NewReader(f.Data))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(readers) == 1 {
		return optimize(op, files[0].Data)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, pdfConfig()); err != nil {
		return nil, pdfError(op, err)
	}
	return out.Bytes(), nil
}

// SplitPDF keeps pages start..end (1-indexed, inclusive).
func SplitPDF(ctx context.Context, data []byte, start, end int) ([]byte, error) {
	const op = "convert.split"

	n, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	if start < 1 || end < start || end > n {
		return nil, domain.Errorf(op, domain.KindInvalidRequest,
			"page range %d-%d outside document with %d pages", start, end, n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	sel := []string{fmt.Sprintf("%d-%d", start, end)}
	if err := api.Trim(bytes.NewReader(data), &out, sel, pdfConfig()); err != nil {
		return nil, pdfError(op, err)
	}
	return out.Bytes(), nil
}

// CompressPDF rewrites the document with duplicate resources merged and
// unused objects dropped. The output is not guaranteed to be smaller.
func CompressPDF(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return optimize("convert.compress", data)
}

func optimize(op string, data []byte) ([]byte, error) {
	if err := checkHeader(op, data); err != nil {
		return nil, err
	}
	Init()
	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, pdfConfig()); err != nil {
		return nil, pdfError(op, err)
	}
	return out.Bytes(), nil
}

// UnlockPDF removes encryption using password. An unencrypted document is
// re-serialized unchanged in content.
func UnlockPDF(ctx context.Context, data []byte, password string) ([]byte, error) {
	const op = "convert.unlock"
	if password == "" {
		return nil, domain.Errorf(op, domain.KindInvalidRequest, "password is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkHeader(op, data); err != nil {
		return nil, err
	}
	Init()

	conf := pdfConfig()
	conf.UserPW = password
	conf.OwnerPW = password

	var out bytes.Buffer
	err := api.Decrypt(bytes.NewReader(data), &out, conf)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "not encrypted") {
		return optimize(op, data)
	}
	if err != nil {
		return nil, pdfError(op, err)
	}
	return out.Bytes(), nil
}

// ProtectPDF encrypts with AES-256 using password as both the user and the
// owner password.
func ProtectPDF(ctx context.Context, data []byte, password string) ([]byte, error) {
	const op = "convert.protect"
	if password == "" {
		return nil, domain.Errorf(op, domain.KindInvalidRequest, "password is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkHeader(op, data); err != nil {
		return nil, err
	}
	Init()

	conf := relaxed(model.NewAESConfiguration(password, password, 256))

	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(data), &out, conf); err != nil {
		return nil, pdfError(op, err)
	}
	return out.Bytes(), nil
}
