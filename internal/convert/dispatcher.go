package convert

import (
	"context"
	"fmt"

	"docconv/internal/domain"
)

// Dispatcher routes a ConversionRequest to the routine of its tool. It holds
// no per-request state and may be shared between goroutines.
type Dispatcher struct {
	scratchDir string
}

// NewDispatcher returns a dispatcher whose temporary files live below
// scratchDir (the system temp dir when empty).
func NewDispatcher(scratchDir string) *Dispatcher {
	Init()
	return &Dispatcher{scratchDir: scratchDir}
}

// Convert runs the tool named by req. It returns exactly one of a result or
// an error; no partial output is ever returned.
func (d *Dispatcher) Convert(ctx context.Context, req domain.ConversionRequest) (*domain.ConversionResult, error) {
	const op = "convert.dispatch"

	spec, ok := req.Tool().Spec()
	if !ok {
		return nil, domain.Errorf(op, domain.KindInvalidRequest, "unknown tool %s", req.Tool())
	}
	if err := validateArity(spec, req.InputCount()); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := d.run(ctx, req)
	if err != nil {
		return nil, err
	}
	return &domain.ConversionResult{
		Data:      data,
		Filename:  spec.DefaultFilename,
		Extension: spec.Extension,
		MIMEType:  spec.MIMEType,
	}, nil
}

func validateArity(spec domain.ToolSpec, n int) error {
	const op = "convert.dispatch"
	if n == 0 {
		return domain.Errorf(op, domain.KindInvalidRequest, "%s: no input files", spec.Slug)
	}
	if !spec.Multiple && n != 1 {
		return domain.Errorf(op, domain.KindInvalidRequest, "%s takes exactly one input, got %d", spec.Slug, n)
	}
	return nil
}

func (d *Dispatcher) run(ctx context.Context, req domain.ConversionRequest) ([]byte, error) {
	inputs := req.Inputs()
	params := req.Params()
	first := inputs[0].Data

	switch req.Tool() {
	case domain.ToolMerge:
		return MergePDFs(ctx, inputs)
	case domain.ToolSplit:
		return SplitPDF(ctx, first, params.StartPage, params.EndPage)
	case domain.ToolCompress:
		return CompressPDF(ctx, first)
	case domain.ToolImagesToPDF:
		return ImagesToPDF(ctx, d.scratchDir, inputs)
	case domain.ToolWordToPDF:
		return WordToPDF(ctx, first)
	case domain.ToolPDFToWord:
		return PDFToWord(ctx, first)
	case domain.ToolUnlock:
		return UnlockPDF(ctx, first, params.Password)
	case domain.ToolProtect:
		return ProtectPDF(ctx, first, params.Password)
	case domain.ToolPPTToPDF:
		return PPTToPDF(ctx, first)
	case domain.ToolPDFToPPT:
		return PDFToPPT(ctx, first)
	default:
		panic(fmt.Sprintf("convert: unhandled tool %d", int(req.Tool())))
	}
}
