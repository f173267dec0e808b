package domain

// Input is one uploaded file.
type Input struct {
	Name string
	Data []byte
}

// Params carries the scalar, tool-specific parameters. Fields a tool does not
// use are ignored.
type Params struct {
	StartPage int
	EndPage   int
	Password  string
}

// ConversionRequest is immutable once built with NewRequest.
type ConversionRequest struct {
	tool   Tool
	inputs []Input
	params Params
}

// NewRequest builds a request. The inputs slice is copied; the byte slices are
// shared and must not be modified by the caller afterwards.
func NewRequest(tool Tool, inputs []Input, params Params) ConversionRequest {
	in := make([]Input, len(inputs))
	copy(in, inputs)
	return ConversionRequest{tool: tool, inputs: in, params: params}
}

func (r ConversionRequest) Tool() Tool { return r.tool }

func (r ConversionRequest) Params() Params { return r.params }

// Inputs returns a copy of the input list.
func (r ConversionRequest) Inputs() []Input {
	out := make([]Input, len(r.inputs))
	copy(out, r.inputs)
	return out
}

// InputCount returns the number of inputs without copying.
func (r ConversionRequest) InputCount() int { return len(r.inputs) }

// InputBytes returns the total size of all inputs.
func (r ConversionRequest) InputBytes() int {
	n := 0
	for _, in := range r.inputs {
		n += len(in.Data)
	}
	return n
}

// ConversionResult is owned exclusively by the caller that receives it.
type ConversionResult struct {
	Data      []byte
	Filename  string
	Extension string
	MIMEType  string
}
