// Package convert implements the conversion tools. Every tool is a stateless
// function of its inputs and parameters; the Dispatcher maps a domain.Tool to
// the routine that implements it.
package convert

import (
	"sync"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	initOnce sync.Once

	// fpdf's translator reuses one buffer between calls.
	cp1252Mu sync.Mutex
	cp1252   func(string) string
)

// Init performs process-wide library setup. It is safe to call any number of
// times from any goroutine; only the first call does work.
func Init() {
	initOnce.Do(func() {
		api.DisableConfigDir()
		cp1252 = fpdf.New("P", "mm", "A4", "").UnicodeTranslatorFromDescriptor("")
	})
}

// toCP1252 maps UTF-8 text to the single-byte encoding of the core fonts.
// Runes without a cp1252 code point become '.'.
func toCP1252(s string) string {
	Init()
	cp1252Mu.Lock()
	defer cp1252Mu.Unlock()
	return cp1252(s)
}
