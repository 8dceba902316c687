package header

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/suyashkumar/dicom"

	"github.com/radstack/dicomsync/dicomtag"
)

// ExcludedKeywords are never carried into a header dictionary: raw pixel
// payloads, contour coordinate arrays, and encrypted vendor blocks.
var ExcludedKeywords = map[string]struct{}{
	"PixelData":                   {},
	"FloatPixelData":              {},
	"DoubleFloatPixelData":        {},
	"ContourData":                 {},
	"EncryptedAttributesSequence": {},
	"SpectroscopyData":            {},
}

// ErrEmptyFile marks a zero-length candidate file.
var ErrEmptyFile = errors.New("empty file")

// ErrNotParseable marks a file the decoder rejected even in its most lenient
// configuration. It is recorded per file and never fatal to a batch.
var ErrNotParseable = errors.New("file not parseable as DICOM")

// FileHeader records one extraction attempt for a file in a set.
type FileHeader struct {
	Path     string
	Size     int64
	Header   Dict
	ParseErr error
}

// Parsed reports whether the file yielded a non-empty header.
func (f FileHeader) Parsed() bool {
	return f.ParseErr == nil && len(f.Header) > 0
}

// Extractor decodes DICOM files into normalized header dictionaries. The
// strict decode is attempted first, then a lenient fallback that skips the
// file meta group, matching the "forced" decode mode of the original tooling.
type Extractor struct {
	log *slog.Logger
}

// NewExtractor creates an extractor. A nil logger falls back to slog.Default.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{log: logger}
}

// Extract decodes one file into a normalized header dictionary.
func (e *Extractor) Extract(path string) (Dict, error) {
	fh := e.ExtractFile(path)
	if fh.ParseErr != nil {
		return nil, fh.ParseErr
	}
	return fh.Header, nil
}

// ExtractFile decodes one file, recording rather than raising failures.
func (e *Extractor) ExtractFile(path string) FileHeader {
	fh := FileHeader{Path: path}
	info, err := os.Stat(path)
	if err != nil {
		fh.ParseErr = fmt.Errorf("stat %s: %w", path, err)
		return fh
	}
	fh.Size = info.Size()
	if fh.Size == 0 {
		fh.ParseErr = ErrEmptyFile
		return fh
	}

	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		ds, err = dicom.ParseFile(path, nil, dicom.SkipPixelData(), dicom.SkipMetadataReadOnNewParserInit())
	}
	if err != nil {
		e.log.Warn("decoder raised on reading file",
			slog.String("path", filepath.Base(path)),
			slog.String("error", err.Error()))
		fh.ParseErr = fmt.Errorf("%w: %s", ErrNotParseable, path)
		return fh
	}

	fh.Header = e.datasetToDict(ds.Elements)
	return fh
}

// ExtractAll decodes every file in list order. Files that fail to parse are
// retained in the result with a recorded error.
func (e *Extractor) ExtractAll(paths []string) []FileHeader {
	out := make([]FileHeader, 0, len(paths))
	for _, p := range paths {
		out = append(out, e.ExtractFile(p))
	}
	return out
}

// datasetToDict normalizes a decoded element list. Per-element conversion
// errors are logged and the element skipped, never fatal to the file.
func (e *Extractor) datasetToDict(elements []*dicom.Element) Dict {
	d := Dict{}
	for _, el := range elements {
		// File meta group elements describe the encoding, not the instance.
		if el.Tag.Group == 0x0002 {
			continue
		}
		rule, ok := dicomtag.LookupTag(el.Tag)
		if !ok {
			continue
		}
		if _, excluded := ExcludedKeywords[rule.Keyword]; excluded {
			continue
		}
		val, present, err := e.elementValue(el, rule)
		if err != nil {
			e.log.Debug("failed to read element",
				slog.String("keyword", rule.Keyword),
				slog.String("error", err.Error()))
			continue
		}
		if !present {
			continue
		}
		d[rule.Keyword] = val
	}
	NormalizeVM(d, e.log)
	return d
}

func (e *Extractor) elementValue(el *dicom.Element, rule dicomtag.Rule) (any, bool, error) {
	if el.Value == nil {
		return nil, false, nil
	}
	switch el.Value.ValueType() {
	case dicom.Strings:
		vals, ok := el.Value.GetValue().([]string)
		if !ok {
			return nil, false, fmt.Errorf("unexpected value type for %s", rule.Keyword)
		}
		return e.stringValue(rule, vals)
	case dicom.Ints:
		vals, ok := el.Value.GetValue().([]int)
		if !ok {
			return nil, false, fmt.Errorf("unexpected value type for %s", rule.Keyword)
		}
		if len(vals) == 0 {
			return nil, false, nil
		}
		if len(vals) == 1 {
			return vals[0], true, nil
		}
		list := make([]any, len(vals))
		for i, n := range vals {
			list[i] = n
		}
		return list, true, nil
	case dicom.Floats:
		vals, ok := el.Value.GetValue().([]float64)
		if !ok {
			return nil, false, fmt.Errorf("unexpected value type for %s", rule.Keyword)
		}
		if len(vals) == 0 {
			return nil, false, nil
		}
		if len(vals) == 1 {
			return vals[0], true, nil
		}
		list := make([]any, len(vals))
		for i, f := range vals {
			list[i] = f
		}
		return list, true, nil
	case dicom.Sequences:
		items, ok := el.Value.GetValue().([]*dicom.SequenceItemValue)
		if !ok {
			return nil, false, fmt.Errorf("unexpected sequence type for %s", rule.Keyword)
		}
		seq := e.sequenceValue(items)
		// Empty sequences are omitted from the result entirely.
		return seq, len(seq) > 0, nil
	default:
		// Bytes, pixel data, and anything else binary stays out of the header.
		return nil, false, nil
	}
}

func (e *Extractor) stringValue(rule dicomtag.Rule, vals []string) (any, bool, error) {
	vals = rejoinSingleVM(rule, vals)
	switch len(vals) {
	case 0:
		return nil, false, nil
	case 1:
		if len(vals[0]) >= maxStringLength {
			return nil, false, fmt.Errorf("value for %s exceeds max field length", rule.Keyword)
		}
		if vals[0] == "" {
			return nil, false, nil
		}
		v, ok := assignScalar(vals[0])
		return v, ok, nil
	default:
		list, ok := assignList(vals)
		return list, ok, nil
	}
}

func (e *Extractor) sequenceValue(items []*dicom.SequenceItemValue) []Dict {
	out := make([]Dict, 0, len(items))
	for _, item := range items {
		elements, ok := item.GetValue().([]*dicom.Element)
		if !ok {
			continue
		}
		d := e.datasetToDict(elements)
		if len(d) > 0 {
			out = append(out, d)
		}
	}
	return out
}
