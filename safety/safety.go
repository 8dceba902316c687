// Package safety decides whether applying a header diff to a set of files is
// safe at all. It is a heuristic gate, not a correctness proof: its only job
// is to refuse updates when the evidence suggests the caller paired the wrong
// target header with the wrong files.
package safety

import (
	"fmt"
	"log/slog"

	"github.com/radstack/dicomsync/dicomtag"
	"github.com/radstack/dicomsync/diff"
	"github.com/radstack/dicomsync/header"
)

// Reason codes for a verdict.
type Reason string

const (
	// ReasonSafe is the passing verdict.
	ReasonSafe Reason = "Safe"
	// ReasonNoHeaderParsed: a non-empty target header but zero parseable files.
	ReasonNoHeaderParsed Reason = "NoHeaderParsed"
	// ReasonNoCommonTags: the files share no tag values and are unlikely to
	// belong to one series.
	ReasonNoCommonTags Reason = "NoCommonTags"
	// ReasonMajorityDiffers: the diff touches more than a third of the common
	// header, evidence of a mis-associated target.
	ReasonMajorityDiffers Reason = "MajorityDiffers"
)

// MajorityDivisor is the denominator of the majority-diff trip-wire: a batch
// is unsafe when diff size exceeds common-header size divided by this.
// Deliberately hardcoded as a conservative constant; flagged as a
// configuration candidate, not tuned.
const MajorityDivisor = 3

// Verdict is the classifier's decision.
type Verdict struct {
	Safe    bool
	Reason  Reason
	Message string
}

// Classifier evaluates a whole file set against a target header.
type Classifier struct {
	log    *slog.Logger
	engine *diff.Engine
}

// NewClassifier creates a classifier. A nil logger falls back to slog.Default.
func NewClassifier(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{log: logger, engine: diff.NewEngine(logger)}
}

// CommonHeader folds the extracted headers into the subset of keyword→value
// pairs identical across every one of them. Only dictionary keywords
// participate; the empty set folds to an empty header.
func CommonHeader(headers []header.Dict) header.Dict {
	if len(headers) == 0 {
		return header.Dict{}
	}
	common := header.Dict{}
	for k, v := range headers[0] {
		if _, known := dicomtag.Lookup(k); !known {
			continue
		}
		common[k] = v
	}
	for _, h := range headers[1:] {
		for k, v := range common {
			ov, ok := h[k]
			if !ok || !header.ValueEqual(v, ov) {
				delete(common, k)
			}
		}
	}
	return common
}

// Classify renders a verdict for the set. Files that failed to parse are
// excluded from the common-header computation but still count as members.
func (c *Classifier) Classify(files []header.FileHeader, target header.Dict) Verdict {
	var parsed []header.Dict
	for _, fh := range files {
		if fh.Parsed() {
			parsed = append(parsed, fh.Header)
		}
	}

	if len(target) > 0 && len(parsed) == 0 {
		msg := fmt.Sprintf("Despite having target header metadata, no DICOM header "+
			"information could be parsed from any of the %d files. "+
			"Metadata will not be mapped.", len(files))
		c.log.Warn(msg)
		return Verdict{Safe: false, Reason: ReasonNoHeaderParsed, Message: msg}
	}

	common := CommonHeader(parsed)
	if len(common) == 0 && len(files) > 0 {
		msg := fmt.Sprintf("These %d DICOMs do not share common public DICOM tag "+
			"values and are unlikely to belong to the same series. "+
			"The target header will not be mapped to these files.", len(files))
		c.log.Warn(msg)
		return Verdict{Safe: false, Reason: ReasonNoCommonTags, Message: msg}
	}

	changes, _ := c.engine.Compare(common, target)
	if len(changes)*MajorityDivisor > len(common) {
		msg := fmt.Sprintf("%d of the target header tags are absent or differ from "+
			"the local DICOM file(s) when %d DICOM tags share the same value across "+
			"the series. This indicates that the target header does not match the "+
			"current DICOM(s); they will not be edited.", len(changes), len(common))
		c.log.Warn(msg)
		return Verdict{Safe: false, Reason: ReasonMajorityDiffers, Message: msg}
	}

	return Verdict{Safe: true, Reason: ReasonSafe}
}
