// Package diff compares a local normalized DICOM header against a target
// header and produces the ordered list of keywords requiring insertion or
// update, together with a human-auditable message log. Sequence-typed
// keywords are never eligible for update.
package diff

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/radstack/dicomsync/dicomtag"
	"github.com/radstack/dicomsync/header"
)

// Kind distinguishes the two change variants.
type Kind int

const (
	// Insert adds a keyword absent from the local header.
	Insert Kind = iota
	// Update replaces a differing local value with the target value.
	Update
)

func (k Kind) String() string {
	if k == Insert {
		return "insert"
	}
	return "update"
}

// Change is one diff entry. Local is set for updates only. Target carries the
// normalized target value, with unique identifiers already coerced to string.
type Change struct {
	Keyword string
	Kind    Kind
	Target  any
	Local   any
}

// instanceUIDKey triggers the cross-check warning when it differs: two
// headers disagreeing on it may not describe the same physical file.
const instanceUIDKey = "SOPInstanceUID"

// Engine compares headers. Messages are both logged and returned so callers
// can audit every branch taken.
type Engine struct {
	log *slog.Logger
}

// NewEngine creates a diff engine. A nil logger falls back to slog.Default.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{log: logger}
}

// Compare diffs local against target, per target keyword in sorted order.
// The target is first re-normalized for value multiplicity so that older
// stored headers using bare scalars for multi-valued keywords compare
// correctly; the returned changes carry the normalized values.
func (e *Engine) Compare(local, target header.Dict) ([]Change, []string) {
	target = target.Clone()
	header.NormalizeVM(target, e.log)

	var changes []Change
	var messages []string
	matched := true
	say := func(msg string) {
		messages = append(messages, msg)
		e.log.Warn(msg)
	}

	for _, key := range target.Keys() {
		targetVal := target[key]
		rule, known := dicomtag.Lookup(key)
		if !known {
			say(fmt.Sprintf("The proposed key, %q, is not a valid DICOM tag. "+
				"It will not be considered to update the DICOM file.", key))
			continue
		}
		if dicomtag.IsUID(rule.VR) {
			targetVal = coerceUID(targetVal)
			target[key] = targetVal
		}

		localVal, present := local[key]

		if dicomtag.IsSequence(rule.VR) {
			switch {
			case !present:
				say(fmt.Sprintf("Sequence (SQ) DICOM tags are not modified by this tool\n"+
					"%s will not be inserted into the DICOM file(s)", key))
				matched = false
			case !header.ValueEqual(localVal, targetVal):
				say(fmt.Sprintf("Sequence (SQ) DICOM tags are not modified by this tool\n"+
					"Any difference in %s is not accounted for.", key))
				matched = false
			}
			continue
		}

		if !present {
			say(fmt.Sprintf("MISSING key: %s not found in local header. \n"+
				"INSERTING valid tag: %s into local DICOM file. ", key, key))
			changes = append(changes, Change{Keyword: key, Kind: Insert, Target: targetVal})
			continue
		}

		if header.ValueEqual(localVal, targetVal) {
			continue
		}
		// Legacy representation compatibility: a bare scalar and a
		// one-element list holding the same scalar are the same value.
		if header.ScalarListEquivalent(localVal, targetVal) {
			continue
		}

		if key == instanceUIDKey {
			say("WARNING: SOPInstanceUID does not match across the headers of individual DICOM files!!!")
		}
		say(fmt.Sprintf("MISMATCH in key: %s", key))
		say(fmt.Sprintf("local  = %v", localVal))
		say(fmt.Sprintf("target = %v", targetVal))
		changes = append(changes, Change{Keyword: key, Kind: Update, Target: targetVal, Local: localVal})
	}

	if len(changes) > 0 || !matched {
		say("Local DICOM header and target header do NOT match...")
	}
	return changes, messages
}

// coerceUID renders a unique identifier that arrived as a JSON number back
// into its canonical string form.
func coerceUID(v any) any {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return v
	}
}
