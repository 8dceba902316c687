// Package dicomtag exposes the DICOM public tag dictionary as a read-only
// lookup service: keyword to value representation (VR) and value multiplicity
// (VM), plus the VR family classifications the rest of the module keys off.
package dicomtag

import (
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// ValueDelimiter separates the members of a multi-valued DICOM element.
// String VRs may not contain it as data, which is why single-VM string
// elements that decode as multiple values are rejoined with it.
const ValueDelimiter = `\`

// Rule is the dictionary fact for one keyword.
type Rule struct {
	Keyword string
	Tag     tag.Tag
	VR      string
	VM      string
}

// Lookup returns the rule for a keyword, or false when the keyword is not a
// public DICOM tag. Unknown keywords are a non-fatal condition everywhere in
// this module.
func Lookup(keyword string) (Rule, bool) {
	info, err := tag.FindByName(keyword)
	if err != nil {
		return Rule{}, false
	}
	return Rule{Keyword: info.Name, Tag: info.Tag, VR: info.VR, VM: info.VM}, true
}

// LookupTag returns the rule for a numeric tag. Private and retired tags
// without a dictionary entry return false.
func LookupTag(t tag.Tag) (Rule, bool) {
	info, err := tag.Find(t)
	if err != nil || info.Name == "" {
		return Rule{}, false
	}
	return Rule{Keyword: info.Name, Tag: info.Tag, VR: info.VR, VM: info.VM}, true
}

// IsSequence reports whether the VR denotes a nested sequence group.
func IsSequence(vr string) bool { return vr == "SQ" }

// SingleValued reports whether the VM permits exactly one value.
func SingleValued(vm string) bool { return vm == "1" }

// NonEditableVRs are value representations that are known-unsafe to
// blind-write: binary "other float", sequences, and unique identifiers.
// Diff entries for these VRs are reported but never committed.
var NonEditableVRs = map[string]struct{}{
	"OF": {},
	"SQ": {},
	"UI": {},
}

// Editable reports whether a keyword's VR permits tag writes.
func Editable(vr string) bool {
	_, excluded := NonEditableVRs[vr]
	return !excluded
}

// rejoinExcluded lists VR families for which the value delimiter is legal as
// data (binary, sequence, unbounded text), so a multi-valued decode must not
// be rejoined into one string.
var rejoinExcluded = map[string]struct{}{
	"UT": {}, "ST": {}, "LT": {},
	"FL": {}, "FD": {}, "AT": {},
	"OB": {}, "OW": {}, "OF": {},
	"SL": {}, "SQ": {}, "SS": {}, "UL": {}, "UN": {},
}

// RejoinableVR reports whether a single-VM element with this VR that decoded
// as multiple raw values should be rejoined with ValueDelimiter. Unsigned
// short style VRs ("US" and its compound forms) are excluded along with the
// binary and sequence families.
func RejoinableVR(vr string) bool {
	if strings.Contains(vr, "US") {
		return false
	}
	_, excluded := rejoinExcluded[vr]
	return !excluded
}

// intVRs and floatVRs hold their values as binary numbers rather than as
// delimited strings.
var intVRs = map[string]struct{}{
	"US": {}, "UL": {}, "SS": {}, "SL": {}, "AT": {},
}

var floatVRs = map[string]struct{}{
	"FL": {}, "FD": {},
}

// IsIntVR reports whether the VR stores binary integer values.
func IsIntVR(vr string) bool {
	_, ok := intVRs[vr]
	return ok
}

// IsFloatVR reports whether the VR stores binary floating point values.
func IsFloatVR(vr string) bool {
	_, ok := floatVRs[vr]
	return ok
}

// IsUID reports whether the VR is a unique identifier.
func IsUID(vr string) bool { return vr == "UI" }
