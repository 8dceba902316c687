package edit

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/radstack/dicomsync/dicomtag"
	"github.com/radstack/dicomsync/diff"
	"github.com/radstack/dicomsync/header"
	"github.com/radstack/dicomsync/safety"
)

// ErrUnsafe marks a batch update rejected by the safety classifier. The
// original files are untouched.
var ErrUnsafe = errors.New("update rejected as unsafe")

// ErrNoUsableResult marks a batch where updates were required but not a
// single file could be verified and committed.
var ErrNoUsableResult = errors.New("no file could be verified and updated")

// Options configures an Updater. The zero value uses slog.Default, no
// metrics, the system temp directory for scratch writes, and the default
// save-configuration order.
type Options struct {
	Logger     *slog.Logger
	Metrics    Metrics
	ScratchDir string
	Configs    []SaveConfig
}

// Updater reconciles a set of DICOM files believed to belong to one series
// against a target header. Extraction, classification, and writing proceed
// in file-list order; derived state is computed once and cached.
type Updater struct {
	paths  []string
	target header.Dict

	log        *slog.Logger
	metrics    Metrics
	scratchDir string
	configs    []SaveConfig

	extractor  *header.Extractor
	engine     *diff.Engine
	classifier *safety.Classifier

	// roundTrip probes a speculative decode/apply/encode cycle against
	// scratch; replaceable in tests to inject failures.
	roundTrip   func(path string, cfg SaveConfig, updates map[string]any) error
	configCache map[string]SaveConfig

	files     []header.FileHeader
	filesDone bool

	common     header.Dict
	commonDone bool

	changes     []diff.Change
	changesDone bool

	updates     map[string]any
	updatesDone bool

	verdict     *safety.Verdict
}

// NewUpdater creates an updater for the given file paths and target header.
func NewUpdater(paths []string, target header.Dict, opts Options) *Updater {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = Noop{}
	}
	scratch := opts.ScratchDir
	if scratch == "" {
		scratch = os.TempDir()
	}
	configs := opts.Configs
	if configs == nil {
		configs = SaveConfigs()
	}
	u := &Updater{
		paths:       paths,
		target:      target,
		log:         logger,
		metrics:     metrics,
		scratchDir:  scratch,
		configs:     configs,
		extractor:   header.NewExtractor(logger),
		engine:      diff.NewEngine(logger),
		classifier:  safety.NewClassifier(logger),
		configCache: map[string]SaveConfig{},
	}
	u.roundTrip = func(path string, cfg SaveConfig, updates map[string]any) error {
		return roundTrip(path, cfg, updates, u.scratchDir)
	}
	return u
}

// Files extracts every file in the set, once.
func (u *Updater) Files() []header.FileHeader {
	if !u.filesDone {
		u.files = u.extractor.ExtractAll(u.paths)
		u.filesDone = true
	}
	return u.files
}

// NonDICOMPaths lists set members that yielded no parseable header. They are
// excluded from the common-header computation but reported to the caller.
func (u *Updater) NonDICOMPaths() []string {
	var out []string
	for _, fh := range u.Files() {
		if !fh.Parsed() {
			out = append(out, fh.Path)
		}
	}
	return out
}

// CommonHeader is the intersection of tag values identical across every
// parsed file in the set.
func (u *Updater) CommonHeader() header.Dict {
	if !u.commonDone {
		var parsed []header.Dict
		for _, fh := range u.Files() {
			if fh.Parsed() {
				parsed = append(parsed, fh.Header)
			}
		}
		u.common = safety.CommonHeader(parsed)
		u.commonDone = true
	}
	return u.common
}

// localKeywords is the union of keywords present in any parsed file, as
// opposed to the intersection the common header represents.
func (u *Updater) localKeywords() map[string]struct{} {
	out := map[string]struct{}{}
	for _, fh := range u.Files() {
		if !fh.Parsed() {
			continue
		}
		for key := range fh.Header {
			out[key] = struct{}{}
		}
	}
	return out
}

// Changes diffs the common header against the target header.
func (u *Updater) Changes() []diff.Change {
	if !u.changesDone {
		u.changes, _ = u.engine.Compare(u.CommonHeader(), u.target)
		u.changesDone = true
	}
	return u.changes
}

// UpdateSet is the keyword→value map to write, with non-editable VRs
// filtered out. Filtered keywords are reported, not silently dropped.
func (u *Updater) UpdateSet() map[string]any {
	if !u.updatesDone {
		u.updates = map[string]any{}
		local := u.localKeywords()
		var excluded []string
		for _, change := range u.Changes() {
			rule, ok := dicomtag.Lookup(change.Keyword)
			if ok && !dicomtag.Editable(rule.VR) {
				excluded = append(excluded, change.Keyword)
				continue
			}
			if change.Kind == diff.Insert {
				// Absent from the common header but present in some file:
				// the value varies per instance and must not be written
				// uniformly across the set.
				if _, varies := local[change.Keyword]; varies {
					u.log.Warn("tag does not hold a single value across the set; not updating",
						slog.String("keyword", change.Keyword))
					continue
				}
			}
			u.updates[change.Keyword] = change.Target
		}
		if len(excluded) > 0 {
			u.log.Warn(fmt.Sprintf("%d DICOM tags have VRs for which editing is not "+
				"supported; their values will not be edited despite differing", len(excluded)),
				slog.Any("keywords", excluded))
		}
		u.updatesDone = true
	}
	return u.updates
}

// Verdict runs the safety classifier over the whole set, once.
func (u *Updater) Verdict() safety.Verdict {
	if u.verdict == nil {
		v := u.classifier.Classify(u.Files(), u.target)
		u.verdict = &v
	}
	return *u.verdict
}

// Update applies the target header to every parseable file in the set.
// Returns the paths successfully updated (all parseable paths when there was
// nothing to do). Per-file verification and commit failures are logged and
// counted without aborting the rest of the set; ErrUnsafe and
// ErrNoUsableResult abort the batch with the originals untouched.
func (u *Updater) Update() ([]string, error) {
	verdict := u.Verdict()
	if !verdict.Safe {
		u.metrics.IncUnsafeVerdicts(string(verdict.Reason))
		return nil, fmt.Errorf("%w: %s", ErrUnsafe, verdict.Reason)
	}

	var dicomPaths []string
	for _, fh := range u.Files() {
		if fh.Parsed() {
			dicomPaths = append(dicomPaths, fh.Path)
		}
	}

	updates := u.UpdateSet()
	if len(updates) == 0 {
		u.log.Info("no DICOM tags to update")
		return dicomPaths, nil
	}

	if err := os.MkdirAll(u.scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}

	var updated []string
	for _, path := range dicomPaths {
		cfg, err := u.probeSaveConfig(path)
		if err != nil {
			continue
		}
		plan, _ := u.verify(path, cfg, updates)
		if plan == nil {
			continue
		}
		if err := u.commit(plan); err != nil {
			u.log.Error("an error was raised when attempting to save",
				slog.String("path", path), slog.String("error", err.Error()))
			u.metrics.IncCommitFailures()
			continue
		}
		u.metrics.IncFilesUpdated()
		updated = append(updated, path)
	}

	if len(updated) == 0 {
		return nil, fmt.Errorf("%w (%d files)", ErrNoUsableResult, len(dicomPaths))
	}
	if len(updated) < len(dicomPaths) {
		u.log.Warn(fmt.Sprintf("failed to update %d of %d DICOMs",
			len(dicomPaths)-len(updated), len(dicomPaths)))
	} else {
		u.log.Info(fmt.Sprintf("successfully updated %d DICOMs", len(updated)))
	}
	return updated, nil
}
