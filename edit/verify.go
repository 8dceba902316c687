package edit

import (
	"log/slog"
	"sort"

	"github.com/radstack/dicomsync/dicomtag"
)

// VerifiedPlan is the output of the speculative verification phase: one
// file, the save configuration that round-trips it, and the updates proven
// settable and writable end-to-end. Only a VerifiedPlan may be committed.
type VerifiedPlan struct {
	Path    string
	Config  SaveConfig
	Updates map[string]any
}

// probeSaveConfig finds the first configuration variant that round-trips the
// file to scratch, caching the result per file. Returns ErrNoSaveConfig when
// even the most permissive variant fails.
func (u *Updater) probeSaveConfig(path string) (SaveConfig, error) {
	if cfg, ok := u.configCache[path]; ok {
		return cfg, nil
	}
	for i, cfg := range u.configs {
		err := u.roundTrip(path, cfg, nil)
		if err == nil {
			u.log.Debug("save configuration selected",
				slog.String("path", path), slog.String("config", cfg.Name))
			u.configCache[path] = cfg
			return cfg, nil
		}
		if i == len(u.configs)-1 {
			u.log.Error("cannot save file under any configuration",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	return SaveConfig{}, ErrNoSaveConfig
}

// verify probes every update keyword against the file individually: a
// keyword unknown to the dictionary fails immediately without a write
// attempt; every other keyword is set and encoded to scratch to confirm the
// file stays writable. Any failed keyword aborts the whole file's plan:
// verification failures never partially commit.
func (u *Updater) verify(path string, cfg SaveConfig, updates map[string]any) (*VerifiedPlan, []string) {
	var failed []string
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, keyword := range keys {
		if _, ok := dicomtag.Lookup(keyword); !ok {
			u.log.Error("unknown DICOM keyword, tag will not be added",
				slog.String("keyword", keyword))
			failed = append(failed, keyword)
			continue
		}
		err := u.roundTrip(path, cfg, map[string]any{keyword: updates[keyword]})
		if err != nil {
			u.log.Error("verification failed setting tag",
				slog.String("keyword", keyword),
				slog.String("path", path),
				slog.String("error", err.Error()))
			failed = append(failed, keyword)
		}
	}

	if len(failed) > 0 {
		u.log.Error("the following tags cannot be updated",
			slog.String("path", path), slog.Any("keywords", failed))
		u.metrics.IncVerificationFailures()
		return nil, failed
	}
	return &VerifiedPlan{Path: path, Config: cfg, Updates: updates}, nil
}
