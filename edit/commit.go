package edit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/suyashkumar/dicom"
)

// commit re-opens the real file under the plan's proven configuration,
// assigns every verified value, and saves in place. Runs only after
// verification has succeeded for every update key on the file.
func (u *Updater) commit(plan *VerifiedPlan) error {
	ds, err := dicom.ParseFile(plan.Path, nil, plan.Config.ParseOptions...)
	if err != nil {
		return fmt.Errorf("decoding %s for commit: %w", plan.Path, err)
	}
	for keyword, value := range plan.Updates {
		if err := setElement(&ds, keyword, value); err != nil {
			return fmt.Errorf("assigning %s: %w", keyword, err)
		}
	}
	sortElements(&ds)

	// Encode beside the original and rename over it so a failed save never
	// truncates the artifact.
	tmp := filepath.Join(filepath.Dir(plan.Path), "."+uuid.NewString()+".dcm.tmp")
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating commit destination: %w", err)
	}
	if err := dicom.Write(out, ds, plan.Config.WriteOptions...); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding %s: %w", plan.Path, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing commit destination: %w", err)
	}
	if err := os.Rename(tmp, plan.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", plan.Path, err)
	}
	u.log.Debug("successfully saved edited file", slog.String("path", plan.Path))
	return nil
}
