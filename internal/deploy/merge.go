package deploy

import (
	"errors"
	"fmt"

	"xnet.company/lockup/internal/config"
	"xnet.company/lockup/internal/ledger"
)

// Merge folds the candidates in sourcePath into the candidate list at
// targetPath, skipping exact duplicates, and saves the target. A missing
// target starts empty; a missing source is a configuration error.
func (d *Driver) Merge(targetPath, sourcePath string) (ledger.MergeResult, error) {
	d.defaults()
	p := d.Printer

	target, err := ledger.LoadCandidates(targetPath)
	if errors.Is(err, ledger.ErrAbsent) {
		p.AmberLog("empty existing beneficiaries list, making new one")
		target, err = ledger.NewCandidateList(), nil
	}
	if err != nil {
		d.Recorder.Assert(false, "consistency check on "+targetPath, "")
		return ledger.MergeResult{}, err
	}

	source, err := ledger.LoadCandidates(sourcePath)
	if errors.Is(err, ledger.ErrAbsent) {
		p.AmberLog("empty new beneficiaries file, nothing to do")
		return ledger.MergeResult{}, &config.Error{Key: sourcePath, Reason: "merge file not found, nothing to do", Err: err}
	}
	if err != nil {
		d.Recorder.Assert(false, "consistency check on "+sourcePath, "")
		return ledger.MergeResult{}, err
	}

	res := ledger.Merge(target, source.Beneficiaries)
	for _, b := range res.Duplicates {
		p.AmberLog("duplicate found: " + b.String())
	}
	for _, b := range res.Inserted {
		p.GreenLog("no match found - inserting " + b.String())
	}

	if err := ledger.Save(targetPath, target); err != nil {
		return res, fmt.Errorf("save merged list: %w", err)
	}
	p.GreenLog("done with beneficiaries updates")
	return res, nil
}
