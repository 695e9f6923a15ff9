package ledger

import "xnet.company/lockup/internal/types"

// Contains reports whether list holds a beneficiary equal to b in every
// field. Addresses are compared as raw strings.
func Contains(list []types.Beneficiary, b types.Beneficiary) bool {
	for _, existing := range list {
		if existing == b {
			return true
		}
	}
	return false
}

// MergeResult lists what a merge did, in input order.
type MergeResult struct {
	Inserted   []types.Beneficiary
	Duplicates []types.Beneficiary
}

// Merge appends every beneficiary of src that dst does not already hold,
// keeping insertion order, and resets dst.Count. Merging the same list
// again is a no-op.
func Merge(dst *CandidateList, src []types.Beneficiary) MergeResult {
	var res MergeResult
	for _, b := range src {
		if Contains(dst.Beneficiaries, b) {
			res.Duplicates = append(res.Duplicates, b)
			continue
		}
		dst.Beneficiaries = append(dst.Beneficiaries, b)
		res.Inserted = append(res.Inserted, b)
	}
	dst.Count = len(dst.Beneficiaries)
	return res
}
