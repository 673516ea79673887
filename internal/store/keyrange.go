package store

import "strings"

// KeyRange restricts an index scan. The zero value matches every record.
type KeyRange struct {
	lower, upper         any
	hasLower, hasUpper   bool
	lowerOpen, upperOpen bool
}

// Only matches records whose index value equals v.
func Only(v any) KeyRange {
	return KeyRange{lower: v, upper: v, hasLower: true, hasUpper: true}
}

// LowerBound matches values above v; open excludes v itself.
func LowerBound(v any, open bool) KeyRange {
	return KeyRange{lower: v, hasLower: true, lowerOpen: open}
}

// UpperBound matches values below v; open excludes v itself.
func UpperBound(v any, open bool) KeyRange {
	return KeyRange{upper: v, hasUpper: true, upperOpen: open}
}

// Bound matches values between lo and hi.
func Bound(lo, hi any, loOpen, hiOpen bool) KeyRange {
	return KeyRange{
		lower:     lo,
		upper:     hi,
		hasLower:  true,
		hasUpper:  true,
		lowerOpen: loOpen,
		upperOpen: hiOpen,
	}
}

// where renders the range as a SQL condition on col.
func (r KeyRange) where(col string) (string, []any) {
	var conds []string
	var args []any

	if r.hasLower && r.hasUpper && !r.lowerOpen && !r.upperOpen && r.lower == r.upper {
		return col + " = ?", []any{r.lower}
	}

	if r.hasLower {
		op := " >= ?"
		if r.lowerOpen {
			op = " > ?"
		}
		conds = append(conds, col+op)
		args = append(args, r.lower)
	}
	if r.hasUpper {
		op := " <= ?"
		if r.upperOpen {
			op = " < ?"
		}
		conds = append(conds, col+op)
		args = append(args, r.upper)
	}

	return strings.Join(conds, " AND "), args
}
