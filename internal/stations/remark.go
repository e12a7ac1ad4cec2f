package stations

import "strings"

// RemarkKind classifies the 備考 (remarks) column of the station dataset.
type RemarkKind int

const (
	RemarkNone RemarkKind = iota
	RemarkDiscontinued
	RemarkTemporary
	RemarkFormer
	RemarkUnknown
)

const (
	remarkDiscontinued = "廃止"
	remarkTemporary    = "臨時駅"
	remarkFormerPrefix = "旧 "
)

// Remark is a parsed remarks cell. Code is set for RemarkFormer, Raw for
// RemarkUnknown.
type Remark struct {
	Kind RemarkKind
	Code string
	Raw  string
}

// ParseRemark parses a remarks cell.
func ParseRemark(s string) Remark {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Remark{Kind: RemarkNone}
	case s == remarkDiscontinued:
		return Remark{Kind: RemarkDiscontinued}
	case s == remarkTemporary:
		return Remark{Kind: RemarkTemporary}
	case strings.HasPrefix(s, remarkFormerPrefix):
		return Remark{Kind: RemarkFormer, Code: strings.TrimSpace(strings.TrimPrefix(s, remarkFormerPrefix))}
	default:
		return Remark{Kind: RemarkUnknown, Raw: s}
	}
}

// String renders the remark back in dataset form.
func (r Remark) String() string {
	switch r.Kind {
	case RemarkDiscontinued:
		return remarkDiscontinued
	case RemarkTemporary:
		return remarkTemporary
	case RemarkFormer:
		return remarkFormerPrefix + r.Code
	case RemarkUnknown:
		return r.Raw
	default:
		return ""
	}
}
