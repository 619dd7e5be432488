// Package vdm defines the boundary to the Versioned Diagnostic Monitoring
// page reader. Raw page parsing lives behind the API interface; the driver
// only aggregates the nested snapshot it returns.
package vdm

// Subtype indexes the nine sample positions carried per observable and
// lane: the real-time value, four thresholds and four latched flags.
type Subtype int

const (
	SubtypeRealValue Subtype = iota
	SubtypeHighAlarmThreshold
	SubtypeLowAlarmThreshold
	SubtypeHighWarnThreshold
	SubtypeLowWarnThreshold
	SubtypeHighAlarmFlag
	SubtypeLowAlarmFlag
	SubtypeHighWarnFlag
	SubtypeLowWarnFlag

	numSubtypes
)

// NumSubtypes is the width of a fully populated sample row.
const NumSubtypes = int(numSubtypes)

// Suffix returns the output key suffix for threshold and flag subtypes,
// and "" for SubtypeRealValue.
func (s Subtype) Suffix() string {
	switch s {
	case SubtypeHighAlarmThreshold, SubtypeHighAlarmFlag:
		return "halarm"
	case SubtypeLowAlarmThreshold, SubtypeLowAlarmFlag:
		return "lalarm"
	case SubtypeHighWarnThreshold, SubtypeHighWarnFlag:
		return "hwarn"
	case SubtypeLowWarnThreshold, SubtypeLowWarnFlag:
		return "lwarn"
	default:
		return ""
	}
}

// FieldOption selects which sample groups a snapshot read should decode.
type FieldOption uint8

const (
	OptionRealValue FieldOption = 1 << iota
	OptionThreshold
	OptionFlag

	OptionAll = OptionRealValue | OptionThreshold | OptionFlag
)

// Snapshot is the nested structure the page reader produces: observable
// name, then 1-based lane, then subtype-indexed samples. Sample values are
// float64 for real values and thresholds, bool for flags. Rows may be
// short or entirely absent for observables a module does not implement;
// consumers treat every lookup as optional.
type Snapshot map[string]map[int][]any

// Sample returns the sample at (observable, lane, subtype), reporting
// whether it was present with the expected shape.
func (s Snapshot) Sample(observable string, lane int, sub Subtype) (any, bool) {
	lanes, ok := s[observable]
	if !ok {
		return nil, false
	}
	row, ok := lanes[lane]
	if !ok || int(sub) >= len(row) || row[sub] == nil {
		return nil, false
	}
	return row[sub], true
}

// API is the VDM page-reader collaborator. Implementations are not safe
// for concurrent use against the same physical port.
type API interface {
	// ReadAllPages decodes every VDM page covered by opt into a snapshot.
	ReadAllPages(opt FieldOption) (Snapshot, error)
}
