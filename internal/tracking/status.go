package tracking

import "strings"

// errorVocabulary are the status fragments that mark a record as needing
// attention in the issues view.
var errorVocabulary = []string{
	"exception",
	"error",
	"issue",
	"fail",
	"return",
	"void",
}

// EffectiveStatus returns the status shown to list consumers: the carrier
// status when present, otherwise the order status.
func (r *Record) EffectiveStatus() string {
	if r.UPSStatus != "" {
		return r.UPSStatus
	}
	return r.Status
}

// IsDelivered reports whether the record is in the terminal delivered state,
// either via the Delivered flag or a carrier status containing "delivered".
func (r *Record) IsDelivered() bool {
	if r.Delivered {
		return true
	}
	return strings.Contains(strings.ToLower(r.UPSStatus), "delivered")
}

// MatchesStatus reports whether the record's effective status contains the
// given filter, case-insensitively. An empty filter matches everything.
func (r *Record) MatchesStatus(filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(
		strings.ToLower(r.EffectiveStatus()),
		strings.ToLower(filter),
	)
}

// HasErrorStatus reports whether the record's effective status matches the
// error vocabulary.
func (r *Record) HasErrorStatus() bool {
	status := strings.ToLower(r.EffectiveStatus())
	for _, term := range errorVocabulary {
		if strings.Contains(status, term) {
			return true
		}
	}
	return false
}
