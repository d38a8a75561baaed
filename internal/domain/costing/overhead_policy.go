package costing

import (
	"fmt"
	"strings"
)

// OverheadPolicy decides which overhead center absorbs overhead when several are active
type OverheadPolicy string

const (
	// OverheadPolicyEarliestCreated picks the oldest center, lowest id on ties
	OverheadPolicyEarliestCreated OverheadPolicy = "earliest_created"
	// OverheadPolicyLowestID picks the center with the lowest id
	OverheadPolicyLowestID OverheadPolicy = "lowest_id"
	// OverheadPolicySingle refuses to compute when more than one is active
	OverheadPolicySingle OverheadPolicy = "single"
)

// ParseOverheadPolicy parses a policy name; an empty name means earliest_created
func ParseOverheadPolicy(s string) (OverheadPolicy, error) {
	switch p := OverheadPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return OverheadPolicyEarliestCreated, nil
	case OverheadPolicyEarliestCreated, OverheadPolicyLowestID, OverheadPolicySingle:
		return p, nil
	default:
		return "", fmt.Errorf("unknown overhead policy %q, want %s, %s or %s",
			s, OverheadPolicyEarliestCreated, OverheadPolicyLowestID, OverheadPolicySingle)
	}
}
