package docstore

import (
	"fmt"
	"sort"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
)

func looseEqual(a, b interface{}) bool {
	if a == b {
		return true
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// sortRecords orders by the string form of a field. RFC3339 timestamps sort
// correctly under lexicographic comparison.
func sortRecords(records []model.Record, field string, desc bool) {
	sort.SliceStable(records, func(i, j int) bool {
		a := fmt.Sprintf("%v", records[i][field])
		b := fmt.Sprintf("%v", records[j][field])
		if desc {
			return a > b
		}
		return a < b
	})
}
