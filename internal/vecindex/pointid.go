package vecindex

import (
	"fmt"

	"github.com/google/uuid"
)

// pointNamespace anchors deterministic point ids. Changing it orphans every
// existing point in the index.
var pointNamespace = uuid.MustParse("8f7a2c1e-5d34-4b6a-9e21-c0d8b5f3a914")

// PointID derives the stable vector id for one chunk from its source kind,
// source id and ordinal. The same chunk always maps to the same point, which
// is what makes re-ingestion an overwrite instead of a duplicate.
func PointID(sourceKind, sourceID string, ordinal int) string {
	name := fmt.Sprintf("%s:%s:%d", sourceKind, sourceID, ordinal)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}
