package vecindex

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("transcript", "meeting-42", 0)
	b := PointID("transcript", "meeting-42", 0)

	assert.Equal(t, a, b)
	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestPointIDDistinct(t *testing.T) {
	ids := map[string]bool{
		PointID("transcript", "meeting-42", 0): true,
		PointID("transcript", "meeting-42", 1): true,
		PointID("transcript", "meeting-43", 0): true,
		PointID("document", "meeting-42", 0):   true,
	}

	assert.Len(t, ids, 4)
}
