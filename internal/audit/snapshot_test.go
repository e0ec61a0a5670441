package audit

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "leaddesk/pkg/domain-errors"
)

func TestSnapshotMarshalPreservesInsertionOrder(t *testing.T) {
	snap := NewSnapshot().
		Set("zeta", String("z")).
		Set("alpha", Int(1)).
		Set("mid", Bool(true))

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z","alpha":1,"mid":true}`, string(data))
}

func TestSnapshotSetOverwritesInPlace(t *testing.T) {
	snap := NewSnapshot().
		Set("status", String("new")).
		Set("notes", Null()).
		Set("status", String("contacted"))

	require.Equal(t, 2, snap.Len())

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Equal(t, `{"status":"contacted","notes":null}`, string(data))
}

func TestSnapshotTimeNormalizedToUTC(t *testing.T) {
	loc := time.FixedZone("VET", -4*60*60)
	local := time.Date(2024, 5, 10, 9, 30, 0, 0, loc)

	data, err := json.Marshal(NewSnapshot().Set("created_at", Time(local)))
	require.NoError(t, err)
	assert.Equal(t, `{"created_at":"2024-05-10T13:30:00Z"}`, string(data))
}

func TestSnapshotNilPointersBecomeNull(t *testing.T) {
	data, err := json.Marshal(NewSnapshot().
		Set("company", StringPtr(nil)).
		Set("assigned_to", IntPtr(nil)))
	require.NoError(t, err)
	assert.Equal(t, `{"company":null,"assigned_to":null}`, string(data))
}

func TestSnapshotNonStorableFloatFailsSerialization(t *testing.T) {
	for name, f := range map[string]float64{
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
		"neg_inf": math.Inf(-1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := json.Marshal(NewSnapshot().Set("score", Float(f)))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeSerialization),
				"expected serialization code, got %v", err)
		})
	}
}
