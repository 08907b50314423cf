package postgres

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/prover-cli/internal/domain/prover"
)

func TestRowDecoder(t *testing.T) {
	t.Run("valid row", func(t *testing.T) {
		d := newRowDecoder("prover_jobs_fri")
		batch := d.batchNumber(100)
		attempts := d.uint32FromInt16("attempts", 3)
		round := d.round(2)
		version := d.protocolVersion(pgtype.Int4{Int32: 24, Valid: true})
		patch := d.patch(pgtype.Int4{Int32: 1, Valid: true})

		require.NoError(t, d.err)
		assert.Equal(t, prover.BatchNumber(100), batch)
		assert.Equal(t, uint32(3), attempts)
		assert.Equal(t, prover.NodeAggregation, round)
		require.NotNil(t, version)
		assert.Equal(t, prover.ProtocolVersionID(24), *version)
		require.NotNil(t, patch)
		assert.Equal(t, prover.VersionPatch(1), *patch)
	})

	tests := []struct {
		name       string
		decode     func(d *rowDecoder)
		wantColumn string
		wantBatch  bool
	}{
		{
			name:       "negative batch number",
			decode:     func(d *rowDecoder) { d.batchNumber(-1) },
			wantColumn: "l1_batch_number",
		},
		{
			name:       "batch number beyond uint32",
			decode:     func(d *rowDecoder) { d.batchNumber(math.MaxUint32 + 1) },
			wantColumn: "l1_batch_number",
		},
		{
			name: "negative attempts",
			decode: func(d *rowDecoder) {
				d.batchNumber(7)
				d.uint32FromInt16("attempts", -2)
			},
			wantColumn: "attempts",
			wantBatch:  true,
		},
		{
			name: "round out of range",
			decode: func(d *rowDecoder) {
				d.batchNumber(7)
				d.round(5)
			},
			wantColumn: "aggregation_round",
			wantBatch:  true,
		},
		{
			name: "unknown status",
			decode: func(d *rowDecoder) {
				d.batchNumber(7)
				d.witnessStatus("exploded")
			},
			wantColumn: "status",
			wantBatch:  true,
		},
		{
			name: "protocol version too large",
			decode: func(d *rowDecoder) {
				d.batchNumber(7)
				d.protocolVersion(pgtype.Int4{Int32: math.MaxInt32, Valid: true})
			},
			wantColumn: "protocol_version",
			wantBatch:  true,
		},
		{
			name: "negative patch",
			decode: func(d *rowDecoder) {
				d.batchNumber(7)
				d.patch(pgtype.Int4{Int32: -1, Valid: true})
			},
			wantColumn: "protocol_version_patch",
			wantBatch:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newRowDecoder("witness_inputs_fri")
			tt.decode(d)
			require.Error(t, d.err)

			var de *prover.DecodeError
			require.True(t, errors.As(d.err, &de))
			assert.Equal(t, "witness_inputs_fri", de.Table)
			assert.Equal(t, tt.wantColumn, de.Column)
			if tt.wantBatch {
				require.NotNil(t, de.BatchNumber)
				assert.Equal(t, prover.BatchNumber(7), *de.BatchNumber)
			} else {
				assert.Nil(t, de.BatchNumber)
			}
		})
	}

	t.Run("first failure sticks", func(t *testing.T) {
		d := newRowDecoder("witness_inputs_fri")
		d.uint32FromInt16("attempts", -1)
		d.witnessStatus("bogus")

		var de *prover.DecodeError
		require.True(t, errors.As(d.err, &de))
		assert.Equal(t, "attempts", de.Column)
	})

	t.Run("nulls decode to nil", func(t *testing.T) {
		d := newRowDecoder("witness_inputs_fri")
		assert.Nil(t, d.protocolVersion(pgtype.Int4{}))
		assert.Nil(t, d.patch(pgtype.Int4{}))
		assert.Nil(t, d.optUint32FromInt8("id", pgtype.Int8{}))
		assert.Nil(t, optText(pgtype.Text{}))
		assert.NoError(t, d.err)
	})
}

func TestOptDuration(t *testing.T) {
	assert.Nil(t, optDuration(pgtype.Time{}))

	d := optDuration(pgtype.Time{Microseconds: int64(90 * time.Second / time.Microsecond), Valid: true})
	require.NotNil(t, d)
	assert.Equal(t, 90*time.Second, *d)
}
