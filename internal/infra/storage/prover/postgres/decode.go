package postgres

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ahrav/prover-cli/internal/domain/prover"
)

var (
	errNegative   = errors.New("negative value")
	errOutOfRange = errors.New("value out of range")
)

// rowDecoder converts the loosely typed columns of one row into domain types.
// The first failure sticks: later conversions become no-ops and err reports
// the original failure.
type rowDecoder struct {
	table string
	batch *prover.BatchNumber
	err   error
}

func newRowDecoder(table string) *rowDecoder { return &rowDecoder{table: table} }

func (d *rowDecoder) fail(column string, value any, err error) {
	if d.err == nil {
		d.err = prover.NewDecodeError(d.table, column, d.batch, value, err)
	}
}

// batchNumber decodes l1_batch_number and remembers it for later errors.
func (d *rowDecoder) batchNumber(v int64) prover.BatchNumber {
	if d.err != nil {
		return 0
	}
	if v < 0 || v > math.MaxUint32 {
		d.fail("l1_batch_number", v, errOutOfRange)
		return 0
	}
	b := prover.BatchNumber(v)
	d.batch = &b
	return b
}

func (d *rowDecoder) uint32FromInt16(column string, v int16) uint32 {
	if d.err != nil {
		return 0
	}
	if v < 0 {
		d.fail(column, v, errNegative)
		return 0
	}
	return uint32(v)
}

func (d *rowDecoder) uint32FromInt32(column string, v int32) uint32 {
	if d.err != nil {
		return 0
	}
	if v < 0 {
		d.fail(column, v, errNegative)
		return 0
	}
	return uint32(v)
}

func (d *rowDecoder) uint32FromInt64(column string, v int64) uint32 {
	if d.err != nil {
		return 0
	}
	if v < 0 || v > math.MaxUint32 {
		d.fail(column, v, errOutOfRange)
		return 0
	}
	return uint32(v)
}

func (d *rowDecoder) optUint32FromInt2(column string, v pgtype.Int2) *uint32 {
	if !v.Valid {
		return nil
	}
	u := d.uint32FromInt16(column, v.Int16)
	return &u
}

func (d *rowDecoder) optUint32FromInt4(column string, v pgtype.Int4) *uint32 {
	if !v.Valid {
		return nil
	}
	u := d.uint32FromInt32(column, v.Int32)
	return &u
}

func (d *rowDecoder) optUint32FromInt8(column string, v pgtype.Int8) *uint32 {
	if !v.Valid {
		return nil
	}
	u := d.uint32FromInt64(column, v.Int64)
	return &u
}

func (d *rowDecoder) round(v int16) prover.AggregationRound {
	if d.err != nil {
		return 0
	}
	r, err := prover.AggregationRoundFromInt16(v)
	if err != nil {
		d.fail("aggregation_round", v, err)
		return 0
	}
	return r
}

func (d *rowDecoder) protocolVersion(v pgtype.Int4) *prover.ProtocolVersionID {
	if !v.Valid || d.err != nil {
		return nil
	}
	if v.Int32 < 0 {
		d.fail("protocol_version", v.Int32, errNegative)
		return nil
	}
	id, err := prover.NewProtocolVersionID(uint64(v.Int32))
	if err != nil {
		d.fail("protocol_version", v.Int32, err)
		return nil
	}
	return &id
}

func (d *rowDecoder) patch(v pgtype.Int4) *prover.VersionPatch {
	if !v.Valid {
		return nil
	}
	p := prover.VersionPatch(d.uint32FromInt32("protocol_version_patch", v.Int32))
	return &p
}

func (d *rowDecoder) witnessStatus(v string) prover.WitnessJobStatus {
	if d.err != nil {
		return ""
	}
	st, err := prover.ParseWitnessJobStatus(v)
	if err != nil {
		d.fail("status", v, err)
	}
	return st
}

func (d *rowDecoder) proverStatus(v string) prover.ProverJobStatus {
	if d.err != nil {
		return ""
	}
	st, err := prover.ParseProverJobStatus(v)
	if err != nil {
		d.fail("status", v, err)
	}
	return st
}

func (d *rowDecoder) compressionStatus(v string) prover.CompressionJobStatus {
	if d.err != nil {
		return ""
	}
	st, err := prover.ParseCompressionJobStatus(v)
	if err != nil {
		d.fail("status", v, err)
	}
	return st
}

func optText(v pgtype.Text) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func optInt32(v pgtype.Int4) *int32 {
	if !v.Valid {
		return nil
	}
	i := v.Int32
	return &i
}

func optTimestamp(v pgtype.Timestamp) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// optDuration converts a TIME column, used by the pipeline to store the wall
// time of a job, into a duration.
func optDuration(v pgtype.Time) *time.Duration {
	if !v.Valid {
		return nil
	}
	d := time.Duration(v.Microseconds) * time.Microsecond
	return &d
}

// timelineColumns are scanned into by every job query, in this order.
type timelineColumns struct {
	createdAt           time.Time
	updatedAt           time.Time
	processingStartedAt pgtype.Timestamp
	timeTaken           pgtype.Time
}

func (c *timelineColumns) targets() []any {
	return []any{&c.createdAt, &c.updatedAt, &c.processingStartedAt, &c.timeTaken}
}

func (c *timelineColumns) timeline() prover.JobTimeline {
	return prover.JobTimeline{
		CreatedAt:           c.createdAt,
		UpdatedAt:           c.updatedAt,
		ProcessingStartedAt: optTimestamp(c.processingStartedAt),
		TimeTaken:           optDuration(c.timeTaken),
	}
}

// metaColumns are scanned into by every job query, in this order.
type metaColumns struct {
	errorText       pgtype.Text
	pickedBy        pgtype.Text
	protocolVersion pgtype.Int4
	patch           pgtype.Int4
}

func (c *metaColumns) targets() []any {
	return []any{&c.errorText, &c.pickedBy, &c.protocolVersion, &c.patch}
}

func (c *metaColumns) meta(d *rowDecoder) prover.JobMeta {
	return prover.JobMeta{
		ProtocolVersion:      d.protocolVersion(c.protocolVersion),
		ProtocolVersionPatch: d.patch(c.patch),
		PickedBy:             optText(c.pickedBy),
		Error:                optText(c.errorText),
	}
}

func decodeErrorf(table string, err error) error {
	return fmt.Errorf("decoding %s row: %w", table, err)
}
