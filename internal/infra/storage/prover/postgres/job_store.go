package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/prover-cli/internal/domain/prover"
	"github.com/ahrav/prover-cli/internal/infra/storage"
)

// jobStore implements prover.JobRepository on top of the prover database.
var _ prover.JobRepository = (*jobStore)(nil)

type jobStore struct {
	db     *pgxpool.Pool
	tracer trace.Tracer
}

// NewJobStore creates a PostgreSQL backed job repository with tracing.
func NewJobStore(pool *pgxpool.Pool, tracer trace.Tracer) *jobStore {
	return &jobStore{db: pool, tracer: tracer}
}

// defaultDBAttributes defines standard OpenTelemetry attributes for database operations.
var defaultDBAttributes = []attribute.KeyValue{
	attribute.String("db.system", "postgresql"),
}

func dbAttributes(extra ...attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(defaultDBAttributes)+len(extra))
	attrs = append(attrs, defaultDBAttributes...)
	return append(attrs, extra...)
}

const compressorTable = "proof_compression_jobs_fri"

// witnessTable describes how one round's table maps onto the uniform witness
// job projection. Columns a table lacks are selected as typed NULLs.
type witnessTable struct {
	name string
	// extra selects, in order: id, circuit_id, depth, dependent job count and
	// the input blob url.
	extra   string
	orderBy string
}

var witnessTables = map[prover.AggregationRound]witnessTable{
	prover.BasicCircuits: {
		name:    "witness_inputs_fri",
		extra:   "NULL::BIGINT, NULL::SMALLINT, NULL::INT, NULL::INT, witness_inputs_blob_url",
		orderBy: "l1_batch_number",
	},
	prover.LeafAggregation: {
		name:    "leaf_aggregation_witness_jobs_fri",
		extra:   "id, circuit_id, NULL::INT, number_of_basic_circuits, closed_form_inputs_blob_url",
		orderBy: "l1_batch_number, circuit_id",
	},
	prover.NodeAggregation: {
		name:    "node_aggregation_witness_jobs_fri",
		extra:   "id, circuit_id, depth, number_of_dependent_jobs, aggregations_url",
		orderBy: "l1_batch_number, circuit_id, depth",
	},
	prover.RecursionTip: {
		name:    "recursion_tip_witness_jobs_fri",
		extra:   "NULL::BIGINT, NULL::SMALLINT, NULL::INT, number_of_final_node_jobs, NULL::TEXT",
		orderBy: "l1_batch_number",
	},
	prover.Scheduler: {
		name:    "scheduler_witness_jobs_fri",
		extra:   "NULL::BIGINT, NULL::SMALLINT, NULL::INT, NULL::INT, scheduler_partial_input_blob_url",
		orderBy: "l1_batch_number",
	},
}

func witnessTableFor(round prover.AggregationRound) (witnessTable, error) {
	t, ok := witnessTables[round]
	if !ok {
		return witnessTable{}, fmt.Errorf("no witness table for aggregation round %d", round)
	}
	return t, nil
}

func (t witnessTable) selectQuery(where string) string {
	return fmt.Sprintf(`
		SELECT
			l1_batch_number, status, attempts,
			created_at, updated_at, processing_started_at, time_taken,
			error, picked_by, protocol_version, protocol_version_patch,
			%s
		FROM %s
		WHERE %s
		ORDER BY %s`, t.extra, t.name, where, t.orderBy)
}

// GetWitnessJobs returns the witness records of a round for a batch.
func (s *jobStore) GetWitnessJobs(
	ctx context.Context,
	round prover.AggregationRound,
	batch prover.BatchNumber,
) ([]*prover.WitnessGeneratorJob, error) {
	table, err := witnessTableFor(round)
	if err != nil {
		return nil, err
	}
	dbAttrs := dbAttributes(
		attribute.String("db.table", table.name),
		attribute.Int64("batch_number", int64(batch)),
	)

	var jobs []*prover.WitnessGeneratorJob
	err = storage.ExecuteAndTrace(ctx, s.tracer, "postgres.get_witness_jobs", dbAttrs, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, table.selectQuery("l1_batch_number = $1"), int64(batch))
		if err != nil {
			return fmt.Errorf("%w: get witness jobs query error: %w", prover.ErrRepository, err)
		}
		jobs, err = collectWitnessJobs(rows, round, table.name)
		return err
	})
	return jobs, err
}

// ListNonTerminalWitnessJobs returns every witness record of a round still
// awaiting a terminal status.
func (s *jobStore) ListNonTerminalWitnessJobs(ctx context.Context, round prover.AggregationRound) ([]*prover.WitnessGeneratorJob, error) {
	table, err := witnessTableFor(round)
	if err != nil {
		return nil, err
	}
	dbAttrs := dbAttributes(attribute.String("db.table", table.name))

	var jobs []*prover.WitnessGeneratorJob
	err = storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_non_terminal_witness_jobs", dbAttrs, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, table.selectQuery("status = ANY($1)"), statusStrings(prover.NonTerminalWitnessJobStatuses()))
		if err != nil {
			return fmt.Errorf("%w: list witness jobs query error: %w", prover.ErrRepository, err)
		}
		jobs, err = collectWitnessJobs(rows, round, table.name)
		if err != nil {
			return err
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("row_count", len(jobs)))
		return nil
	})
	return jobs, err
}

func collectWitnessJobs(rows pgx.Rows, round prover.AggregationRound, table string) ([]*prover.WitnessGeneratorJob, error) {
	defer rows.Close()

	var jobs []*prover.WitnessGeneratorJob
	for rows.Next() {
		var (
			batch     int64
			status    string
			attempts  int16
			timeline  timelineColumns
			meta      metaColumns
			id        pgtype.Int8
			circuitID pgtype.Int2
			depth     pgtype.Int4
			dependent pgtype.Int4
			blobURL   pgtype.Text
		)
		targets := []any{&batch, &status, &attempts}
		targets = append(targets, timeline.targets()...)
		targets = append(targets, meta.targets()...)
		targets = append(targets, &id, &circuitID, &depth, &dependent, &blobURL)

		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("%w: scan %s row: %w", prover.ErrRepository, table, err)
		}

		d := newRowDecoder(table)
		job := &prover.WitnessGeneratorJob{
			Round:         round,
			BatchNumber:   d.batchNumber(batch),
			Status:        d.witnessStatus(status),
			Attempts:      d.uint32FromInt16("attempts", attempts),
			ID:            d.optUint32FromInt8("id", id),
			CircuitID:     d.optUint32FromInt2("circuit_id", circuitID),
			Depth:         d.optUint32FromInt4("depth", depth),
			DependentJobs: optInt32(dependent),
			BlobURL:       optText(blobURL),
			JobTimeline:   timeline.timeline(),
			JobMeta:       meta.meta(d),
		}
		if d.err != nil {
			return nil, decodeErrorf(table, d.err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s rows: %w", prover.ErrRepository, table, err)
	}
	return jobs, nil
}

const proverJobColumns = `
	id, l1_batch_number, circuit_id, aggregation_round, sequence_number, depth,
	is_node_final_proof, status, attempts, circuit_blob_url, proof_blob_url,
	created_at, updated_at, processing_started_at, time_taken,
	error, picked_by, protocol_version, protocol_version_patch`

const proverJobsTable = "prover_jobs_fri"

// ListProverJobs returns the prover jobs of a round for a batch.
func (s *jobStore) ListProverJobs(
	ctx context.Context,
	round prover.AggregationRound,
	batch prover.BatchNumber,
) ([]*prover.ProverJob, error) {
	dbAttrs := dbAttributes(
		attribute.String("db.table", proverJobsTable),
		attribute.String("aggregation_round", round.String()),
		attribute.Int64("batch_number", int64(batch)),
	)

	query := `SELECT ` + proverJobColumns + `
		FROM prover_jobs_fri
		WHERE aggregation_round = $1 AND l1_batch_number = $2
		ORDER BY id`

	var jobs []*prover.ProverJob
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_prover_jobs", dbAttrs, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, query, int16(round), int64(batch))
		if err != nil {
			return fmt.Errorf("%w: list prover jobs query error: %w", prover.ErrRepository, err)
		}
		jobs, err = collectProverJobs(rows)
		return err
	})
	return jobs, err
}

// ListNonTerminalProverJobs returns every prover job of a round still
// awaiting a terminal status.
func (s *jobStore) ListNonTerminalProverJobs(ctx context.Context, round prover.AggregationRound) ([]*prover.ProverJob, error) {
	dbAttrs := dbAttributes(
		attribute.String("db.table", proverJobsTable),
		attribute.String("aggregation_round", round.String()),
	)

	query := `SELECT ` + proverJobColumns + `
		FROM prover_jobs_fri
		WHERE aggregation_round = $1 AND status = ANY($2)
		ORDER BY l1_batch_number, id`

	var jobs []*prover.ProverJob
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_non_terminal_prover_jobs", dbAttrs, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, query, int16(round), statusStrings(prover.NonTerminalProverJobStatuses()))
		if err != nil {
			return fmt.Errorf("%w: list prover jobs query error: %w", prover.ErrRepository, err)
		}
		jobs, err = collectProverJobs(rows)
		if err != nil {
			return err
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("row_count", len(jobs)))
		return nil
	})
	return jobs, err
}

func collectProverJobs(rows pgx.Rows) ([]*prover.ProverJob, error) {
	defer rows.Close()

	var jobs []*prover.ProverJob
	for rows.Next() {
		var (
			id             int64
			batch          int64
			circuitID      int16
			round          int16
			sequenceNumber int32
			depth          int32
			isFinal        bool
			status         string
			attempts       int16
			circuitBlobURL string
			proofBlobURL   pgtype.Text
			timeline       timelineColumns
			meta           metaColumns
		)
		targets := []any{
			&id, &batch, &circuitID, &round, &sequenceNumber, &depth,
			&isFinal, &status, &attempts, &circuitBlobURL, &proofBlobURL,
		}
		targets = append(targets, timeline.targets()...)
		targets = append(targets, meta.targets()...)

		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("%w: scan %s row: %w", prover.ErrRepository, proverJobsTable, err)
		}

		d := newRowDecoder(proverJobsTable)
		job := &prover.ProverJob{
			BatchNumber:      d.batchNumber(batch),
			ID:               d.uint32FromInt64("id", id),
			Round:            d.round(round),
			CircuitID:        d.uint32FromInt16("circuit_id", circuitID),
			SequenceNumber:   d.uint32FromInt32("sequence_number", sequenceNumber),
			Depth:            d.uint32FromInt32("depth", depth),
			IsNodeFinalProof: isFinal,
			Status:           d.proverStatus(status),
			Attempts:         d.uint32FromInt16("attempts", attempts),
			CircuitBlobURL:   circuitBlobURL,
			ProofBlobURL:     optText(proofBlobURL),
			JobTimeline:      timeline.timeline(),
			JobMeta:          meta.meta(d),
		}
		if d.err != nil {
			return nil, decodeErrorf(proverJobsTable, d.err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s rows: %w", prover.ErrRepository, proverJobsTable, err)
	}
	return jobs, nil
}

const compressorJobColumns = `
	l1_batch_number, status, attempts, fri_proof_blob_url, l1_proof_blob_url,
	created_at, updated_at, processing_started_at, time_taken,
	error, picked_by, protocol_version, protocol_version_patch`

// GetCompressorJob returns the compressor record of a batch.
func (s *jobStore) GetCompressorJob(ctx context.Context, batch prover.BatchNumber) (*prover.CompressorJob, error) {
	dbAttrs := dbAttributes(
		attribute.String("db.table", compressorTable),
		attribute.Int64("batch_number", int64(batch)),
	)

	query := `SELECT ` + compressorJobColumns + `
		FROM proof_compression_jobs_fri
		WHERE l1_batch_number = $1`

	var job *prover.CompressorJob
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.get_compressor_job", dbAttrs, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, query, int64(batch))
		if err != nil {
			return fmt.Errorf("%w: get compressor job query error: %w", prover.ErrRepository, err)
		}
		jobs, err := collectCompressorJobs(rows)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("job_not_found", true))
			return nil
		}
		job = jobs[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, prover.ErrJobNotFound
	}
	return job, nil
}

// ListNonTerminalCompressorJobs returns every compressor record still
// awaiting a terminal status.
func (s *jobStore) ListNonTerminalCompressorJobs(ctx context.Context) ([]*prover.CompressorJob, error) {
	dbAttrs := dbAttributes(attribute.String("db.table", compressorTable))

	query := `SELECT ` + compressorJobColumns + `
		FROM proof_compression_jobs_fri
		WHERE status = ANY($1)
		ORDER BY l1_batch_number`

	var jobs []*prover.CompressorJob
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.list_non_terminal_compressor_jobs", dbAttrs, func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, query, statusStrings(prover.NonTerminalCompressionJobStatuses()))
		if err != nil {
			return fmt.Errorf("%w: list compressor jobs query error: %w", prover.ErrRepository, err)
		}
		jobs, err = collectCompressorJobs(rows)
		return err
	})
	return jobs, err
}

func collectCompressorJobs(rows pgx.Rows) ([]*prover.CompressorJob, error) {
	defer rows.Close()

	var jobs []*prover.CompressorJob
	for rows.Next() {
		var (
			batch    int64
			status   string
			attempts int16
			friProof pgtype.Text
			l1Proof  pgtype.Text
			timeline timelineColumns
			meta     metaColumns
		)
		targets := []any{&batch, &status, &attempts, &friProof, &l1Proof}
		targets = append(targets, timeline.targets()...)
		targets = append(targets, meta.targets()...)

		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("%w: scan %s row: %w", prover.ErrRepository, compressorTable, err)
		}

		d := newRowDecoder(compressorTable)
		job := &prover.CompressorJob{
			BatchNumber:     d.batchNumber(batch),
			Status:          d.compressionStatus(status),
			Attempts:        d.uint32FromInt16("attempts", attempts),
			FRIProofBlobURL: optText(friProof),
			L1ProofBlobURL:  optText(l1Proof),
			JobTimeline:     timeline.timeline(),
			JobMeta:         meta.meta(d),
		}
		if d.err != nil {
			return nil, decodeErrorf(compressorTable, d.err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s rows: %w", prover.ErrRepository, compressorTable, err)
	}
	return jobs, nil
}

// restartDeletes lists the tables cleared when a batch is restarted, from the
// most downstream stage up.
var restartDeletes = []string{
	compressorTable,
	proverJobsTable,
	"scheduler_witness_jobs_fri",
	"recursion_tip_witness_jobs_fri",
	"node_aggregation_witness_jobs_fri",
	"leaf_aggregation_witness_jobs_fri",
}

// RestartBatch discards every downstream record of a batch and requeues its
// basic witness record in a single transaction.
func (s *jobStore) RestartBatch(ctx context.Context, batch prover.BatchNumber) error {
	dbAttrs := dbAttributes(attribute.Int64("batch_number", int64(batch)))

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.restart_batch", dbAttrs, func(ctx context.Context) error {
		span := trace.SpanFromContext(ctx)

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("%w: begin transaction error: %w", prover.ErrRepository, err)
		}
		defer tx.Rollback(ctx)

		var deleted int64
		for _, table := range restartDeletes {
			tag, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE l1_batch_number = $1", int64(batch))
			if err != nil {
				return fmt.Errorf("%w: delete from %s error: %w", prover.ErrRepository, table, err)
			}
			deleted += tag.RowsAffected()
		}
		span.SetAttributes(attribute.Int64("rows_deleted", deleted))

		tag, err := tx.Exec(ctx, `
			UPDATE witness_inputs_fri
			SET
				status = $2,
				attempts = 0,
				error = NULL,
				picked_by = NULL,
				processing_started_at = NULL,
				time_taken = NULL,
				updated_at = NOW()
			WHERE l1_batch_number = $1`,
			int64(batch), prover.WitnessJobQueued.String(),
		)
		if err != nil {
			return fmt.Errorf("%w: requeue basic witness job error: %w", prover.ErrRepository, err)
		}
		if tag.RowsAffected() == 0 {
			span.SetAttributes(attribute.Bool("job_not_found", true))
			return fmt.Errorf("basic witness job (batch %d): %w", batch, prover.ErrJobNotFound)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("%w: commit error: %w", prover.ErrRepository, err)
		}
		return nil
	})
}

// InsertWitnessInput inserts the basic witness record of a batch, superseding
// any existing one.
func (s *jobStore) InsertWitnessInput(ctx context.Context, input prover.WitnessInput) error {
	dbAttrs := dbAttributes(
		attribute.Int64("batch_number", int64(input.BatchNumber)),
		attribute.Int("protocol_version", int(input.ProtocolVersion)),
		attribute.Int64("protocol_version_patch", int64(input.Patch)),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.insert_witness_input", dbAttrs, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, `
			INSERT INTO witness_inputs_fri (
				l1_batch_number,
				witness_inputs_blob_url,
				status,
				attempts,
				protocol_version,
				protocol_version_patch,
				created_at,
				updated_at
			) VALUES ($1, $2, $3, 0, $4, $5, NOW(), NOW())
			ON CONFLICT (l1_batch_number) DO UPDATE SET
				witness_inputs_blob_url = EXCLUDED.witness_inputs_blob_url,
				status = EXCLUDED.status,
				attempts = 0,
				error = NULL,
				picked_by = NULL,
				processing_started_at = NULL,
				time_taken = NULL,
				protocol_version = EXCLUDED.protocol_version,
				protocol_version_patch = EXCLUDED.protocol_version_patch,
				updated_at = NOW()`,
			int64(input.BatchNumber),
			input.BlobURL,
			prover.WitnessJobQueued.String(),
			int32(input.ProtocolVersion),
			int32(input.Patch),
		)
		if err != nil {
			return fmt.Errorf("%w: insert witness input error: %w", prover.ErrRepository, err)
		}
		return nil
	})
}

// InsertProtocolVersion registers a protocol version. Registering the same
// version and patch twice keeps the first registration.
func (s *jobStore) InsertProtocolVersion(ctx context.Context, params prover.ProtocolVersionParams) error {
	dbAttrs := dbAttributes(
		attribute.Int("protocol_version", int(params.Version)),
		attribute.Int64("protocol_version_patch", int64(params.Patch)),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.insert_protocol_version", dbAttrs, func(ctx context.Context) error {
		tag, err := s.db.Exec(ctx, `
			INSERT INTO prover_fri_protocol_versions (
				id,
				recursion_scheduler_level_vk_hash,
				recursion_node_level_vk_hash,
				recursion_leaf_level_vk_hash,
				recursion_circuits_set_vks_hash,
				snark_wrapper_vk_hash,
				protocol_version_patch,
				created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (id, protocol_version_patch) DO NOTHING`,
			int32(params.Version),
			params.VKs.RecursionSchedulerLevel.Bytes(),
			params.VKs.RecursionNodeLevel.Bytes(),
			params.VKs.RecursionLeafLevel.Bytes(),
			params.VKs.RecursionCircuitsSet.Bytes(),
			params.VKs.SnarkWrapper.Bytes(),
			int32(params.Patch),
		)
		if err != nil {
			return fmt.Errorf("%w: insert protocol version error: %w", prover.ErrRepository, err)
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("inserted", tag.RowsAffected() > 0))
		return nil
	})
}

func statusStrings[S fmt.Stringer](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = st.String()
	}
	return out
}
