package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	proverapp "github.com/ahrav/prover-cli/internal/app/prover"
	"github.com/ahrav/prover-cli/internal/domain/prover"
)

// documentRenderer encodes reports as YAML or JSON for scripts.
type documentRenderer struct {
	w      io.Writer
	format Format
	opts   Options
}

type batchDoc struct {
	Batch           uint32     `json:"batch"                      yaml:"batch"`
	ProtocolVersion *uint16    `json:"protocol_version,omitempty" yaml:"protocol_version,omitempty"`
	Patch           *uint32    `json:"patch,omitempty"            yaml:"patch,omitempty"`
	ProofSent       bool       `json:"proof_sent"                 yaml:"proof_sent"`
	NotFound        bool       `json:"not_found"                  yaml:"not_found"`
	Stages          []stageDoc `json:"stages"                     yaml:"stages"`
	Inconsistencies []string   `json:"inconsistencies,omitempty"  yaml:"inconsistencies,omitempty"`
}

type statusDoc struct {
	Kind    string `json:"kind"               yaml:"kind"`
	Display string `json:"display"            yaml:"display"`
	Tag     string `json:"terminal,omitempty" yaml:"terminal,omitempty"`
}

type stageDoc struct {
	Stage        string     `json:"stage"                   yaml:"stage"`
	Status       statusDoc  `json:"status"                  yaml:"status"`
	ProverStatus *statusDoc `json:"prover_status,omitempty" yaml:"prover_status,omitempty"`
	Jobs         []jobDoc   `json:"jobs,omitempty"          yaml:"jobs,omitempty"`
}

type jobDoc struct {
	Kind                string     `json:"kind"                            yaml:"kind"`
	Batch               uint32     `json:"batch"                           yaml:"batch"`
	ID                  *uint32    `json:"id,omitempty"                    yaml:"id,omitempty"`
	CircuitID           *uint32    `json:"circuit_id,omitempty"            yaml:"circuit_id,omitempty"`
	Depth               *uint32    `json:"depth,omitempty"                 yaml:"depth,omitempty"`
	Status              string     `json:"status"                          yaml:"status"`
	Attempts            uint32     `json:"attempts"                        yaml:"attempts"`
	PickedBy            *string    `json:"picked_by,omitempty"             yaml:"picked_by,omitempty"`
	Error               *string    `json:"error,omitempty"                 yaml:"error,omitempty"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty" yaml:"processing_started_at,omitempty"`
	TimeTaken           string     `json:"time_taken,omitempty"            yaml:"time_taken,omitempty"`
}

type stuckDoc struct {
	Stage          string         `json:"stage"                     yaml:"stage"`
	WitnessJobs    []stuckWitness `json:"witness_jobs,omitempty"    yaml:"witness_jobs,omitempty"`
	ProverJobs     []jobDoc       `json:"prover_jobs,omitempty"     yaml:"prover_jobs,omitempty"`
	CompressorJobs []jobDoc       `json:"compressor_jobs,omitempty" yaml:"compressor_jobs,omitempty"`
}

type stuckWitness struct {
	Job        jobDoc   `json:"job"                   yaml:"job"`
	ProverJobs []jobDoc `json:"prover_jobs,omitempty" yaml:"prover_jobs,omitempty"`
}

func newStatusDoc(s prover.Status) statusDoc {
	doc := statusDoc{Kind: strings.ToLower(s.Kind.String()), Display: s.String()}
	if s.Kind == prover.StatusCustom {
		doc.Tag = strings.ToLower(s.Terminal.String())
	}
	return doc
}

func fillDetail(doc *jobDoc, tl prover.JobTimeline, meta prover.JobMeta) {
	doc.PickedBy = meta.PickedBy
	doc.Error = meta.Error
	doc.ProcessingStartedAt = tl.ProcessingStartedAt
	if tl.TimeTaken != nil {
		doc.TimeTaken = tl.TimeTaken.String()
	}
}

func witnessJobDoc(job *prover.WitnessGeneratorJob) jobDoc {
	doc := jobDoc{
		Kind:      "witness_generator",
		Batch:     uint32(job.BatchNumber),
		ID:        job.ID,
		CircuitID: job.CircuitID,
		Depth:     job.Depth,
		Status:    job.Status.String(),
		Attempts:  job.Attempts,
	}
	fillDetail(&doc, job.JobTimeline, job.JobMeta)
	return doc
}

func proverJobDoc(job *prover.ProverJob) jobDoc {
	id, circuit, depth := job.ID, job.CircuitID, job.Depth
	doc := jobDoc{
		Kind:      "prover",
		Batch:     uint32(job.BatchNumber),
		ID:        &id,
		CircuitID: &circuit,
		Depth:     &depth,
		Status:    job.Status.String(),
		Attempts:  job.Attempts,
	}
	fillDetail(&doc, job.JobTimeline, job.JobMeta)
	return doc
}

func compressorJobDoc(job *prover.CompressorJob) jobDoc {
	doc := jobDoc{
		Kind:     "compressor",
		Batch:    uint32(job.BatchNumber),
		Status:   job.Status.String(),
		Attempts: job.Attempts,
	}
	fillDetail(&doc, job.JobTimeline, job.JobMeta)
	return doc
}

func (r *documentRenderer) newBatchDoc(batch prover.BatchData) batchDoc {
	doc := batchDoc{
		Batch:     uint32(batch.BatchNumber),
		ProofSent: batch.ProofSent,
		NotFound:  batch.NotFound,
		Stages:    make([]stageDoc, 0, len(batch.Stages)),
	}
	if batch.ProtocolVersion != nil {
		v := uint16(*batch.ProtocolVersion)
		doc.ProtocolVersion = &v
	}
	if batch.Patch != nil {
		p := uint32(*batch.Patch)
		doc.Patch = &p
	}

	for _, info := range batch.Stages {
		sd := stageDoc{Stage: info.Stage.String(), Status: newStatusDoc(info.Status)}
		if info.ProverStatus != nil {
			ps := newStatusDoc(*info.ProverStatus)
			sd.ProverStatus = &ps
		}
		if r.opts.Verbose {
			for _, job := range info.WitnessJobs {
				sd.Jobs = append(sd.Jobs, witnessJobDoc(job))
			}
			for _, job := range info.ProverJobs {
				sd.Jobs = append(sd.Jobs, proverJobDoc(job))
			}
			if info.Compressor != nil {
				sd.Jobs = append(sd.Jobs, compressorJobDoc(info.Compressor))
			}
		}
		doc.Stages = append(doc.Stages, sd)
	}

	for _, v := range batch.Inconsistencies() {
		doc.Inconsistencies = append(doc.Inconsistencies, v.String())
	}
	return doc
}

func (r *documentRenderer) RenderBatches(batches []prover.BatchData) error {
	docs := make([]batchDoc, 0, len(batches))
	for _, batch := range batches {
		docs = append(docs, r.newBatchDoc(batch))
	}
	return r.encode(docs)
}

func (r *documentRenderer) RenderStuck(reports []proverapp.StageStuckReport) error {
	docs := make([]stuckDoc, 0, len(reports))
	for _, report := range reports {
		doc := stuckDoc{Stage: report.Stage.String()}
		for _, stuck := range report.WitnessJobs {
			sw := stuckWitness{Job: witnessJobDoc(stuck.Job)}
			for _, job := range stuck.StuckProverJobs {
				sw.ProverJobs = append(sw.ProverJobs, proverJobDoc(job))
			}
			doc.WitnessJobs = append(doc.WitnessJobs, sw)
		}
		for _, job := range report.ProverJobs {
			doc.ProverJobs = append(doc.ProverJobs, proverJobDoc(job))
		}
		for _, job := range report.CompressorJobs {
			doc.CompressorJobs = append(doc.CompressorJobs, compressorJobDoc(job))
		}
		docs = append(docs, doc)
	}
	return r.encode(docs)
}

func (r *documentRenderer) encode(v any) error {
	switch r.format {
	case FormatYAML:
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml report: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json report: %w", err)
		}
		return nil
	}
}
