// Package pipeline wires the three-stage ingestion pipeline spec §4.3/§5
// describes: chunk workers, embed workers, and upsert workers connected by
// bounded channels, running under a shared cancellation signal. Grounded on
// original_source's core/pipeline/workers/{chunking,embedding}_worker.py
// stage split and on internal/rag/retrieve/candidates.go's goroutine+channel
// fan-out idiom, generalized from a 2-way fan-out into a 3-stage worker-pool
// pipeline using golang.org/x/sync/errgroup for bounded concurrency.
package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"qdrantloader/internal/apperror"
	"qdrantloader/internal/changedetect"
	"qdrantloader/internal/chunking"
	"qdrantloader/internal/model"
)

// Embedder embeds a batch of chunk texts, preserving order (the shape
// internal/embedclient.Client satisfies).
type Embedder interface {
	EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error)
	Dimensions() int
}

// VectorStore is the subset of internal/vectorstore.Store the pipeline uses.
type VectorStore interface {
	UpsertPoints(ctx context.Context, points []model.VectorPoint) error
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

// StateStore is the subset of internal/state.Store the pipeline uses to
// advance IngestionState only after a document's full chunk set is upserted
// (spec §5's "partial updates are forbidden" guarantee).
type StateStore interface {
	Upsert(ctx context.Context, st model.IngestionState) error
	Delete(ctx context.Context, documentID string) error
}

// Config carries the worker-pool sizing from config.PipelineConfig.
type Config struct {
	QueueCapacity    int
	MaxChunkWorkers  int
	MaxEmbedWorkers  int
	MaxUpsertWorkers int
	UpsertBatchSize  int
}

// withDefaults fills any zero-valued field with spec §5's named defaults.
func (c Config) withDefaults() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 1000
	}
	if c.MaxChunkWorkers <= 0 {
		c.MaxChunkWorkers = 10
	}
	if c.MaxEmbedWorkers <= 0 {
		c.MaxEmbedWorkers = 4
	}
	if c.MaxUpsertWorkers <= 0 {
		c.MaxUpsertWorkers = 4
	}
	if c.UpsertBatchSize <= 0 {
		c.UpsertBatchSize = 100
	}
	return c
}

// Pipeline runs documents through chunk -> embed -> upsert stages.
type Pipeline struct {
	cfg       Config
	chunkOpts chunking.Options
	embedder  Embedder
	vectors   VectorStore
	state     StateStore
}

// New builds a Pipeline.
func New(cfg Config, chunkOpts chunking.Options, embedder Embedder, vectors VectorStore, state StateStore) *Pipeline {
	return &Pipeline{cfg: cfg.withDefaults(), chunkOpts: chunkOpts, embedder: embedder, vectors: vectors, state: state}
}

// Result summarizes one Run's outcome.
type Result struct {
	DocumentsProcessed int
	ChunksUpserted     int
	DocumentsDeleted   int
	Errors             []error
}

// docJob is one unit flowing from the classification stage into chunking.
type docJob struct {
	classified changedetect.Classified
}

// chunkBatch is the output of the chunk stage: one document's chunks, kept
// together so IngestionState only advances once the whole set is upserted.
type chunkBatch struct {
	doc    *model.Document
	chunks []model.Chunk
}

// embeddedBatch is the output of the embed stage.
type embeddedBatch struct {
	doc    *model.Document
	chunks []model.EmbeddedChunk
}

// Run takes documents already classified by internal/changedetect (spec
// §4.5), deletes vector points and state rows for
// documents classified Deleted, and pushes New/Updated documents through the
// chunk -> embed -> upsert pipeline. Unchanged documents are skipped. Chunks
// within a document are emitted to the embedder in chunk_index order (spec
// §5); across documents no ordering is guaranteed, since each flows through
// its own pipeline slot concurrently.
func (p *Pipeline) Run(ctx context.Context, classified []changedetect.Classified) (Result, error) {
	var mu sync.Mutex
	result := Result{}

	jobs := make(chan docJob, p.cfg.QueueCapacity)
	chunked := make(chan chunkBatch, p.cfg.QueueCapacity)
	embedded := make(chan embeddedBatch, p.cfg.QueueCapacity)

	var errsCh = make(chan error, len(classified)+p.cfg.MaxChunkWorkers+p.cfg.MaxEmbedWorkers+p.cfg.MaxUpsertWorkers)

	producers, pctx := errgroup.WithContext(ctx)
	producers.Go(func() error {
		defer close(jobs)
		for _, c := range classified {
			if c.Status == changedetect.StatusDeleted {
				if c.State != nil {
					if err := p.vectors.DeleteByDocumentID(pctx, c.State.DocumentID); err != nil {
						errsCh <- err
						continue
					}
					if err := p.state.Delete(pctx, c.State.DocumentID); err != nil {
						errsCh <- err
						continue
					}
					result.DocumentsDeleted++
				}
				continue
			}
			if c.Status == changedetect.StatusUnchanged {
				continue
			}
			select {
			case <-pctx.Done():
				return pctx.Err()
			case jobs <- docJob{classified: c}:
			}
		}
		return nil
	})

	chunkGroup, cctx := errgroup.WithContext(pctx)
	for i := 0; i < p.cfg.MaxChunkWorkers; i++ {
		chunkGroup.Go(func() error {
			for job := range jobs {
				if cctx.Err() != nil {
					return cctx.Err()
				}
				doc := job.classified.Document
				chunks := chunking.Chunk(doc, p.chunkOpts)
				select {
				case <-cctx.Done():
					return cctx.Err()
				case chunked <- chunkBatch{doc: doc, chunks: chunks}:
				}
			}
			return nil
		})
	}
	go func() {
		_ = chunkGroup.Wait()
		close(chunked)
	}()

	embedGroup, ectx := errgroup.WithContext(cctx)
	for i := 0; i < p.cfg.MaxEmbedWorkers; i++ {
		embedGroup.Go(func() error {
			for batch := range chunked {
				if ectx.Err() != nil {
					return ectx.Err()
				}
				texts := make([]string, len(batch.chunks))
				for i, c := range batch.chunks {
					texts[i] = c.Content
				}
				vectors, err := p.embedder.EmbedBatch(ectx, texts)
				if err != nil {
					errsCh <- apperror.Wrap(apperror.KindTransient, "embedding chunk batch", err)
					continue
				}
				out := make([]model.EmbeddedChunk, len(batch.chunks))
				for i, c := range batch.chunks {
					out[i] = model.EmbeddedChunk{Chunk: c, Vector: vectors[i]}
				}
				select {
				case <-ectx.Done():
					return ectx.Err()
				case embedded <- embeddedBatch{doc: batch.doc, chunks: out}:
				}
			}
			return nil
		})
	}
	go func() {
		_ = embedGroup.Wait()
		close(embedded)
	}()

	upsertGroup, uctx := errgroup.WithContext(ectx)
	for i := 0; i < p.cfg.MaxUpsertWorkers; i++ {
		upsertGroup.Go(func() error {
			for batch := range embedded {
				if uctx.Err() != nil {
					return uctx.Err()
				}
				if err := p.upsertDocument(uctx, batch); err != nil {
					errsCh <- err
					continue
				}
				mu.Lock()
				result.DocumentsProcessed++
				result.ChunksUpserted += len(batch.chunks)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := upsertGroup.Wait(); err != nil && ctx.Err() != nil {
		return result, ctx.Err()
	}
	close(errsCh)
	for err := range errsCh {
		result.Errors = append(result.Errors, err)
	}
	return result, nil
}

// upsertDocument deletes the document's existing points (if any), upserts
// its new chunk set in UpsertBatchSize-sized batches, then advances
// IngestionState — only after every chunk has been confirmed written, per
// spec §5's "partial updates are forbidden" rule.
func (p *Pipeline) upsertDocument(ctx context.Context, batch embeddedBatch) error {
	if err := p.vectors.DeleteByDocumentID(ctx, batch.doc.ID); err != nil {
		return apperror.Wrap(apperror.KindConnection, "deleting stale points before re-upsert", err)
	}

	for start := 0; start < len(batch.chunks); start += p.cfg.UpsertBatchSize {
		end := start + p.cfg.UpsertBatchSize
		if end > len(batch.chunks) {
			end = len(batch.chunks)
		}
		points := make([]model.VectorPoint, end-start)
		for i, ec := range batch.chunks[start:end] {
			payload := make(map[string]any, len(ec.Chunk.Metadata)+6)
			for k, v := range ec.Chunk.Metadata {
				payload[k] = v
			}
			payload["document_id"] = batch.doc.ID
			payload["parent_document_id"] = batch.doc.ID
			payload["project_id"] = batch.doc.ProjectID
			payload["source_type"] = batch.doc.SourceType
			payload["source"] = batch.doc.Source
			payload["title"] = batch.doc.Title
			points[i] = model.VectorPoint{ID: ec.Chunk.ID, Vector: ec.Vector, Payload: payload}
		}
		if err := p.vectors.UpsertPoints(ctx, points); err != nil {
			return apperror.Wrap(apperror.KindConnection, "upserting chunk batch", err)
		}
	}

	return p.state.Upsert(ctx, model.IngestionState{
		DocumentID:   batch.doc.ID,
		ProjectID:    batch.doc.ProjectID,
		SourceType:   batch.doc.SourceType,
		Source:       batch.doc.Source,
		ContentHash:  batch.doc.Fingerprint(),
		LastIngestAt: batch.doc.LastUpdatedAt,
		LastKnownURL: batch.doc.URL,
	})
}
