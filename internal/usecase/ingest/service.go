package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/result"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// Defaults for Config.
const (
	DefaultBatchSize     = 50
	DefaultProgressEvery = 10
)

// Config tunes the indexer.
type Config struct {
	BatchSize     int
	ProgressEvery int
}

// Service runs the Extractor -> Chunker -> Indexer pipeline sequentially.
// Failures are contained: a chunk, a batch or a document never stops the run.
type Service struct {
	extract Extractor
	split   Splitter
	embed   Embedder
	sink    Sink
	cfg     Config
	logger  *zap.Logger
}

// New creates an ingest service.
func New(extract Extractor, split Splitter, embed Embedder, sink Sink, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{extract: extract, split: split, embed: embed, sink: sink, cfg: cfg, logger: logger}
}

// Run ingests every document of src. It fails only when the source cannot be listed.
// Cancellation stops the run between chunks; the report covers what was done.
func (s *Service) Run(ctx context.Context, src Source) (Report, error) {
	report := Report{Source: src.String()}

	names, err := src.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list %s: %w", src, err)
	}
	s.logger.Info("Ingest started", zap.String("source", src.String()), zap.Int("documents", len(names)))

	for i, name := range names {
		if ctx.Err() != nil {
			s.logger.Warn("Ingest interrupted", zap.Int("done", i), zap.Int("total", len(names)))
			break
		}
		s.logger.Info("Processing document",
			zap.String("document", name), zap.Int("n", i+1), zap.Int("total", len(names)))

		doc, err := src.Load(ctx, name)
		if err != nil {
			s.logger.Warn("Failed to load document", zap.String("document", name), zap.Error(err))
			metrics.IngestDocumentsTotal.WithLabelValues(string(result.Skipped)).Inc()
			report.add(DocumentReport{Name: name, Result: result.Classify(name, fmt.Errorf("load: %w", err))})
			continue
		}
		report.add(s.IngestDocument(ctx, doc))
	}

	s.logger.Info("Ingest finished",
		zap.Int("documents", report.Documents),
		zap.Int("skipped", report.Skipped),
		zap.Int("chunks", report.Chunks),
		zap.Int("records", report.Records),
		zap.Int("chunk_errors", report.ChunkErrors),
		zap.Int("batches_lost", report.BatchesLost),
		zap.Int("stale_records", report.StaleRecords),
	)
	return report, nil
}

// IngestDocument extracts, chunks, embeds and stores one document.
// Records are upserted every BatchSize records and once more at the end of the document.
func (s *Service) IngestDocument(ctx context.Context, doc domain.Document) DocumentReport {
	rep := DocumentReport{Name: doc.Name}
	log := s.logger.With(zap.String("document", doc.Name))

	text, err := s.extract.Extract(ctx, bytes.NewReader(doc.Content))
	if err != nil {
		log.Warn("Text extraction failed, skipping document", zap.Error(err))
		return s.finish(rep, err)
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("No extractable text, skipping document")
		return s.finish(rep, domain.ErrEmptyText)
	}

	doc.Text = text
	chunks := s.split.Split(doc.Stem(), text)
	rep.Chunks = len(chunks)
	if len(chunks) == 0 {
		log.Warn("No chunks produced, skipping document")
		return s.finish(rep, domain.ErrEmptyText)
	}
	log.Info("Chunked document", zap.Int("chunks", len(chunks)), zap.Int("chars", len([]rune(text))))

	batch := make([]domain.IndexRecord, 0, s.cfg.BatchSize)
	batchNo := 0
	writeCtx := ctx
	flush := func() {
		if len(batch) == 0 {
			return
		}
		batchNo++
		if err := s.sink.Upsert(writeCtx, batch); err != nil {
			rep.BatchesLost++
			metrics.IngestBatchesTotal.WithLabelValues("lost").Inc()
			log.Error("Batch upload failed, records lost",
				zap.Int("batch", batchNo), zap.Int("records", len(batch)), zap.Error(err))
		} else {
			rep.Records += len(batch)
			metrics.IngestBatchesTotal.WithLabelValues("ok").Inc()
			metrics.IngestRecordsTotal.Add(float64(len(batch)))
			log.Debug("Batch uploaded", zap.Int("batch", batchNo), zap.Int("records", len(batch)))
		}
		batch = batch[:0]
	}

	interrupted := false
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		emb, err := s.embed.Embed(ctx, chunk.Content)
		if err != nil {
			rep.ChunkErrors++
			metrics.IngestChunksTotal.WithLabelValues("skipped").Inc()
			log.Warn("Embedding failed, skipping chunk", zap.Int("chunk", chunk.Index), zap.Error(err))
		} else {
			metrics.IngestChunksTotal.WithLabelValues("embedded").Inc()
			batch = append(batch, domain.NewIndexRecord(doc, chunk, emb.Embedding))
			if len(batch) >= s.cfg.BatchSize {
				flush()
			}
		}

		if (i+1)%s.cfg.ProgressEvery == 0 || i+1 == len(chunks) {
			log.Info("Indexing progress", zap.Int("chunk", i+1), zap.Int("total", len(chunks)))
		}
	}
	// Records embedded before an interruption are still written.
	if interrupted {
		writeCtx = context.WithoutCancel(ctx)
	}
	flush()

	if !interrupted {
		s.checkStale(ctx, log, &rep, doc, len(chunks))
	}

	var runErr error
	switch {
	case interrupted:
		runErr = fmt.Errorf("interrupted after %d records: %w", rep.Records, context.Cause(ctx))
	case rep.Records == 0:
		runErr = errors.New("no records written")
	}
	return s.finish(rep, runErr)
}

// checkStale flags records of an earlier, longer version of the document. They are never deleted.
func (s *Service) checkStale(ctx context.Context, log *zap.Logger, rep *DocumentReport, doc domain.Document, produced int) {
	source := domain.NewIndexRecord(doc, domain.Chunk{}, nil).Source
	n, err := s.sink.CountFrom(ctx, source, produced)
	if err != nil {
		log.Warn("Stale record check failed", zap.Error(err))
		return
	}
	metrics.IngestStaleRecords.WithLabelValues(source).Set(float64(n))
	if n > 0 {
		rep.StaleRecords = n
		log.Warn("Stale records from a previous version remain in the index",
			zap.Int("stale_records", n), zap.Int("from_chunk", produced))
	}
}

func (s *Service) finish(rep DocumentReport, err error) DocumentReport {
	rep.Result = result.Classify(rep.Name, err)
	metrics.IngestDocumentsTotal.WithLabelValues(string(rep.Result.Outcome())).Inc()
	return rep
}
