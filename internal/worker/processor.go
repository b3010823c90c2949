package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"

	"baniusync/internal/journal"
	"baniusync/internal/metrics"
	"baniusync/internal/progress"
	"baniusync/internal/queue"
	"baniusync/internal/storage"
)

// ErrKeyMismatch means the server stored an object under a different key
// than the one requested. The worker that sees it stops.
var ErrKeyMismatch = errors.New("confirmed key does not match requested key")

const (
	defaultContentType = "application/octet-stream"
	sessionMetadataKey = "session"
)

// Processor uploads single items for one worker
type Processor struct {
	config    Config
	client    storage.Client
	fs        billy.Filesystem
	completed *queue.Completed
	journal   journal.Store
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// Process uploads one item and returns the completion event
func (p *Processor) Process(ctx context.Context, item queue.Item) (progress.Event, error) {
	startTime := time.Now()

	res, size, err := p.upload(ctx, item)
	if err != nil {
		p.metrics.IncFailed()
		return progress.Event{}, err
	}

	p.completed.Add(item.Filekey)
	p.metrics.IncSuccess(size, time.Since(startTime))
	p.record(item, res, size)

	p.logger.Debug("File uploaded",
		zap.String("key", res.Key),
		zap.Int64("size", size),
		zap.Duration("duration", time.Since(startTime)),
	)

	return progress.Event{Key: res.Key, Filekey: item.Filekey, Size: size}, nil
}

func (p *Processor) upload(ctx context.Context, item queue.Item) (storage.SaveResult, int64, error) {
	file, err := p.fs.Open(item.LocalPath)
	if err != nil {
		return storage.SaveResult{}, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := p.fs.Stat(item.LocalPath)
	if err != nil {
		return storage.SaveResult{}, 0, fmt.Errorf("failed to stat file: %w", err)
	}

	contentType, err := detectContentType(file)
	if err != nil {
		return storage.SaveResult{}, 0, err
	}

	key := p.config.Prefix + item.Filekey
	opts := storage.PutOptions{ContentType: contentType}
	if p.config.Session != "" {
		opts.Metadata = map[string]string{sessionMetadataKey: p.config.Session}
	}
	res, err := p.client.Save(ctx, key, file, info.Size(), opts)
	if err != nil {
		return storage.SaveResult{}, 0, fmt.Errorf("failed to save %s: %w", key, err)
	}

	if res.Key != key {
		return storage.SaveResult{}, 0, fmt.Errorf("%w: %q != %q", ErrKeyMismatch, res.Key, key)
	}

	return res, info.Size(), nil
}

// detectContentType sniffs the file head and rewinds the file
func detectContentType(file billy.File) (string, error) {
	contentType := defaultContentType
	if mime, err := mimetype.DetectReader(file); err == nil {
		contentType = mime.String()
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}
	return contentType, nil
}

func (p *Processor) record(item queue.Item, res storage.SaveResult, size int64) {
	if p.journal == nil {
		return
	}

	err := p.journal.Record(&journal.Record{
		Session:   p.config.Session,
		Filekey:   item.Filekey,
		RemoteKey: res.Key,
		LocalPath: item.LocalPath,
		Size:      size,
		ETag:      res.ETag,
	})
	if err != nil {
		p.logger.Warn("Failed to record upload in journal",
			zap.String("filekey", item.Filekey),
			zap.Error(err),
		)
	}
}
