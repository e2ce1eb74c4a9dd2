package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trbjo/goscreen/logger"
)

var lg = logger.For("store")

const (
	TypeSQLite = "sqlite"
	TypeNone   = "none"
)

var ErrSyncInProgress = errors.New("sync already in progress")

// Engine is the persistence and sync contract a sensor writes through.
type Engine interface {
	Save(ctx context.Context, obj Object, table string) error
	StartSync(ctx context.Context, table string) error
	Close() error
}

type Options struct {
	Type string
	Path string
	// Host is the sync endpoint; empty disables uploads.
	Host          string
	BatchSize     int
	Timeout       time.Duration
	MaxSyncTime   time.Duration
	RetryInterval time.Duration
}

// Open returns the engine selected by opts.Type. TypeNone (or an empty
// type) yields a nil Engine and no error.
func Open(ctx context.Context, opts Options) (Engine, error) {
	switch opts.Type {
	case "", TypeNone:
		lg.Debug("persistence disabled")
		return nil, nil
	case TypeSQLite:
		var up *Uploader
		if opts.Host != "" {
			up = NewUploader(opts.Host, UploaderOptions{
				BatchSize:       opts.BatchSize,
				Timeout:         opts.Timeout,
				MaxElapsedTime:  opts.MaxSyncTime,
				InitialInterval: opts.RetryInterval,
			})
		}
		s, err := OpenSQLite(ctx, opts.Path, up)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown db type %q", opts.Type)
	}
}
