package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

const (
	defaultBatchSize      = 100
	defaultUploadTimeout  = 30 * time.Second
	defaultMaxElapsedTime = 2 * time.Minute
)

type UploaderOptions struct {
	BatchSize       int
	Timeout         time.Duration
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
}

// Uploader posts batches of stored rows to {host}/{table}.
type Uploader struct {
	client          *resty.Client
	host            string
	batchSize       int
	maxElapsedTime  time.Duration
	initialInterval time.Duration
}

type uploadRequest struct {
	TableName string            `json:"tableName"`
	Data      []json.RawMessage `json:"data"`
}

// UploadError reports a non-2xx answer from the sync host.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("sync host answered %d: %s", e.StatusCode, e.Body)
}

func NewUploader(host string, opts UploaderOptions) *Uploader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultUploadTimeout
	}
	if opts.MaxElapsedTime <= 0 {
		opts.MaxElapsedTime = defaultMaxElapsedTime
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Uploader{
		client:          client,
		host:            strings.TrimRight(host, "/"),
		batchSize:       opts.BatchSize,
		maxElapsedTime:  opts.MaxElapsedTime,
		initialInterval: opts.InitialInterval,
	}
}

func (u *Uploader) BatchSize() int {
	return u.batchSize
}

func (u *Uploader) endpoint(table string) string {
	return u.host + "/" + url.PathEscape(table)
}

// Upload sends rows in one request. Client errors are final; server and
// transport errors are retried with exponential backoff.
func (u *Uploader) Upload(ctx context.Context, table string, rows []Row) error {
	body := uploadRequest{TableName: table, Data: make([]json.RawMessage, len(rows))}
	for i, r := range rows {
		body.Data[i] = r.Data
	}

	operation := func() error {
		resp, err := u.client.R().
			SetContext(ctx).
			SetBody(body).
			Post(u.endpoint(table))
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			lg.Debug("upload attempt failed", "table", table, "error", err)
			return err
		}
		if resp.IsSuccess() {
			return nil
		}

		uerr := &UploadError{StatusCode: resp.StatusCode(), Body: resp.String()}
		if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
			return backoff.Permanent(uerr)
		}
		lg.Debug("upload attempt rejected", "table", table, "status", resp.StatusCode())
		return uerr
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxInterval = 10 * time.Second
	expBackoff.MaxElapsedTime = u.maxElapsedTime
	if u.initialInterval > 0 {
		expBackoff.InitialInterval = u.initialInterval
	}

	return backoff.Retry(operation, backoff.WithContext(expBackoff, ctx))
}
