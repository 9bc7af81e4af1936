// Package kvutil provides helpers for JetStream KeyValue buckets used as stream sources.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// OpenBucket opens an existing KV bucket, optionally creating it when missing.
//
// Several readers may race to create the same bucket; a lost race (ErrBucketExists)
// falls back to opening it. Transient failures are retried up to maxRetries times
// with a doubling delay starting at 10ms.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - cfg: Bucket configuration (only Bucket is used when create is false)
//   - create: Create the bucket if it does not exist
//   - maxRetries: Attempts before giving up (values <= 0 mean 3)
//
// Returns:
//   - jetstream.KeyValue: The KV bucket handle
//   - error: The last error after all retries, or jetstream.ErrBucketNotFound when
//     create is false and the bucket is missing
func OpenBucket(
	ctx context.Context,
	js jetstream.JetStream,
	cfg jetstream.KeyValueConfig,
	create bool,
	maxRetries int,
) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := range maxRetries {
		kv, err := js.KeyValue(ctx, cfg.Bucket)
		switch {
		case err == nil:
			return kv, nil
		case errors.Is(err, jetstream.ErrBucketNotFound) && !create:
			return nil, fmt.Errorf("KV bucket %s: %w", cfg.Bucket, err)
		case errors.Is(err, jetstream.ErrBucketNotFound):
			kv, err = js.CreateKeyValue(ctx, cfg)
			if err == nil {
				return kv, nil
			}
			if errors.Is(err, jetstream.ErrBucketExists) {
				// Lost the creation race; the next pass opens it.
				lastErr = err
				continue
			}
			lastErr = err
		default:
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled while opening KV bucket: %w", ctx.Err())
		}

		if attempt < maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond //nolint:gosec // attempt is bounded by maxRetries
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to open KV bucket %s after %d attempts: %w", cfg.Bucket, maxRetries, lastErr)
}
