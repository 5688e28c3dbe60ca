// Package retry repeats operations that failed with a transient error.
//
// The feed client never retries on its own; callers that want retries wrap
// client calls with Do. Only errors classified transient_or_unknown are
// retried, with exponential backoff and jitter between attempts:
//
//	cfg := retry.FromConfig(appConfig.Retry, log)
//	media, err := retry.DoWithResult(ctx, func(ctx context.Context) (*instagram.Media, error) {
//		return client.GetMediaByCode(ctx, code)
//	}, cfg)
//
// Cancelling ctx stops the wait between attempts.
package retry
