// Package ratelimit paces outgoing feed requests. The platform publishes no
// limits, so the client throttles itself.
//
// A TokenBucket lets a burst of n requests through and then stalls until the
// period has passed. A SlidingWindow, the default, never allows more than n
// requests in any trailing period, which suits the steady rhythm of
// pagination.
//
//	limiter := ratelimit.New("sliding_window", 60, time.Minute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
