// Package ratelimit implements a token bucket limiter keyed by ':'-joined
// string parts.
//
// A key such as ("challenge", "sms_code") resolves to the rule stored under
// "challenge:sms_code". When no exact rule exists, the last part is replaced
// by "*" and looked up again, so "challenge:ip:*" covers every IP address
// while still giving each address its own bucket. Keys with no rule at all
// are unlimited.
//
// Buckets live in a Store. MemoryStore serves a single process; RedisStore
// shares buckets between processes through go-redis. Both are
// last-writer-wins, so concurrent spenders may overdraw a bucket slightly.
//
//	limiter, err := ratelimit.New(ratelimit.NewRedisStore(client))
//	ok, err := limiter.Spend(ctx, "challenge", "sms_code")
//
// Callers that only need to spend tokens should depend on Spender.
package ratelimit
