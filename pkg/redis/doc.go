// Package redis connects the hub to Redis through go-redis/v9.
//
// Redis is optional. When Config.ConnectionURL is set, Connect returns a
// pinged *redis.Client that backs the shared rate-limit buckets
// (ratelimit.RedisStore) so every hub instance spends from the same bucket:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	limiter, closeStore, err := ratelimit.NewFromConfig(rlCfg, client)
//
// Healthcheck adapts the client to a readiness probe.
package redis
