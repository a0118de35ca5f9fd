// Package pipeline contains fetchers backed by Redis. They connect a
// batch.Source to data kept in Redis without any glue code from the caller:
//
//   - RedisList: a batch.Fetcher that pages over a Redis list with LRANGE
//   - RedisRefresher: a batch.UpdateFetcher that reloads the items of the
//     requested batches with MGET, one pipelined round trip per update
//
// Both take a redis.Cmdable, so a *redis.Client, a *redis.ClusterClient or a
// transaction pipeline can be used.
//
// Basic usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	pages, err := pipeline.NewRedisList(client, decodeCoin, &pipeline.RedisListOptions{
//		KeyPrefix:  "coins:",
//		FirstLimit: 50,
//		Limit:      20,
//	})
//	refresher := pipeline.NewRedisRefresher[int, Coin, string](client, Coin.RedisKey, decodeCoin)
//
//	src := batch.NewWithUpdates(ctx, actions, pages, refresher, keys, nil)
//	actions <- batch.NewReload("trending") // pages over the list "coins:trending"
package pipeline
