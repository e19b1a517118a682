// Package cache holds the local listing store and the query engine over it.
//
// The Store is an unordered in-memory table of Listings loaded once at startup and
// saved once at shutdown through a Repository. Key behaviors:
//   - Find picks a random non-expired listing within +-10% of a target price and
//     lazily evicts expired candidates it draws along the way
//   - Sweep removes every expired listing (run after load and before save)
//   - CSVRepository persists the table as name,price,image_url,shop_url,item_id,end_time
//   - PostgresRepository stores the same columns in a Postgres table
//
// Randomness and time are injected through StoreOptions so tests are deterministic.
package cache
