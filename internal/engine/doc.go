// Package engine answers price queries from the local listing cache and falls
// back to the remote marketplace on a miss.
//
// A Session owns every piece of mutable state (the listing Store, the
// Settings record, the random source and the clock) and is passed explicitly
// to callers; nothing in this package is global.
//
// Query flow:
//
//	ParseQuery -> Session.Handle -> Store.Find (price-only) -> Acquirer.Acquire
//
// The Acquirer runs a bounded retry schedule over keywords and price
// tolerance. The Filler populates the Store ahead of time across fixed
// price tiers.
package engine
