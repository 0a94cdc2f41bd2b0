// Package diagnostics exposes the cache engine over HTTP.
//
// # HTTP Endpoints
//
//   - GET /cache/stats : table counters per partition, arena counters per
//     category and the sweeper jobs.
//   - GET /cache/snapshot : every indexed entry with state and reference count.
//   - GET /cache/leaks : runs the leak heuristic.
//   - POST /cache/cleanup : evicts recycled entries at once.
//   - POST /cache/preload : loads keys, paths, content ids and containers in
//     one loader session. Resources stay warm unless "unload" is set.
//     Responds 207 when some resources failed.
package diagnostics
