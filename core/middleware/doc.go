// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation through the X-API-Key header or the api_key
//     query parameter. An empty key leaves the API open.
//   - rayid: tags every request with a RayID, stored in the fiber locals for
//     logger.WithRayID and echoed in the X-Ray-ID response header.
//
// Both are registered globally in the serve command, RayID first.
package middleware
