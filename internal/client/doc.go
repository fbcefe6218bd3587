// Package client implements the lifecycle of one named worker.
//
// A Client owns at most one worker process at a time. Initialize spawns the
// worker and performs the handshake (initialize, notifications/initialized,
// settle delay); CallTool and ListTools send requests once the client is
// Ready; Cleanup kills the worker. If the worker exits or its pipes fail,
// the client moves to Closed and every outstanding request is rejected.
//
// Each process generation gets its own correlation table and session id,
// so a re-initialized client starts again at request id 1.
package client
