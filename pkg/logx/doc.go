// Package logx is ridebot's structured logging layer.
//
// Logger wraps zerolog and is passed by value. Output goes to:
//   - the console (short timestamp, file:line caller)
//   - an optional JSON lines file
//   - an optional Telegram chat (operator log group), filtered by level and rate
package logx
