// Package terminal provides the ANSI side of a remote terminal session with zero-alloc rendering.
//
// Features:
//   - 24-bit foreground color cells
//   - Double-buffered frame with cell-level diffing and color-state coalescing
//   - Fragment-tolerant input decoding with escape sequence handling
//   - Terminal size query/report handshake
//
// Nothing here touches a file descriptor: output is appended to caller-owned byte slices and input
// arrives as raw chunks, so the same code drives telnet, websocket and pipe transports.
package terminal
