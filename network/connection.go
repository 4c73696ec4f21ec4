package network

import (
	"net"
	"sync"
)

// TelnetConn is a net.Conn speaking the telnet byte protocol
// Reads return data with commands removed; writes escape IAC
type TelnetConn struct {
	net.Conn

	filter iacFilter // Reader-owned

	wmu  sync.Mutex
	wbuf []byte
}

// NewTelnetConn wraps an established connection
func NewTelnetConn(conn net.Conn) *TelnetConn {
	return &TelnetConn{Conn: conn}
}

// Negotiate sends the character-mode option requests
// Client replies are stripped by Read like any other command
func (c *TelnetConn) Negotiate() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.Conn.Write(negotiation)
	return err
}

// Read returns at least one data byte or an error
func (c *TelnetConn) Read(p []byte) (int, error) {
	for {
		n, err := c.Conn.Read(p)
		n = c.filter.filter(p[:n])
		if n > 0 || err != nil {
			return n, err
		}
	}
}

// Write escapes IAC bytes; the returned count refers to p
func (c *TelnetConn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if !needsEscape(p) {
		return c.Conn.Write(p)
	}
	c.wbuf = appendEscaped(c.wbuf[:0], p)
	if _, err := c.Conn.Write(c.wbuf); err != nil {
		return 0, err
	}
	return len(p), nil
}
