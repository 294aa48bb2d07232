// Package tcp implements the TCP client-facing transport. One goroutine
// accepts connections; each connection runs a read goroutine and a write
// goroutine, with a buffered channel between the runtime and the writer.
package tcp

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/UlusTech/nmc/log"
	"github.com/UlusTech/nmc/metrics"
	"github.com/UlusTech/nmc/network/transport"
)

// TCPTransportCfg holds the transport tunables.
type TCPTransportCfg struct {
	// Tag identifies this transport instance in plugin config.
	Tag string `mapstructure:"tag" yaml:"tag"`
	// Addr is the listen address, host:port.
	Addr string `mapstructure:"addr" yaml:"addr"`
	// IdleTimeout is the seconds a connection may sit without inbound
	// bytes before it is closed.
	IdleTimeout uint32 `mapstructure:"idleTimeout" yaml:"idleTimeout"`
	// SendChannelSize is the per-connection outbound queue depth.
	SendChannelSize uint32 `mapstructure:"sendChannelSize" yaml:"sendChannelSize"`
	// ReadChunkSize is the read buffer handed to each socket read.
	ReadChunkSize int `mapstructure:"readChunkSize" yaml:"readChunkSize"`
	// MaxConns caps simultaneous connections; 0 means unlimited.
	MaxConns int `mapstructure:"maxConns" yaml:"maxConns"`
}

// GetName returns the configuration key for the TCP transport settings.
func (c *TCPTransportCfg) GetName() string {
	return "tcp_transport"
}

// Validate checks the configuration ranges.
func (c *TCPTransportCfg) Validate() error {
	if c.Addr == "" {
		return errors.New("addr cannot be empty")
	}
	if c.SendChannelSize == 0 {
		return errors.New("sendChannelSize must be positive")
	}
	if c.ReadChunkSize <= 0 {
		return errors.New("readChunkSize must be positive")
	}
	if c.IdleTimeout == 0 {
		return errors.New("idleTimeout must be positive")
	}
	return nil
}

// DefaultCfg returns a TCP transport configuration with production defaults.
func DefaultCfg() *TCPTransportCfg {
	return &TCPTransportCfg{
		Addr:            ":25565",
		IdleTimeout:     30,
		SendChannelSize: 32,
		ReadChunkSize:   4096,
	}
}

// TCPTransport accepts TCP connections and shuttles bytes between the
// sockets and the chunk receiver.
type TCPTransport struct {
	*TCPTransportCfg
	conns    map[uint64]*tcpctx
	lock     sync.RWMutex
	receiver transport.ChunkReceiver
	listener *net.TCPListener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

var _ transport.CSTransport = (*TCPTransport)(nil)

// FactoryName reports the plugin factory that builds this transport.
func (t *TCPTransport) FactoryName() string { return "tcp_transport" }

// NewTCPTransport creates a TCP transport from the given configuration.
func NewTCPTransport(cfg *TCPTransportCfg) (*TCPTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid TCPTransportCfg")
	}
	return &TCPTransport{
		TCPTransportCfg: cfg,
		conns:           make(map[uint64]*tcpctx),
	}, nil
}

// Start begins listening and launches the accept loop.
func (t *TCPTransport) Start(opt transport.Option) error {
	if opt.Receiver == nil {
		return errors.New("transport option has no receiver")
	}
	t.receiver = opt.Receiver

	tcpAddr, err := net.ResolveTCPAddr("tcp", t.Addr)
	if err != nil {
		return errors.Wrapf(err, "resolve %q", t.Addr)
	}
	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return errors.Wrapf(err, "listen on %q", t.Addr)
	}
	t.listener = listener

	var ctx context.Context
	ctx, t.cancel = context.WithCancel(context.Background())
	t.wg.Add(1)
	go t.serve(ctx, listener)

	log.Info().Str("address", t.Addr).Msg("TCP transport listening")
	return nil
}

// Stop cancels the accept loop and closes every active connection. It
// returns after all connection goroutines have exited.
func (t *TCPTransport) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}

	t.lock.RLock()
	open := make([]*tcpctx, 0, len(t.conns))
	for _, c := range t.conns {
		open = append(open, c)
	}
	t.lock.RUnlock()
	for _, c := range open {
		c.Close("transport stopped")
	}

	t.wg.Wait()
	return nil
}

// serve is the accept loop. The one-second deadline lets it observe context
// cancellation between accepts.
func (t *TCPTransport) serve(ctx context.Context, listener *net.TCPListener) {
	defer t.wg.Done()
	defer func() { _ = listener.Close() }()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("address", t.Addr).Msg("TCP accept loop stopping")
			return
		default:
		}

		_ = listener.SetDeadline(time.Now().Add(time.Second))
		sock, err := listener.AcceptTCP()
		if err != nil {
			if opErr, ok := err.(*net.OpError); ok && opErr.Timeout() {
				continue
			}
			log.Error().Err(err).Msg("TCP accept failed")
			return
		}

		if t.MaxConns > 0 && t.ConnCount() >= t.MaxConns {
			metrics.IncrCounter("net", "conn_rejected_total", 1)
			log.Warn().Str("remote", sock.RemoteAddr().String()).
				Int("maxConns", t.MaxConns).Msg("Connection rejected, at capacity")
			_ = sock.Close()
			continue
		}

		connCtx, cancel := context.WithCancel(ctx)
		c := &tcpctx{
			ctx:       connCtx,
			cancel:    cancel,
			sock:      sock,
			remote:    sock.RemoteAddr().String(),
			sendCh:    make(chan []byte, t.SendChannelSize),
			transport: t,
		}
		c.id = t.receiver.OnConnOpened(c)
		t.addConn(c)
		c.serve()
	}
}

// ListenAddr returns the bound listen address, useful when the configured
// port was 0.
func (t *TCPTransport) ListenAddr() string {
	if t.listener == nil {
		return t.Addr
	}
	return t.listener.Addr().String()
}

// CloseConn implements transport.CSTransport.
func (t *TCPTransport) CloseConn(connID uint64, reason string) {
	t.lock.RLock()
	c, ok := t.conns[connID]
	t.lock.RUnlock()
	if ok {
		c.Close(reason)
	}
}

// ConnCount implements transport.CSTransport.
func (t *TCPTransport) ConnCount() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.conns)
}

func (t *TCPTransport) addConn(c *tcpctx) {
	t.lock.Lock()
	t.conns[c.id] = c
	t.lock.Unlock()
}

func (t *TCPTransport) removeConn(id uint64) {
	t.lock.Lock()
	delete(t.conns, id)
	t.lock.Unlock()
}

// tcpctx is one live TCP connection: the socket, its outbound queue and the
// two goroutines moving bytes.
type tcpctx struct {
	id        uint64
	ctx       context.Context
	cancel    context.CancelFunc
	sock      *net.TCPConn
	remote    string
	closeOnce sync.Once
	sendCh    chan []byte
	transport *TCPTransport
}

var _ transport.Conn = (*tcpctx)(nil)

// Remote implements transport.Conn.
func (c *tcpctx) Remote() string { return c.remote }

// Send implements transport.Conn. A full queue means the peer stopped
// draining; the frame is dropped and the caller should close.
func (c *tcpctx) Send(frame []byte) error {
	select {
	case c.sendCh <- frame:
		return nil
	default:
		metrics.IncrCounter("net", "send_channel_full_total", 1)
		return errors.Errorf("send queue full for conn %d", c.id)
	}
}

// Close implements transport.Conn. The socket itself is closed by the send
// goroutine after it flushes frames queued before the close; a response
// queued ahead of a Disconnect effect still reaches the peer.
func (c *tcpctx) Close(reason string) {
	c.closeOnce.Do(func() {
		log.Info().Uint64("conn", c.id).Str("remote", c.remote).
			Str("reason", reason).Msg("Closing TCP connection")
		c.transport.removeConn(c.id)
		c.cancel()
		c.transport.receiver.OnConnClosed(c.id, reason)
	})
}

func (c *tcpctx) serve() {
	c.transport.wg.Add(2)
	go c.serveSend()
	go c.serveRecv()
}

// serveRecv reads socket chunks and hands them to the receiver. The read
// deadline doubles as the idle timer.
func (c *tcpctx) serveRecv() {
	defer c.transport.wg.Done()
	defer c.Close("read loop ended")

	buf := make([]byte, c.transport.ReadChunkSize)
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		idle := time.Duration(c.transport.IdleTimeout) * time.Second
		_ = c.sock.SetReadDeadline(time.Now().Add(idle))
		n, err := c.sock.Read(buf)
		if n > 0 {
			metrics.IncrCounter("net", "bytes_read_total", metrics.Value(n))
			// The receiver may retain the chunk across reads; hand
			// it a copy so the next Read cannot clobber it.
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if rerr := c.transport.receiver.OnChunk(c.id, chunk); rerr != nil {
				c.Close(rerr.Error())
				return
			}
		}
		if err != nil {
			if opErr, ok := err.(*net.OpError); ok && opErr.Timeout() {
				c.Close("idle timeout")
				return
			}
			if !errors.Is(err, net.ErrClosed) {
				log.Debug().Err(err).Uint64("conn", c.id).Msg("Read ended")
			}
			c.Close("peer closed")
			return
		}
	}
}

// serveSend drains the outbound queue and owns the socket close.
func (c *tcpctx) serveSend() {
	defer c.transport.wg.Done()
	defer func() { _ = c.sock.Close() }()
	for {
		select {
		case <-c.ctx.Done():
			// Flush anything still queued, then close the socket.
			for {
				select {
				case frame := <-c.sendCh:
					_ = c.write(frame)
				default:
					return
				}
			}
		case frame := <-c.sendCh:
			if err := c.write(frame); err != nil {
				log.Debug().Err(err).Uint64("conn", c.id).Msg("Write failed")
				c.Close("write failed")
				return
			}
		}
	}
}

func (c *tcpctx) write(frame []byte) error {
	idle := time.Duration(c.transport.IdleTimeout) * time.Second
	_ = c.sock.SetWriteDeadline(time.Now().Add(idle))
	if _, err := c.sock.Write(frame); err != nil {
		return errors.Wrap(err, "write frame")
	}
	metrics.IncrCounter("net", "packets_sent_total", 1)
	metrics.IncrCounter("net", "bytes_sent_total", metrics.Value(len(frame)))
	return nil
}
