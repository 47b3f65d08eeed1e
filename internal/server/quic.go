package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/gravisim/internal/core/events/bus"
	"github.com/zeusync/gravisim/internal/core/observability/log"
	"github.com/zeusync/gravisim/internal/core/simulation"
)

const (
	// FeedALPN is the application protocol negotiated by feed peers.
	FeedALPN = "gravisim-feed"

	maxFrameSize = 16 << 20
)

// QuicFeed pushes step snapshots to QUIC viewers. Each connection gets one
// unidirectional stream of length-prefixed JSON frames.
type QuicFeed struct {
	listener *quic.Listener
	logger   log.Log
	sub      bus.Subscription

	mu     sync.Mutex
	peers  map[string]*feedPeer
	latest simulation.Snapshot
	closed bool
}

type feedPeer struct {
	conn  *quic.Conn
	inbox mailbox
}

// ListenFeed starts a QUIC listener on addr with a self-signed certificate.
func ListenFeed(addr string, eventBus bus.EventBus, initial simulation.Snapshot, logger log.Log) (*QuicFeed, error) {
	if eventBus == nil {
		return nil, ErrNilDependency
	}
	if logger == nil {
		logger = log.NewNop()
	}

	tlsConfig, err := generateInMemoryTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to generate TLS config: %w", err)
	}
	listener, err := quic.ListenAddr(addr, tlsConfig, &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	f := &QuicFeed{
		listener: listener,
		logger:   logger.With(log.String("component", "quic_feed")),
		peers:    make(map[string]*feedPeer),
		latest:   initial,
	}
	sub, err := eventBus.Subscribe(simulation.EventStep, func(e bus.Event) error {
		snap, err := snapshotOf(e)
		if err != nil {
			return err
		}
		f.broadcast(snap)
		return nil
	})
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	f.sub = sub
	return f, nil
}

// Addr returns the listening address.
func (f *QuicFeed) Addr() net.Addr { return f.listener.Addr() }

// Peers returns the number of connected viewers.
func (f *QuicFeed) Peers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.peers)
}

func (f *QuicFeed) broadcast(snap simulation.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = snap
	for _, p := range f.peers {
		p.inbox.offer(snap)
	}
}

func (f *QuicFeed) register(id string, p *feedPeer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFeedClosed
	}
	f.peers[id] = p
	p.inbox.offer(f.latest)
	return nil
}

func (f *QuicFeed) unregister(id string) {
	f.mu.Lock()
	delete(f.peers, id)
	f.mu.Unlock()
}

// Serve accepts viewers until ctx is done or the feed is closed.
func (f *QuicFeed) Serve(ctx context.Context) error {
	f.logger.Info("quic feed listening", log.String("addr", f.Addr().String()))

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := f.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = f.Close()
				return ctx.Err()
			}
			if errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			f.serveConn(ctx, conn)
		}()
	}
}

func (f *QuicFeed) serveConn(ctx context.Context, conn *quic.Conn) {
	id := uuid.NewString()
	logger := f.logger.With(log.String("viewer", id), log.String("remote", conn.RemoteAddr().String()))

	stream, err := conn.OpenUniStreamSync(ctx)
	if err != nil {
		logger.Warn("failed to open stream", log.Error(err))
		_ = conn.CloseWithError(1, "stream")
		return
	}

	peer := &feedPeer{conn: conn, inbox: newMailbox()}
	if err := f.register(id, peer); err != nil {
		_ = conn.CloseWithError(0, err.Error())
		return
	}
	defer f.unregister(id)
	logger.Info("viewer connected")

	for {
		select {
		case <-ctx.Done():
			_ = conn.CloseWithError(0, "shutdown")
			return
		case <-conn.Context().Done():
			logger.Info("viewer disconnected")
			return
		case snap := <-peer.inbox:
			if err := writeFrame(stream, snap); err != nil {
				logger.Debug("viewer write failed", log.Error(err))
				_ = conn.CloseWithError(1, "write")
				return
			}
		}
	}
}

// Close stops accepting viewers, disconnects the connected ones and drops the
// step subscription.
func (f *QuicFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	for _, p := range f.peers {
		_ = p.conn.CloseWithError(0, "feed closed")
	}
	f.mu.Unlock()

	return errors.Join(f.sub.Cancel(), f.listener.Close())
}

// FeedClient reads snapshots from a QuicFeed.
type FeedClient struct {
	conn   *quic.Conn
	stream io.Reader
}

// DialFeed connects to a feed. The server certificate is not verified.
func DialFeed(ctx context.Context, addr string) (*FeedClient, error) {
	conn, err := quic.DialAddr(ctx, addr, &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{FeedALPN},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &FeedClient{conn: conn}, nil
}

// Next blocks until the next snapshot arrives.
func (c *FeedClient) Next(ctx context.Context) (simulation.Snapshot, error) {
	var snap simulation.Snapshot
	if c.stream == nil {
		stream, err := c.conn.AcceptUniStream(ctx)
		if err != nil {
			return snap, fmt.Errorf("failed to accept stream: %w", err)
		}
		c.stream = stream
	}
	err := readFrame(c.stream, &snap)
	return snap, err
}

func (c *FeedClient) Close() error {
	return c.conn.CloseWithError(0, "client closed")
}

// writeFrame writes v as a 4-byte big-endian length followed by its JSON.
func writeFrame(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if len(data) > maxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}

	buf := make([]byte, 4, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	buf = append(buf, data...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

func readFrame(r io.Reader, v any) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return fmt.Errorf("failed to read frame length: %w", err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > maxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("failed to read frame data: %w", err)
	}
	return json.Unmarshal(data, v)
}

// generateInMemoryTLSConfig creates a self-signed certificate for the feed.
func generateInMemoryTLSConfig() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"gravisim"},
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{der},
			PrivateKey:  key,
		}},
		NextProtos: []string{FeedALPN},
	}, nil
}
