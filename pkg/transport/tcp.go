// Copyright 2025 Netsort Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fagongzi/goetty/v2"
	"github.com/netsort/netsort/pkg/common/nserr"
	"github.com/netsort/netsort/pkg/logutil"
	"github.com/netsort/netsort/pkg/partition"
	"go.uber.org/zap"
)

const (
	defaultConnectTimeout = 10 * time.Second
	dialRetryInterval     = 100 * time.Millisecond

	// inboxSize bounds frames buffered per peer. The lockstep schedule
	// leaves at most one data frame and one barrier frame in flight per
	// directed pair.
	inboxSize = 16
)

// TCPConfig configures one rank of a TCP process group.
type TCPConfig struct {
	// Rank of this process.
	Rank int
	// Addresses lists the listen address of every rank, in rank order.
	// len(Addresses) is the process count and must be a power of two.
	Addresses []string
	// ConnectTimeout bounds how long dialing a peer may take, retries
	// included. Zero means 10s.
	ConnectTimeout time.Duration
}

// TCPProc is one rank of a process group connected over TCP. Frames are
// length-prefixed on goetty sessions; each rank dials every peer it sends to,
// so every connection carries frames in one direction only and per-pair FIFO
// order follows from TCP ordering.
type TCPProc struct {
	rank           int
	addrs          []string
	connectTimeout time.Duration
	logger         *zap.Logger

	listener  net.Listener
	inboxes   []chan *frame
	sessionID atomic.Uint64
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu struct {
		sync.Mutex
		dialed      []goetty.IOSession
		accepted    []goetty.IOSession
		seqs        []uint32
		inboxClosed []bool
	}
}

var _ Proc = (*TCPProc)(nil)

// NewTCPProc validates cfg, binds this rank's listen address and starts
// accepting peer connections. Dialing peers happens lazily on first send.
func NewTCPProc(ctx context.Context, cfg TCPConfig) (*TCPProc, error) {
	procs := len(cfg.Addresses)
	if !partition.IsPowerOfTwo(procs) {
		return nil, nserr.NewBadConfig(ctx, "process count %d is not a power of two", procs)
	}
	if cfg.Rank < 0 || cfg.Rank >= procs {
		return nil, nserr.NewRankOutOfRange(ctx, cfg.Rank, procs)
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	listener, err := net.Listen("tcp", cfg.Addresses[cfg.Rank])
	if err != nil {
		return nil, nserr.NewBadConfig(ctx, "rank %d can not listen on %s: %v",
			cfg.Rank, cfg.Addresses[cfg.Rank], err)
	}

	p := &TCPProc{
		rank:           cfg.Rank,
		addrs:          cfg.Addresses,
		connectTimeout: cfg.ConnectTimeout,
		logger:         logutil.GetGlobalLogger().With(zap.Int("rank", cfg.Rank)),
		listener:       listener,
		inboxes:        make([]chan *frame, procs),
		closed:         make(chan struct{}),
	}
	for i := range p.inboxes {
		p.inboxes[i] = make(chan *frame, inboxSize)
	}
	p.mu.dialed = make([]goetty.IOSession, procs)
	p.mu.seqs = make([]uint32, procs)
	p.mu.inboxClosed = make([]bool, procs)

	p.wg.Add(1)
	go p.acceptLoop()
	return p, nil
}

func (p *TCPProc) Rank() int  { return p.rank }
func (p *TCPProc) Procs() int { return len(p.addrs) }

// Address returns the address this rank actually listens on, which differs
// from the configured one when it was bound to port 0.
func (p *TCPProc) Address() string {
	return p.listener.Addr().String()
}

func (p *TCPProc) Exchange(ctx context.Context, partner int, data []int64) ([]int64, error) {
	if partner < 0 || partner >= len(p.addrs) {
		return nil, nserr.NewRankOutOfRange(ctx, partner, len(p.addrs))
	}
	if partner == p.rank {
		return nil, nserr.NewInvalidInput(ctx, "rank %d exchanging with itself", p.rank)
	}

	seq := p.nextSeq(partner)
	if err := p.send(ctx, partner, &frame{kind: frameData, from: uint32(p.rank), seq: seq, data: data}); err != nil {
		return nil, err
	}
	f, err := p.recv(ctx, partner, frameData)
	if err != nil {
		return nil, err
	}
	if f.seq != seq {
		return nil, nserr.NewSeqNotMatch(ctx, seq, f.seq)
	}
	if len(f.data) != len(data) {
		return nil, nserr.NewSizeNotMatch(ctx, len(data), len(f.data))
	}
	return f.data, nil
}

// Barrier is a dissemination barrier: log2(P) rounds of empty pairwise
// rendezvous with partner rank^2^i. For power-of-two groups every rank has
// heard, directly or transitively, from every other rank once all rounds
// complete.
func (p *TCPProc) Barrier(ctx context.Context) error {
	for dist := 1; dist < len(p.addrs); dist <<= 1 {
		partner := p.rank ^ dist
		seq := p.nextSeq(partner)
		if err := p.send(ctx, partner, &frame{kind: frameBarrier, from: uint32(p.rank), seq: seq}); err != nil {
			return err
		}
		f, err := p.recv(ctx, partner, frameBarrier)
		if err != nil {
			return err
		}
		if f.seq != seq {
			return nserr.NewSeqNotMatch(ctx, seq, f.seq)
		}
	}
	return nil
}

// Scatter distributes partitions from rank 0 and returns this rank's own.
// Every rank calls it; parts is consulted on rank 0 only and must hold one
// partition per rank.
func (p *TCPProc) Scatter(ctx context.Context, parts [][]int64) ([]int64, error) {
	if p.rank != 0 {
		f, err := p.recv(ctx, 0, frameScatter)
		if err != nil {
			return nil, err
		}
		return f.data, nil
	}
	if len(parts) != len(p.addrs) {
		return nil, nserr.NewSizeNotMatch(ctx, len(p.addrs), len(parts))
	}
	for rank := 1; rank < len(p.addrs); rank++ {
		if err := p.send(ctx, rank, &frame{kind: frameScatter, from: 0, data: parts[rank]}); err != nil {
			return nil, err
		}
	}
	return parts[0], nil
}

// Gather collects all partitions at rank 0 in rank order. Every rank calls
// it with its own partition; the result is non-nil on rank 0 only.
func (p *TCPProc) Gather(ctx context.Context, own []int64) ([][]int64, error) {
	if p.rank != 0 {
		return nil, p.send(ctx, 0, &frame{kind: frameGather, from: uint32(p.rank), data: own})
	}
	parts := make([][]int64, len(p.addrs))
	parts[0] = own
	for rank := 1; rank < len(p.addrs); rank++ {
		f, err := p.recv(ctx, rank, frameGather)
		if err != nil {
			return nil, err
		}
		if len(f.data) != len(own) {
			return nil, nserr.NewSizeNotMatch(ctx, len(own), len(f.data))
		}
		parts[rank] = f.data
	}
	return parts, nil
}

func (p *TCPProc) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		close(p.closed)
		for _, s := range p.mu.dialed {
			if s != nil {
				_ = s.Close()
			}
		}
		for _, s := range p.mu.accepted {
			_ = s.Close()
		}
		p.mu.Unlock()
		if err := p.listener.Close(); err != nil {
			p.logger.Debug("listener close failed", zap.Error(err))
		}
	})
	p.wg.Wait()
	return nil
}

// closeInbox marks the stream from one peer as ended, turning every pending
// and future recv on it into ErrUnexpectedEOF. Frames already buffered are
// still delivered first.
func (p *TCPProc) closeInbox(from int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mu.inboxClosed[from] {
		return
	}
	p.mu.inboxClosed[from] = true
	close(p.inboxes[from])
}

func (p *TCPProc) nextSeq(peer int) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mu.seqs[peer]++
	return p.mu.seqs[peer]
}

func (p *TCPProc) send(ctx context.Context, peer int, f *frame) error {
	s, err := p.session(ctx, peer)
	if err != nil {
		return err
	}
	if err := s.Write(f, goetty.WriteOptions{Flush: true}); err != nil {
		return nserr.ConvertGoError(ctx, err)
	}
	return nil
}

func (p *TCPProc) recv(ctx context.Context, from int, kind byte) (*frame, error) {
	select {
	case f, ok := <-p.inboxes[from]:
		if !ok {
			return nil, nserr.NewUnexpectedEOF(ctx, from)
		}
		if f.kind != kind {
			return nil, nserr.NewInternalError(ctx,
				"unexpected frame kind %d from rank %d, expected %d", f.kind, from, kind)
		}
		return f, nil
	case <-ctx.Done():
		return nil, nserr.ConvertGoError(ctx, ctx.Err())
	case <-p.closed:
		return nil, nserr.NewTransportClosed(ctx)
	}
}

// session returns the dialed send session for peer, establishing it on first
// use. Peers start independently, so connecting retries until the timeout.
// Only this rank's own goroutine dials, so the lock is not held while
// connecting.
func (p *TCPProc) session(ctx context.Context, peer int) (goetty.IOSession, error) {
	p.mu.Lock()
	if s := p.mu.dialed[peer]; s != nil {
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	var lastErr error
	deadline := time.Now().Add(p.connectTimeout)
	for {
		select {
		case <-ctx.Done():
			return nil, nserr.ConvertGoError(ctx, ctx.Err())
		case <-p.closed:
			return nil, nserr.NewTransportClosed(ctx)
		default:
		}
		s := goetty.NewIOSession(goetty.WithSessionCodec(newFrameCodec()))
		ok, err := s.Connect(p.addrs[peer], p.connectTimeout)
		if err == nil && !ok {
			err = nserr.NewInternalError(ctx, "connection not established")
		}
		lastErr = err
		if lastErr == nil {
			hello := &frame{kind: frameHello, from: uint32(p.rank)}
			if lastErr = s.Write(hello, goetty.WriteOptions{Flush: true}); lastErr == nil {
				p.mu.Lock()
				select {
				case <-p.closed:
					p.mu.Unlock()
					_ = s.Close()
					return nil, nserr.NewTransportClosed(ctx)
				default:
				}
				p.mu.dialed[peer] = s
				p.mu.Unlock()
				return s, nil
			}
			_ = s.Close()
		}
		if time.Now().After(deadline) {
			return nil, nserr.NewBackendCannotConnect(ctx, peer, p.addrs[peer], lastErr)
		}
		time.Sleep(dialRetryInterval)
	}
}

func (p *TCPProc) acceptLoop() {
	defer p.wg.Done()
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case <-p.closed:
			default:
				p.logger.Error("accept failed", zap.Error(err))
			}
			return
		}
		rs := goetty.NewIOSession(
			goetty.WithSessionCodec(newFrameCodec()),
			goetty.WithSessionConn(p.sessionID.Add(1), conn))
		// Registration and shutdown are serialized on mu so a session is
		// either registered before Close sweeps the list, or sees closed
		// here and never starts.
		p.mu.Lock()
		select {
		case <-p.closed:
			p.mu.Unlock()
			_ = rs.Close()
			return
		default:
		}
		p.mu.accepted = append(p.mu.accepted, rs)
		p.wg.Add(1)
		p.mu.Unlock()
		go p.serveSession(rs)
	}
}

// serveSession reads one peer's frames and routes them to its inbox. The
// first frame must identify the dialing rank.
func (p *TCPProc) serveSession(rs goetty.IOSession) {
	defer p.wg.Done()
	defer func() {
		_ = rs.Close()
	}()

	msg, err := rs.Read(goetty.ReadOptions{})
	if err != nil {
		p.logger.Debug("session closed before hello", zap.Error(err))
		return
	}
	hello, ok := msg.(*frame)
	if !ok || hello.kind != frameHello || int(hello.from) >= len(p.addrs) {
		p.logger.Error("bad handshake frame", zap.Any("frame", msg))
		return
	}
	from := int(hello.from)

	for {
		msg, err := rs.Read(goetty.ReadOptions{})
		if err != nil {
			select {
			case <-p.closed:
			default:
				// Fail any rank blocked waiting on this peer: a
				// connection dying mid-run never recovers.
				p.logger.Debug("peer session closed",
					zap.Int("peer", from), zap.Error(err))
				p.closeInbox(from)
			}
			return
		}
		f, ok := msg.(*frame)
		if !ok {
			p.logger.Error("unexpected message type", zap.Any("message", msg))
			return
		}
		select {
		case p.inboxes[from] <- f:
		case <-p.closed:
			return
		}
	}
}
