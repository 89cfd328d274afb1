package rpc

import (
	"context"
	"net"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// PeerRateLimiter hands out one token bucket per client host.
type PeerRateLimiter struct {
	mu    sync.Mutex
	peers map[string]*rate.Limiter
	r     rate.Limit
	b     int
}

// NewPeerRateLimiter allows r requests per second per host with bursts of b.
func NewPeerRateLimiter(r rate.Limit, b int) *PeerRateLimiter {
	if b < 1 {
		b = 1
	}
	return &PeerRateLimiter{
		peers: make(map[string]*rate.Limiter),
		r:     r,
		b:     b,
	}
}

// Limiter returns the bucket for host, creating it on first use.
func (l *PeerRateLimiter) Limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.peers[host]
	if !ok {
		limiter = rate.NewLimiter(l.r, l.b)
		l.peers[host] = limiter
	}
	return limiter
}

// RateLimitUnaryServerInterceptor rejects calls with ResourceExhausted once a
// host has spent its bucket. A nil limiter disables limiting.
func RateLimitUnaryServerInterceptor(l *PeerRateLimiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if l == nil {
			return handler(ctx, req)
		}
		if !l.Limiter(peerHost(ctx)).Allow() {
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded for %s", info.FullMethod)
		}
		return handler(ctx, req)
	}
}

func peerHost(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
