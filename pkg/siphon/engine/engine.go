// Package engine implements the proxy's per-connection state machine:
// Accepting -> Classifying -> (Tunneling | HttpExchange) -> Closed, plus
// the listener lifecycle, event fan-out, and metrics around it.
package engine

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/siphon/pkg/siphon/config"
	"github.com/yourusername/siphon/pkg/siphon/resolve"
	"github.com/yourusername/siphon/pkg/siphon/wire"
)

// Timeouts bundles the configurable default durations named in spec §5.
type Timeouts struct {
	ClientIdle       time.Duration
	UpstreamConnect  time.Duration
	UpstreamReadIdle time.Duration
	TunnelDrain      time.Duration
}

// DefaultTimeouts matches spec §5's defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ClientIdle:       30 * time.Second,
		UpstreamConnect:  DefaultUpstreamConnectTimeout,
		UpstreamReadIdle: 60 * time.Second,
		TunnelDrain:      DefaultTunnelDrainTimeout,
	}
}

// Engine owns one configuration Store, one host-resolution cache, and the
// listener for a single proxy instance. It is the counterpart to the
// teacher's Connection type, scaled up from one connection to the whole
// accept loop and the cross-connection state (config, cache, metrics,
// event bus) a single connection never needed.
type Engine struct {
	cfg      *config.Store
	cache    *resolve.Cache
	timeouts Timeouts
	logger   *logrus.Logger
	registry *prometheus.Registry
	metrics  *Metrics
	bus      *eventBus

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the default logrus.Logger.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTimeouts overrides the default Timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(e *Engine) { e.timeouts = t }
}

// WithResolveCache overrides the default host-resolution cache.
func WithResolveCache(c *resolve.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// New constructs an Engine around cfg. The caller owns starting/stopping
// it via Serve/Close.
func New(cfg *config.Store, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		cache:    resolve.New(0, 0),
		timeouts: DefaultTimeouts(),
		logger:   logrus.New(),
		registry: prometheus.NewRegistry(),
		bus:      newEventBus(),
	}
	e.metrics = newMetrics(e.registry)
	for _, opt := range opts {
		opt(e)
	}
	cfg.OnPortChange(func(port uint16) {
		e.logger.WithField("port", port).Info("listen port changed, restarting listener")
		if err := e.restart(); err != nil {
			e.logger.WithError(err).Error("failed to restart listener after port change")
		}
	})
	return e
}

// Registry exposes the Prometheus registry for mounting promhttp.Handler.
func (e *Engine) Registry() *prometheus.Registry {
	return e.registry
}

// Subscribe registers for exchange events; call the returned func to stop.
func (e *Engine) Subscribe(capacity int) (<-chan Event, func()) {
	return e.bus.Subscribe(capacity)
}

// Serve binds the listener at the current configured port and accepts
// connections until ctx is cancelled or Close is called.
func (e *Engine) Serve(ctx context.Context) error {
	snap := e.cfg.Snapshot()
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(int(snap.Port))))
	if err != nil {
		return newProxyError(KindConfigError, err, nil)
	}
	applyListenerTuning(ln)

	e.mu.Lock()
	e.listener = ln
	e.mu.Unlock()

	e.logger.WithField("port", snap.Port).Info("proxy listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				e.wg.Wait()
				return nil
			}
			return err
		}
		applyConnTuning(conn)
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.handleConn(ctx, conn)
		}()
	}
}

// restart closes the current listener, which makes Serve's Accept loop
// return net.ErrClosed; the caller of Serve is expected to re-invoke it
// (the CLI's serve command loops on this).
func (e *Engine) restart() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return nil
	}
	return e.listener.Close()
}

// Close stops accepting new connections. In-flight exchanges are not
// cancelled (spec §5: "a listener restart cancels no in-flight exchanges").
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return nil
	}
	return e.listener.Close()
}

// handleConn runs one client connection through Classifying ->
// (Tunneling | HttpExchange) -> Closed, looping HttpExchange for as many
// requests as keep-alive permits. Grounded on
// shockwave/pkg/shockwave/http11/connection.go's Connection.Serve, adapted
// from a single Handler callback to the fixed proxy pipeline (dial
// upstream, apply rewrites, relay) and generalized to dispatch into
// Tunneling for CONNECT instead of only ever answering HTTP exchanges.
func (e *Engine) handleConn(ctx context.Context, client net.Conn) {
	defer client.Close()

	dec := wire.NewRequestDecoder()
	var leftover []byte

	for {
		if e.timeouts.ClientIdle > 0 {
			_ = client.SetReadDeadline(time.Now().Add(e.timeouts.ClientIdle))
		}

		req, rest, err := readRequest(client, dec, leftover)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var netErr net.Error
			if !errors.As(err, &netErr) {
				_ = writeSimpleResponse(client, statusCodeFor(KindParseError), statusReasonFor(KindParseError))
			}
			e.publishFailure(KindParseError, nil, client.RemoteAddr().String())
			return
		}
		leftover = rest
		req.RemoteAddr = client.RemoteAddr().String()
		req.Timestamp = time.Now()

		if req.Method == wire.MethodCONNECT {
			e.handleConnect(ctx, client, req)
			return
		}

		keepAlive, err := e.runExchange(ctx, client, req)
		if err != nil {
			var perr *ProxyError
			if errors.As(err, &perr) {
				e.publishFailure(perr.Kind, perr.Partial, req.RemoteAddr)
			}
			return
		}
		if !keepAlive {
			return
		}

		dec.Reset()
	}
}

func (e *Engine) handleConnect(ctx context.Context, client net.Conn, req *wire.Request) {
	snap := e.cfg.Snapshot()

	host, err := e.resolveHost(req)
	if err != nil {
		_ = writeSimpleResponse(client, 400, "Bad Request")
		return
	}
	req.Host = host
	if !hostAllowed(snap.HostFilter, host.Host) {
		_ = writeSimpleResponse(client, 403, "Forbidden")
		return
	}

	target := resolveUpstream(host, snap.ExternalProxy)
	upstream, err := dialUpstream(ctx, target.dial, e.timeouts.UpstreamConnect)
	if err != nil {
		e.metrics.UpstreamConnErr.Inc()
		_ = writeSimpleResponse(client, 502, "Bad Gateway")
		e.publishFailure(KindUpstreamConnectError, req, req.RemoteAddr)
		return
	}
	defer upstream.Close()

	ok := &wire.Response{
		Proto:        "HTTP/1.1",
		StatusCode:   200,
		ReasonPhrase: "Connection Established",
		Header:       wire.NewHeaders(),
	}
	if err := wire.EncodeResponse(client, ok); err != nil {
		return
	}

	e.metrics.TunnelsTotal.Inc()
	if err := pumpTunnel(ctx, client, upstream, e.timeouts.TunnelDrain); err != nil {
		e.logger.WithError(err).WithField("remote", req.RemoteAddr).Warn("tunnel error")
	}
}

// runExchange implements spec §4.6's HttpExchange steps 1-9 for a single
// request, returning whether the client connection should stay open for
// another request.
func (e *Engine) runExchange(ctx context.Context, client net.Conn, req *wire.Request) (keepAlive bool, err error) {
	started := time.Now()
	snap := e.cfg.Snapshot()

	host, herr := e.resolveHost(req)
	if herr != nil {
		_ = writeSimpleResponse(client, 400, "Bad Request")
		return false, newProxyError(KindParseError, herr, req)
	}
	req.Host = host

	if !hostAllowed(snap.HostFilter, req.Host.Host) {
		_ = writeSimpleResponse(client, 403, "Forbidden")
		return false, nil
	}

	matchedRule, _, matched := snap.Rewrites.Match(req.Host.Host, requestPath(req.Target))
	if matched {
		e.metrics.RewriteMatches.Inc()
		applyRequestRewrite(req, matchedRule.RequestBody)
	}

	target := resolveUpstream(req.Host, snap.ExternalProxy)
	upstream, derr := dialUpstream(ctx, target.dial, e.timeouts.UpstreamConnect)
	if derr != nil {
		e.metrics.UpstreamConnErr.Inc()
		_ = writeSimpleResponse(client, 502, "Bad Gateway")
		return false, newProxyError(KindUpstreamConnectError, derr, req)
	}
	defer upstream.Close()
	if e.timeouts.UpstreamReadIdle > 0 {
		_ = upstream.SetDeadline(time.Now().Add(e.timeouts.UpstreamReadIdle))
	}

	if target.viaExternal {
		applyExternalForm(req, req.Host)
	}

	if err := wire.EncodeRequest(upstream, req); err != nil {
		return false, newProxyError(KindUpstreamConnectError, err, req)
	}

	respDec := wire.NewResponseDecoder(req.Method)
	resp, _, rerr := readResponse(upstream, respDec, nil)
	if rerr != nil {
		kind := KindUpstreamConnectError
		var netErr net.Error
		if errors.As(rerr, &netErr) && netErr.Timeout() {
			kind = KindUpstreamTimeoutError
		}
		_ = writeSimpleResponse(client, statusCodeFor(kind), statusReasonFor(kind))
		return false, newProxyError(kind, rerr, req)
	}
	resp.Timestamp = time.Now()

	if matched {
		applyResponseRewrite(resp, matchedRule.ResponseBody)
	}

	if err := wire.EncodeResponse(client, resp); err != nil {
		return false, newProxyError(KindParseError, err, req)
	}

	exch := wire.Exchange{
		ID:         uuid.NewString(),
		Request:    req,
		Response:   resp,
		RemoteAddr: req.RemoteAddr,
		Started:    started,
		DurationMs: time.Since(started).Milliseconds(),
	}
	e.metrics.ExchangesTotal.WithLabelValues("ok").Inc()
	e.metrics.ExchangeDuration.Observe(time.Since(started).Seconds())
	e.bus.Publish(Event{Exchange: exch})

	return req.KeepAlive() && resp.KeepAlive(req.Proto), nil
}

// resolveHost looks up req's target in the engine's resolution cache
// before falling back to wire.ClassifyTarget, so a proxy serving many
// requests to the same few origins doesn't re-parse (and, once an
// external DNS layer is plugged in, re-resolve) the target on every
// exchange. The decoder already classifies req.Host once at decode time;
// this overrides it with the cached value so both paths agree and the
// cache is actually exercised rather than merely populated.
func (e *Engine) resolveHost(req *wire.Request) (wire.HostAndPort, error) {
	key := string(req.Method) + "|" + req.Target + "|" + req.Header.Get("Host")
	if hp, ok := e.cache.Get(key); ok {
		return hp, nil
	}
	hp, err := wire.ClassifyTarget(req.Method, req.Target, req.Header.Get("Host"))
	if err != nil {
		return wire.HostAndPort{}, err
	}
	e.cache.Put(key, hp)
	return hp, nil
}

func (e *Engine) publishFailure(kind Kind, partial *wire.Request, remoteAddr string) {
	e.metrics.ExchangesTotal.WithLabelValues(kind.String()).Inc()
	ev := Event{Kind: kind, Failed: true}
	if partial != nil {
		ev.Exchange = wire.Exchange{Request: partial, RemoteAddr: remoteAddr, Started: time.Now()}
	}
	e.bus.Publish(ev)
}

func requestPath(target string) string {
	for _, prefix := range []string{"http://", "https://"} {
		if len(target) > len(prefix) && target[:len(prefix)] == prefix {
			rest := target[len(prefix):]
			for i := 0; i < len(rest); i++ {
				if rest[i] == '/' {
					return rest[i:]
				}
			}
			return "/"
		}
	}
	return target
}

func statusCodeFor(kind Kind) int    { c, _ := statusFor(kind); return c }
func statusReasonFor(kind Kind) string { _, r := statusFor(kind); return r }
