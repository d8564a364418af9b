package jeelabs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Bridge operation constants.
const (
	// readBufferSize is the largest chunk taken from the port per read.
	readBufferSize = 256

	// maxReconnectInterval caps the serial reopen backoff.
	maxReconnectInterval = 2 * time.Minute

	// reconnectBackoffFactor multiplies the delay after each failed open.
	reconnectBackoffFactor = 1.5

	// minIdleRead is the shortest duration an empty read may take before it
	// counts towards hangup detection. A port that times out normally blocks
	// for the full read timeout.
	minIdleRead = 10 * time.Millisecond

	// maxFastEOF is the number of consecutive instant end-of-file reads
	// treated as a vanished device.
	maxFastEOF = 50

	// maxCachedNodes bounds the last-reading cache used by read requests.
	maxCachedNodes = 256

	// Malformed-frame warnings: a burst of warnBurst, then one per warnEvery.
	// Suppressed warnings are logged at debug level.
	warnEvery = 10 * time.Second
	warnBurst = 5
)

// Logger is the structured logger the bridge writes to.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Bridge reads frames from a JeeLink, decodes them and publishes readings.
//
// One goroutine owns the serial port: it reads, frames, decodes and
// enqueues readings in arrival order. A second goroutine drains the queue
// into the Publisher, so a slow broker never stalls the serial read. When
// the queue is full new readings are dropped and counted.
//
// Thread Safety: All exported methods are safe for concurrent use.
type Bridge struct {
	cfg       Config
	mqtt      MQTTClient
	publisher Publisher
	opener    Opener
	decoder   *Decoder
	framer    *LineFramer
	health    *HealthReporter
	metrics   *Metrics

	queue       chan NodeReading
	stats       counters
	warnLimiter *rate.Limiter

	// everConnected is only touched by the reader goroutine.
	everConnected bool

	// Last reading per node, served to read requests
	lastReadings   map[string]cachedReading
	lastReadingsMu sync.RWMutex

	// Shutdown coordination
	started    atomic.Bool
	stopOnce   sync.Once
	readerWG   sync.WaitGroup
	workerWG   sync.WaitGroup
	ctx        context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel  context.CancelFunc // Cancel function for ctx
	stopParent func() bool        // Detaches ctx from the Start context

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// cachedReading is a reading with its decode time.
type cachedReading struct {
	reading NodeReading
	at      time.Time
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the bridge configuration.
	Config *Config

	// MQTTClient is used for health, requests and, unless Publisher is
	// set, state messages.
	MQTTClient MQTTClient

	// Publisher is optional. Default: MQTTPublisher over MQTTClient.
	Publisher Publisher

	// Opener is optional. Default: OpenSerial.
	Opener Opener

	// Metrics is optional.
	Metrics *Metrics

	// StatsRecorder is optional. It receives a snapshot on every health tick.
	StatsRecorder StatsRecorder

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Config.Port == "" {
		return nil, fmt.Errorf("serial port is required")
	}

	cfg := opts.Config.withDefaults()

	publisher := opts.Publisher
	if publisher == nil {
		publisher = NewMQTTPublisher(opts.MQTTClient, cfg.BridgeID, cfg.QoS)
	}
	opener := opts.Opener
	if opener == nil {
		opener = OpenSerial
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:          cfg,
		mqtt:         opts.MQTTClient,
		publisher:    publisher,
		opener:       opener,
		decoder:      NewDecoder(),
		framer:       NewLineFramer(cfg.MaxLineLength),
		metrics:      opts.Metrics,
		queue:        make(chan NodeReading, cfg.QueueSize),
		warnLimiter:  rate.NewLimiter(rate.Every(warnEvery), warnBurst),
		lastReadings: make(map[string]cachedReading),
		ctx:          ctx,
		ctxCancel:    ctxCancel,
		logger:       opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  cfg.BridgeID,
		Version:   cfg.Version,
		Port:      cfg.Port,
		Interval:  cfg.HealthInterval,
		Publisher: opts.MQTTClient,
		Source:    b,
		Recorder:  opts.StatsRecorder,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start begins bridge operation: it subscribes to requests, starts the
// serial reader and the publish worker, and starts health reporting.
// Cancelling ctx stops reading; call Stop to drain and shut down.
//
// A serial port that cannot be opened is not an error. The reader keeps
// retrying with backoff and health reports "degraded" meanwhile.
func (b *Bridge) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	b.stopParent = context.AfterFunc(ctx, b.ctxCancel)

	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	requestTopic := RequestSubscribeTopic()
	if err := b.mqtt.Subscribe(requestTopic, 1, b.handleRequest); err != nil {
		b.ctxCancel()
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	b.logInfo("subscribed to requests", "topic", requestTopic)

	b.workerWG.Add(1)
	go b.publishWorker()

	b.readerWG.Add(1)
	go b.readLoop()

	b.health.Start(b.ctx)

	b.logInfo("bridge started",
		"bridge_id", b.cfg.BridgeID,
		"port", b.cfg.Port,
		"queue_size", b.cfg.QueueSize)

	return nil
}

// Stop gracefully shuts down the bridge. The reader is stopped and the
// port closed first, then readings already queued are published, then a
// final "stopping" health status is sent.
// Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		if !b.started.Load() {
			return
		}
		b.stopParent()

		b.readerWG.Wait()

		close(b.queue)
		b.workerWG.Wait()

		if b.mqtt.IsConnected() {
			if err := b.mqtt.Unsubscribe(RequestSubscribeTopic()); err != nil {
				b.logDebug("failed to unsubscribe from requests", "error", err)
			}
		}

		b.health.Stop()

		stats := b.Stats()
		b.logInfo("bridge stopped",
			"frames_received", stats.FramesReceived,
			"readings_published", stats.ReadingsPublished,
			"publish_dropped", stats.PublishDropped)
	})
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		FramesReceived:    b.stats.framesReceived.Load(),
		ReadingsPublished: b.stats.readingsPublished.Load(),
		FormatErrors:      b.stats.formatErrors.Load(),
		UnsupportedFrames: b.stats.unsupportedFrames.Load(),
		IgnoredLines:      b.framer.Ignored(),
		OverflowedLines:   b.framer.Overflows(),
		PublishErrors:     b.stats.publishErrors.Load(),
		PublishDropped:    b.stats.publishDropped.Load(),
		Reconnects:        b.stats.reconnects.Load(),
		SerialConnected:   b.stats.serialConnected.Load(),
		ConnectedSince:    unixNanoTime(b.stats.connectedSince.Load()),
		LastFrame:         unixNanoTime(b.stats.lastFrame.Load()),
	}
}

// readLoop owns the serial port for the lifetime of the bridge.
func (b *Bridge) readLoop() {
	defer b.readerWG.Done()

	var port Port
	defer func() {
		if port != nil {
			b.closePort(port, nil)
		}
	}()

	buf := make([]byte, readBufferSize)
	var delay time.Duration
	fastEOF := 0

	for {
		if port == nil {
			if port = b.openPort(delay); port == nil {
				return
			}
			fastEOF = 0
		}

		started := time.Now()
		n, err := port.Read(buf)
		if n > 0 {
			fastEOF = 0
			b.handleChunk(buf[:n])
		}
		if b.ctx.Err() != nil {
			return
		}
		if err == nil {
			continue
		}

		if errors.Is(err, io.EOF) {
			// Read timeout on Linux.
			if n > 0 || time.Since(started) >= minIdleRead {
				fastEOF = 0
				continue
			}
			if fastEOF++; fastEOF < maxFastEOF {
				continue
			}
			err = ErrPortHangup
		}

		b.closePort(port, err)
		port = nil
		delay = b.cfg.ReconnectInterval
	}
}

// openPort opens the serial port, retrying with backoff until it succeeds
// or the bridge is stopped. It waits delay before the first attempt.
// Returns nil on shutdown.
func (b *Bridge) openPort(delay time.Duration) Port {
	backoff := b.cfg.ReconnectInterval

	for attempt := 1; ; attempt++ {
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-b.ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
		if b.ctx.Err() != nil {
			return nil
		}

		port, err := b.opener(b.cfg.Port, b.cfg.ReadTimeout)
		if err == nil {
			b.markConnected(attempt)
			return port
		}

		b.logError("failed to open serial port", err,
			"port", b.cfg.Port,
			"attempt", attempt,
			"retry_in", backoff.String())

		delay = backoff
		backoff = nextBackoff(backoff)
	}
}

// nextBackoff grows d by reconnectBackoffFactor up to maxReconnectInterval.
func nextBackoff(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * reconnectBackoffFactor)
	if next > maxReconnectInterval {
		next = maxReconnectInterval
	}
	return next
}

func (b *Bridge) markConnected(attempt int) {
	b.framer.Reset()

	reconnect := b.everConnected
	if reconnect {
		b.stats.reconnects.Add(1)
	}
	b.everConnected = true

	b.stats.connectedSince.Store(time.Now().UnixNano())
	b.stats.serialConnected.Store(true)
	b.metrics.serialState(true, reconnect)

	b.logInfo("serial port opened",
		"port", b.cfg.Port,
		"baud", BaudRate,
		"attempt", attempt,
		"reconnect", reconnect)
}

// closePort closes the port. A non-nil cause is logged as the reason.
func (b *Bridge) closePort(port Port, cause error) {
	if err := port.Close(); err != nil {
		b.logDebug("error closing serial port", "error", err)
	}
	b.stats.serialConnected.Store(false)
	b.metrics.serialState(false, false)

	if cause != nil {
		b.logError("serial port failed, reopening", cause,
			"port", b.cfg.Port,
			"retry_in", b.cfg.ReconnectInterval.String())
		return
	}
	b.logInfo("serial port closed", "port", b.cfg.Port)
}

// handleChunk frames a chunk of serial input and handles each frame.
func (b *Bridge) handleChunk(chunk []byte) {
	ignored, overflows := b.framer.Ignored(), b.framer.Overflows()

	frames := b.framer.Feed(chunk)

	if n := b.framer.Overflows() - overflows; n > 0 {
		b.metrics.discarded(reasonOverflow, n)
		b.logWarn("discarded oversized serial line", "max_line_length", b.cfg.MaxLineLength)
	}
	if n := b.framer.Ignored() - ignored; n > 0 {
		b.metrics.discarded(reasonNoMarker, n)
	}

	for _, frame := range frames {
		b.handleFrame(frame)
	}
}

// handleFrame decodes one frame and queues the reading.
func (b *Bridge) handleFrame(frame Frame) {
	now := time.Now()
	b.stats.framesReceived.Add(1)
	b.stats.lastFrame.Store(now.UnixNano())

	reading, err := b.decoder.Decode(frame)
	if err != nil {
		if errors.Is(err, ErrUnsupportedNodeType) {
			b.stats.unsupportedFrames.Add(1)
			b.metrics.frame(resultUnsupported)
			b.logDebug("ignoring frame", "line", string(frame), "error", err)
			return
		}
		b.stats.formatErrors.Add(1)
		b.metrics.frame(resultFormatError)
		b.warnMalformed(frame, err)
		return
	}

	b.metrics.frame(resultDecoded)
	b.logInfo("reading decoded", reading.logArgs()...)

	b.remember(reading, now)
	b.enqueue(reading)
}

// warnMalformed logs a malformed frame, rate limited so a noisy radio
// cannot flood the log.
func (b *Bridge) warnMalformed(frame Frame, err error) {
	if b.warnLimiter.Allow() {
		b.logWarn("malformed frame", "line", string(frame), "error", err)
		return
	}
	b.logDebug("malformed frame", "line", string(frame), "error", err)
}

// remember caches the latest reading for a node.
func (b *Bridge) remember(reading NodeReading, at time.Time) {
	b.lastReadingsMu.Lock()
	defer b.lastReadingsMu.Unlock()

	if _, ok := b.lastReadings[reading.NodeID]; !ok && len(b.lastReadings) >= maxCachedNodes {
		return
	}
	b.lastReadings[reading.NodeID] = cachedReading{reading: reading, at: at}
}

// enqueue hands a reading to the publish worker without blocking.
func (b *Bridge) enqueue(reading NodeReading) {
	select {
	case b.queue <- reading:
	default:
		b.stats.publishDropped.Add(1)
		b.metrics.dropped()
		b.logWarn("dropping reading",
			"error", ErrQueueFull,
			"node_id", reading.NodeID,
			"queue_size", cap(b.queue))
	}
}

// publishWorker publishes queued readings in order until the queue is closed.
func (b *Bridge) publishWorker() {
	defer b.workerWG.Done()

	for reading := range b.queue {
		b.publish(reading)
	}
}

// publish delivers one reading. Failures and panics are counted and logged.
func (b *Bridge) publish(reading NodeReading) {
	defer func() {
		if r := recover(); r != nil {
			b.stats.publishErrors.Add(1)
			b.metrics.publishFailed()
			b.logError("publisher panicked", fmt.Errorf("panic: %v", r), "node_id", reading.NodeID)
		}
	}()

	if err := b.publisher.Publish(reading); err != nil {
		b.stats.publishErrors.Add(1)
		b.metrics.publishFailed()
		b.logError("failed to publish reading", err, "node_id", reading.NodeID)
		return
	}

	b.stats.readingsPublished.Add(1)
	b.metrics.published()
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
