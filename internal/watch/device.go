package watch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"reelcat/internal/logging"
)

// DeviceMonitor listens for udev netlink events so a volume being attached
// can trigger a rescan of the watch roots without polling mounts.
type DeviceMonitor struct {
	logger  *slog.Logger
	handler func(ctx context.Context, device string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewDeviceMonitor creates a monitor that calls handler when a block device
// with a filesystem appears.
func NewDeviceMonitor(logger *slog.Logger, handler func(ctx context.Context, device string)) *DeviceMonitor {
	return &DeviceMonitor{
		logger:  logging.NewComponentLogger(logger, "device-monitor"),
		handler: handler,
	}
}

// Start begins listening for udev netlink events. A failure to connect is
// non-fatal: watching continues without device notifications.
func (m *DeviceMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; attach detection unavailable",
			logging.Error(err))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("device monitor started")
	return nil
}

// Stop shuts down the monitor.
func (m *DeviceMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("device monitor stopped")
}

// Running reports whether the monitor is active.
func (m *DeviceMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *DeviceMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleUEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("device monitor error", logging.Error(err))
		}
	}
}

// buildMatcher matches block partitions with a detected filesystem being
// added: SUBSYSTEM=block, ID_FS_USAGE=filesystem, ACTION=add|change.
func (m *DeviceMonitor) buildMatcher() netlink.Matcher {
	action := "add|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":   "block",
			"ID_FS_USAGE": "filesystem",
		},
	})
	return rules
}

func (m *DeviceMonitor) handleUEvent(ctx context.Context, uevent netlink.UEvent) {
	device := uevent.Env["DEVNAME"]
	if device == "" {
		return
	}
	m.logger.Info("storage device attached", logging.String("device", device))
	if m.handler != nil {
		m.handler(ctx, device)
	}
}
