package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsInterface = "org.freedesktop.Notifications"
	notifyMember           = "Notify"
)

// NotifyHandler is called for each notification that passes the filter.
type NotifyHandler func(n *Notification)

// Monitor passively observes D-Bus notification traffic without claiming ownership.
// This allows running alongside another notification daemon (like dunst).
type Monitor struct {
	mu     sync.Mutex
	conn   *dbus.Conn
	logger *slog.Logger
	filter Filter

	onNotify NotifyHandler
}

// NewMonitor creates a new notification monitor.
func NewMonitor(filter Filter, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger: logger,
		filter: filter,
	}
}

// SetNotifyHandler sets the callback for matching notifications.
func (m *Monitor) SetNotifyHandler(handler NotifyHandler) {
	m.mu.Lock()
	m.onNotify = handler
	m.mu.Unlock()
}

// Start connects to the session bus and begins monitoring.
func (m *Monitor) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	rules := []string{
		"type='method_call',interface='" + notificationsInterface + "',member='" + notifyMember + "'",
	}

	err = conn.BusObject().Call(
		"org.freedesktop.DBus.Monitoring.BecomeMonitor",
		0,
		rules,
		uint32(0),
	).Err
	if err != nil {
		// Older buses lack BecomeMonitor; eavesdropping may still be allowed
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		return m.startWithAddMatch(conn)
	}

	m.logger.Info("started D-Bus monitor using BecomeMonitor")
	go m.processMessages(conn)
	return nil
}

func (m *Monitor) startWithAddMatch(conn *dbus.Conn) error {
	matchRule := "type='method_call',interface='" + notificationsInterface + "',member='" + notifyMember + "',eavesdrop='true'"

	err := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err
	if err != nil {
		return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
	}

	m.logger.Info("started D-Bus monitor using AddMatch with eavesdrop")
	go m.processMessages(conn)
	return nil
}

func (m *Monitor) processMessages(conn *dbus.Conn) {
	ch := make(chan *dbus.Message, 100)
	conn.Eavesdrop(ch)

	for msg := range ch {
		m.HandleMessage(msg)
	}
}

// HandleMessage inspects a bus message and invokes the handler if it is a
// Notify call that passes the filter.
func (m *Monitor) HandleMessage(msg *dbus.Message) {
	if msg == nil || msg.Type != dbus.TypeMethodCall {
		return
	}
	if iface, ok := msg.Headers[dbus.FieldInterface]; !ok || iface.Value() != notificationsInterface {
		return
	}
	if member, ok := msg.Headers[dbus.FieldMember]; !ok || member.Value() != notifyMember {
		return
	}

	n, err := parseNotify(msg.Body)
	if err != nil {
		m.logger.Warn("ignoring Notify call", "error", err)
		return
	}
	if !m.filter.Match(n) {
		m.logger.Debug("notification filtered", "app", n.AppName, "urgency", n.Urgency())
		return
	}

	m.logger.Debug("captured notification", "app", n.AppName, "summary", n.Summary)

	m.mu.Lock()
	handler := m.onNotify
	m.mu.Unlock()
	if handler != nil {
		handler(n)
	}
}

// Stop closes the bus connection, which ends message processing.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}
