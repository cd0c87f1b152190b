// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/bureau-foundation/realtime-portal/realtime"
)

// Names under which the interface is published.
const (
	DefaultBusName    = "org.freedesktop.portal.Desktop"
	DefaultObjectPath = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	Interface         = "org.freedesktop.portal.Realtime"

	// InterfaceVersion is the value of the "version" property.
	InterfaceVersion uint32 = 1

	// ErrorFailed is the D-Bus error name for failures that did not
	// come from RealtimeKit.
	ErrorFailed = "org.freedesktop.portal.Error.Failed"
)

// IdentifyFunc returns the identity of the application that owns the
// bus name sender.
type IdentifyFunc func(ctx context.Context, sender string) (realtime.CallerIdentity, error)

// Scheduler is the request bridge. [realtime.Bridge] implements it.
type Scheduler interface {
	SetThreadRealtime(ctx context.Context, caller realtime.CallerIdentity, processID, threadID uint64, priority uint32, completion *realtime.Completion[struct{}])
	SetThreadHighPriority(ctx context.Context, caller realtime.CallerIdentity, processID, threadID uint64, priority int32, completion *realtime.Completion[struct{}])
	GetProperty(ctx context.Context, propertyName string, completion *realtime.Completion[int64])
}

// Config holds configuration for creating a Portal.
type Config struct {
	// Connection is the session bus connection to export on. Required.
	Connection *dbus.Conn

	// Scheduler forwards requests to RealtimeKit. Required.
	Scheduler Scheduler

	// Identify resolves callers. Required.
	Identify IdentifyFunc

	// BusName is requested on Start. When empty, no name is requested
	// and the object is reachable only through the connection's unique
	// name.
	BusName string

	// ReplaceExisting takes over BusName from a current owner that
	// allows replacement.
	ReplaceExisting bool

	// ObjectPath defaults to DefaultObjectPath.
	ObjectPath dbus.ObjectPath

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Portal publishes the realtime interface.
type Portal struct {
	connection      *dbus.Conn
	busName         string
	replaceExisting bool
	objectPath      dbus.ObjectPath
	object          *realtimeObject
	logger          *slog.Logger

	mutex   sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// New creates a Portal. Nothing is exported until Start.
func New(config Config) (*Portal, error) {
	if config.Connection == nil {
		return nil, fmt.Errorf("portal: Connection is required")
	}
	if config.Scheduler == nil {
		return nil, fmt.Errorf("portal: Scheduler is required")
	}
	if config.Identify == nil {
		return nil, fmt.Errorf("portal: Identify is required")
	}

	objectPath := config.ObjectPath
	if objectPath == "" {
		objectPath = DefaultObjectPath
	}
	if !objectPath.IsValid() {
		return nil, fmt.Errorf("portal: invalid object path %q", objectPath)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Portal{
		connection:      config.Connection,
		busName:         config.BusName,
		replaceExisting: config.ReplaceExisting,
		objectPath:      objectPath,
		object: &realtimeObject{
			scheduler: config.Scheduler,
			identify:  config.Identify,
			logger:    logger,
		},
		logger: logger,
	}, nil
}

// Start exports the interface and, if configured, acquires the bus
// name. Requests in flight when ctx is cancelled fail with the
// cancellation error.
func (p *Portal) Start(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.started {
		return fmt.Errorf("portal: already started")
	}

	requestContext, cancel := context.WithCancel(ctx)
	p.object.setContext(requestContext)

	if err := p.connection.Export(p.object, p.objectPath, Interface); err != nil {
		cancel()
		return fmt.Errorf("portal: exporting %s: %w", Interface, err)
	}

	properties, err := prop.Export(p.connection, p.objectPath, prop.Map{
		Interface: {
			"version": {Value: InterfaceVersion, Writable: false, Emit: prop.EmitFalse},
		},
	})
	if err != nil {
		p.unexport()
		cancel()
		return fmt.Errorf("portal: exporting properties: %w", err)
	}

	node := introspectionNode(p.objectPath, properties.Introspection(Interface))
	if err := p.connection.Export(introspect.NewIntrospectable(node), p.objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		p.unexport()
		cancel()
		return fmt.Errorf("portal: exporting introspection: %w", err)
	}

	if p.busName != "" {
		if err := p.requestName(); err != nil {
			p.unexport()
			cancel()
			return err
		}
	}

	p.started = true
	p.cancel = cancel
	p.logger.Info("realtime portal started",
		"bus_name", p.busName,
		"object_path", p.objectPath,
		"interface", Interface,
		"version", InterfaceVersion,
	)
	return nil
}

// Stop releases the bus name, removes the exported objects and cancels
// in-flight requests.
func (p *Portal) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if !p.started {
		return
	}
	if p.busName != "" {
		if _, err := p.connection.ReleaseName(p.busName); err != nil {
			p.logger.Warn("releasing bus name failed", "bus_name", p.busName, "error", err)
		}
	}
	p.unexport()
	p.cancel()
	p.started = false
	p.logger.Info("realtime portal stopped")
}

func (p *Portal) requestName() error {
	flags := dbus.NameFlagDoNotQueue
	if p.replaceExisting {
		flags |= dbus.NameFlagReplaceExisting
	}
	reply, err := p.connection.RequestName(p.busName, flags)
	if err != nil {
		return fmt.Errorf("portal: requesting %s: %w", p.busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("portal: bus name %s is already owned", p.busName)
	}
	return nil
}

func (p *Portal) unexport() {
	p.connection.Export(nil, p.objectPath, Interface)
	p.connection.Export(nil, p.objectPath, "org.freedesktop.DBus.Properties")
	p.connection.Export(nil, p.objectPath, "org.freedesktop.DBus.Introspectable")
}

// introspectionNode describes the exported object.
func introspectionNode(path dbus.ObjectPath, properties []introspect.Property) *introspect.Node {
	in := func(name, signature string) introspect.Arg {
		return introspect.Arg{Name: name, Type: signature, Direction: "in"}
	}
	return &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name: Interface,
				Methods: []introspect.Method{
					{
						Name: "MakeThreadRealtimeWithPID",
						Args: []introspect.Arg{in("process", "t"), in("thread", "t"), in("priority", "u")},
					},
					{
						Name: "MakeThreadHighPriorityWithPID",
						Args: []introspect.Arg{in("process", "t"), in("thread", "t"), in("priority", "i")},
					},
					{
						Name: "GetProperty",
						Args: []introspect.Arg{
							in("property_name", "s"),
							{Name: "value", Type: "x", Direction: "out"},
						},
					},
				},
				Properties: properties,
			},
		},
	}
}

// toDBusError converts a request failure into a method error reply.
// Only a RealtimeKit error is relayed under its own name; everything
// else, including bus daemon errors met while identifying the caller,
// becomes ErrorFailed.
func toDBusError(err error) *dbus.Error {
	if realtime.KindOf(err) == realtime.UpstreamCallFailed {
		var remote dbus.Error
		if errors.As(err, &remote) {
			return &remote
		}
		var remotePointer *dbus.Error
		if errors.As(err, &remotePointer) && remotePointer != nil {
			return remotePointer
		}
	}
	return dbus.NewError(ErrorFailed, []any{err.Error()})
}
