package ticsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wearlab/ariactl/device"
)

// DefaultPollInterval is how often client sync stability is checked while a
// session converges.
const DefaultPollInterval = 5 * time.Second

// NewSharedSessionID generates the id that ties one ticsync session's
// recordings together across devices.
func NewSharedSessionID() string {
	return uuid.NewString()
}

// Coordinator starts and tears down time-synchronized recordings across a
// server device and its clients.
type Coordinator struct {
	// Profile is the recording profile applied to every device.
	Profile string
	// CountryCode for the server hotspot radio, "US" when empty.
	CountryCode string
	// PollInterval between stability checks, DefaultPollInterval when zero.
	PollInterval time.Duration
	// Logf reports progress. Nil disables progress output.
	Logf func(format string, args ...any)
}

func (c *Coordinator) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}

// Start brings up a synchronized recording: the server hotspot first, then
// every client joined to it with the Wi-Fi hold on, then the recordings
// (server before clients) under one shared session id. It then blocks until
// all clients report stable sync or the context ends. The recordings keep
// running after Start returns; stop them with Cleanup.
func (c *Coordinator) Start(ctx context.Context, server *device.Device, clients []*device.Device) (string, error) {
	if len(clients) == 0 {
		return "", errors.New("a ticsync session needs at least one client device")
	}

	if err := c.joinHotspot(ctx, server, clients); err != nil {
		return "", err
	}

	sessionID := NewSharedSessionID()

	serverCfg := device.RecordingConfig{
		ProfileName:     c.Profile,
		TimeSyncMode:    device.TimeSyncModeServer,
		SharedSessionID: sessionID,
	}
	if err := server.Recording().SetConfig(ctx, serverCfg); err != nil {
		return "", fmt.Errorf("failed to configure server %s: %w", server.Info.Serial, err)
	}
	if err := server.Recording().Start(ctx); err != nil {
		return "", fmt.Errorf("failed to start server recording on %s: %w", server.Info.Serial, err)
	}
	c.logf("server %s recording, shared session %s", server.Info.Serial, sessionID)

	for _, client := range clients {
		clientCfg := serverCfg
		clientCfg.TimeSyncMode = device.TimeSyncModeClient
		if err := client.Recording().SetConfig(ctx, clientCfg); err != nil {
			return sessionID, fmt.Errorf("failed to configure client %s: %w", client.Info.Serial, err)
		}
		if err := client.Recording().Start(ctx); err != nil {
			return sessionID, fmt.Errorf("failed to start client recording on %s: %w", client.Info.Serial, err)
		}
		c.logf("client %s recording", client.Info.Serial)
	}

	if err := c.waitForStability(ctx, clients); err != nil {
		return sessionID, err
	}
	return sessionID, nil
}

// joinHotspot enables the server's hotspot and connects every client to it.
// Clients join with the Wi-Fi hold on so the link survives unplugging;
// Cleanup releases the hold.
func (c *Coordinator) joinHotspot(ctx context.Context, server *device.Device, clients []*device.Device) error {
	countryCode := c.CountryCode
	if countryCode == "" {
		countryCode = "US"
	}

	hotspot, err := server.Wifi().SetHotspot(ctx, true, true, countryCode)
	if err != nil {
		return fmt.Errorf("failed to enable hotspot on %s: %w", server.Info.Serial, err)
	}
	if hotspot.SSID == "" {
		return fmt.Errorf("device %s enabled its hotspot but reported no SSID", server.Info.Serial)
	}
	c.logf("server %s hotspot up: %s", server.Info.Serial, hotspot.SSID)

	for _, client := range clients {
		if err := client.Wifi().ConnectNetwork(ctx, hotspot.SSID, hotspot.Passphrase, true); err != nil {
			return fmt.Errorf("failed to join %s to %s: %w", client.Info.Serial, hotspot.SSID, err)
		}
		c.logf("client %s joined %s", client.Info.Serial, hotspot.SSID)
	}

	return nil
}

// waitForStability polls each client until all report stable sync.
func (c *Coordinator) waitForStability(ctx context.Context, clients []*device.Device) error {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	pending := make(map[string]*device.Device, len(clients))
	for _, client := range clients {
		pending[client.Info.Serial] = client
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for len(pending) > 0 {
		for serial, client := range pending {
			stability, err := client.Recording().SyncStability(ctx)
			if err != nil {
				return fmt.Errorf("failed to read sync stability of %s: %w", serial, err)
			}
			if stability == device.SyncStabilityStable {
				c.logf("client %s sync stable", serial)
				delete(pending, serial)
			}
		}
		if len(pending) == 0 {
			break
		}

		c.logf("waiting for %d client(s) to stabilize", len(pending))
		select {
		case <-ctx.Done():
			return fmt.Errorf("sync did not stabilize: %w", ctx.Err())
		case <-ticker.C:
		}
	}

	return nil
}

// Cleanup returns devices to their idle state after a ticsync session: stops
// recordings still running, disables the hotspot and releases the keep-wifi
// hold. Errors are collected so one stubborn device does not skip the rest.
func (c *Coordinator) Cleanup(ctx context.Context, devices []*device.Device) error {
	var errs []error

	for _, dev := range devices {
		serial := dev.Info.Serial

		state, err := dev.Recording().State(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", serial, err))
			continue
		}
		if state == device.RecordingStateRecording {
			if err := dev.Recording().Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: failed to stop recording: %w", serial, err))
				continue
			}
			c.logf("stopped recording on %s", serial)
		}

		if _, err := dev.Wifi().SetHotspot(ctx, false, false, ""); err != nil {
			errs = append(errs, fmt.Errorf("%s: failed to disable hotspot: %w", serial, err))
		}
		if err := dev.Wifi().KeepOn(ctx, false); err != nil {
			errs = append(errs, fmt.Errorf("%s: failed to release wifi hold: %w", serial, err))
		}
	}

	return errors.Join(errs...)
}
