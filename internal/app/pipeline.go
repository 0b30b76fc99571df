package app

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ayusman/cookify/internal/gesture"
	"github.com/ayusman/cookify/internal/playback"
	"github.com/ayusman/cookify/internal/store"
	"github.com/ayusman/cookify/internal/tracking"
)

// runPipeline polls the source and feeds every frame to the engine until
// ctx is done or the source is exhausted.
//
// Each tick:
//  1. Poll the source. A failure is logged and followed by a backoff.
//  2. While detection is disabled the frame is dropped.
//  3. The engine processes the frame. A zone change is published.
//  4. A command, if any, is dispatched to the sink and published.
func (a *App) runPipeline(ctx context.Context) {
	ticker := time.NewTicker(a.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := a.config.Source.Poll(ctx, a.config.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, tracking.ErrClosed) {
				a.logger.Info("tracking source finished", "reason", err)
				return
			}
			a.logger.Warn("error polling tracking source", "error", err)
			if !sleep(ctx, a.config.ErrorBackoff) {
				return
			}
			continue
		}

		if !a.IsEnabled() {
			continue
		}

		a.process(ctx, frame)
	}
}

// process runs one frame through the engine and acts on the result.
func (a *App) process(ctx context.Context, frame *tracking.Frame) {
	out := a.engine.ProcessFrame(frame)

	if out.ZoneChanged {
		zone := out.Zone
		a.logger.Debug("zone changed", "zone", zone)
		ev := newEvent(EventZone)
		ev.Zone = &zone
		a.events.publish(ev)
	}

	if out.Command != nil {
		a.dispatch(ctx, *out.Command)
	}
}

// dispatch sends cmd to the sink. Failures are logged and published but
// never retried.
func (a *App) dispatch(ctx context.Context, cmd gesture.Command) {
	ev := newEvent(EventCommand)
	ev.Command = &cmd

	dctx, cancel := context.WithTimeout(playback.WithEventID(ctx, ev.ID), a.config.DispatchTimeout)
	defer cancel()

	logger := a.logger.With("event_id", ev.ID, "command", cmd.String())
	if err := a.config.Sink.Dispatch(dctx, cmd); err != nil {
		logger.Error("command dispatch failed", "error", err)
		ev.Error = err.Error()
	} else {
		logger.Info("command dispatched")
	}

	if cmd.Action == gesture.SetVolume {
		a.playMu.Lock()
		a.volumeSentAt = a.now()
		a.playMu.Unlock()

		if a.config.Store != nil {
			if err := a.config.Store.Settings().SetInt(store.SettingVolume, cmd.Volume); err != nil {
				logger.Warn("failed to persist volume", "error", err)
			}
		}
	}

	a.events.publish(ev)
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
