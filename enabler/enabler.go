package enabler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/atomic"

	"github.com/ruteri/apiml-sample-service/config"
	"github.com/ruteri/apiml-sample-service/cryptoutils"
	"github.com/ruteri/apiml-sample-service/metrics"
)

const (
	OpRegister   = "register"
	OpHeartbeat  = "heartbeat"
	OpUnregister = "unregister"

	requestTimeout = 10 * time.Second
	maxErrorBody   = 4096
)

var (
	ErrInvalidConfiguration = errors.New("invalid discovery configuration")

	// ErrRegistrationCanceled is returned by a Register call that was overtaken by
	// Unregister or Close.
	ErrRegistrationCanceled = errors.New("registration canceled by unregister")
)

// StatusError is returned when the discovery service answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: discovery service returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: discovery service returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// Enabler is the registration handle of this service in the Eureka discovery service.
// Register announces the instance to the discovery service, retrying transient
// failures according to the configured policy. Client errors (4xx) are not retried.
// On success the heartbeat loop is started if it is not already running.
// A Register still in progress when Unregister or Close is called returns
// ErrRegistrationCanceled and leaves the instance unregistered.
func (e *Enabler) Register(ctx context.Context) error {
	if !e.cfg.Eureka.Enabled() {
		e.log.Info("Registration with discovery service is disabled")
		return nil
	}

	e.mu.Lock()
	epoch, lifecycle := e.epoch, e.lifecycle
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(lifecycle, cancel)
	defer stop()

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := e.register(ctx)
		if err != nil {
			e.log.Warn("Registration attempt failed", "attempt", attempt, "err", err)
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
		}
		return err
	}, backoff.WithContext(e.backOffProvider(), ctx))

	if err != nil && lifecycle.Err() != nil {
		err = ErrRegistrationCanceled
	}
	e.metrics.ObserveDiscovery(OpRegister, err)
	if err != nil {
		return fmt.Errorf("registration failed after %d attempt(s): %w", attempt, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.epoch != epoch {
		e.log.Info("Registration overtaken by unregister, not starting heartbeat")
		return ErrRegistrationCanceled
	}

	e.registered.Store(true)
	e.metrics.SetRegistered(true)
	e.log.Info("Registered with discovery service", "app", e.cfg.Instance.App, "instanceId", e.cfg.Instance.InstanceID)

	e.startHeartbeatLocked()
	return nil
}

// Unregister cancels pending registrations, stops the heartbeat loop and removes
// the instance from the discovery service.
func (e *Enabler) Unregister(ctx context.Context) error {
	if !e.cfg.Eureka.Enabled() {
		e.log.Info("Registration with discovery service is disabled")
		return nil
	}

	e.interrupt()

	err := e.do(ctx, OpUnregister, http.MethodDelete, e.instanceURL(), nil)
	e.metrics.ObserveDiscovery(OpUnregister, err)

	e.registered.Store(false)
	e.metrics.SetRegistered(false)
	if err != nil {
		return err
	}

	e.log.Info("Unregistered from discovery service", "app", e.cfg.Instance.App, "instanceId", e.cfg.Instance.InstanceID)
	return nil
}

// Close cancels pending registrations and stops the heartbeat loop without
// deregistering.
func (e *Enabler) Close() {
	e.interrupt()
}

func (e *Enabler) register(ctx context.Context) error {
	body, err := json.Marshal(&registrationRequest{Instance: newInstanceInfo(e.cfg.Instance)})
	if err != nil {
		return err
	}
	return e.do(ctx, OpRegister, http.MethodPost, e.appURL(), body)
}

func (e *Enabler) renew(ctx context.Context) error {
	err := e.do(ctx, OpHeartbeat, http.MethodPut, e.instanceURL(), nil)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		e.log.Info("Instance unknown to discovery service, registering again")
		err = e.register(ctx)
		e.metrics.ObserveDiscovery(OpRegister, err)
	}
	e.metrics.ObserveDiscovery(OpHeartbeat, err)
	return err
}

// startHeartbeatLocked must be called with e.mu held.
func (e *Enabler) startHeartbeatLocked() {
	if e.stopHeartbeat != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.stopHeartbeat = cancel
	e.heartbeatDone = done

	go e.runHeartbeat(ctx, done)
}

func (e *Enabler) interrupt() {
	e.mu.Lock()
	e.epoch++
	e.cancelLifecycle()
	e.lifecycle, e.cancelLifecycle = context.WithCancel(context.Background())
	cancel, done := e.stopHeartbeat, e.heartbeatDone
	e.stopHeartbeat, e.heartbeatDone = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (e *Enabler) runHeartbeat(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.Eureka.Heartbeat())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.renew(ctx); err != nil && ctx.Err() == nil {
				e.log.Warn("Heartbeat failed", "err", err)
			}
		}
	}
}

func (e *Enabler) appURL() string {
	return e.baseURL + url.PathEscape(e.cfg.Instance.App)
}

func (e *Enabler) instanceURL() string {
	return e.appURL() + "/" + url.PathEscape(e.cfg.Instance.InstanceID)
}

func (e *Enabler) do(ctx context.Context, op, method, target string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: could not reach discovery service: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
