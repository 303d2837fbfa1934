package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 30 * time.Second

const (
	eventBufferSize    = 256
	connectProbeWindow = 10 * time.Second
)

// Client is the launcher's update/download/launch service: every command the
// UI layer issues crosses this boundary, and all asynchronous feedback comes
// back on the single Events channel.
type Client struct {
	cfg        *Config
	cfgPath    string
	httpClient *http.Client
	emitter    *emitter

	// launch state, guarded against re-entrant launches.
	launchMu    sync.Mutex
	isLaunching bool
	isRunning   bool

	// auth mirrored from the session layer on login and process start.
	authMu sync.Mutex
	auth   AuthInfo
}

// Option mutates Client configuration.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithConfig injects an already-loaded config, bypassing the file search.
func WithConfig(cfg *Config, path string) Option {
	return func(c *Client) {
		c.cfg = cfg
		c.cfgPath = path
	}
}

// NewClient constructs a Client, locating and loading launcher.yaml unless a
// config was injected.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		emitter:    newEmitter(eventBufferSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg == nil {
		cfg, path, err := LoadConfig("")
		if err != nil {
			return nil, err
		}
		c.cfg = cfg
		c.cfgPath = path
	}
	return c, nil
}

// Events returns the single outbound event channel. All subscribers share
// one channel; fan-out to views happens in the UI layer.
func (c *Client) Events() <-chan Event {
	return c.emitter.events()
}

// CheckServerConnection probes the file server with bounded exponential
// backoff and reports reachability. A definitive non-2xx answer is still
// "reachable"; only transport failures after the probe window count as
// offline.
func (c *Client) CheckServerConnection(ctx context.Context) (bool, error) {
	probe := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Server.FilesURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectProbeWindow
	if err := backoff.Retry(probe, backoff.WithContext(bo, ctx)); err != nil {
		logrus.Debugf("connectivity probe failed: %v", err)
		return false, fmt.Errorf("%w: %v", ErrOffline, err)
	}
	return true, nil
}

// Login POSTs credentials as a form body and decodes the account server's
// JSON reply. A transport-level failure is an error; a rejected login is a
// normal response with Return=false.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("login", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Server.LoginURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, RemoteError{StatusCode: resp.StatusCode, URL: c.cfg.Server.LoginURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var lr LoginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("unexpected login response shape: %w", err)
	}
	return &lr, nil
}

// SetAuthInfo mirrors session auth material into the backend so a later
// launch can hand it to the game process.
func (c *Client) SetAuthInfo(info AuthInfo) {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	c.auth = info
	logrus.Debugf("auth info set for user %s (no=%d)", info.UserName, info.UserNo)
}

// Logout clears mirrored auth material and any stuck launch latch.
func (c *Client) Logout(ctx context.Context) error {
	c.authMu.Lock()
	c.auth = AuthInfo{}
	c.authMu.Unlock()

	c.launchMu.Lock()
	c.isLaunching = false
	c.launchMu.Unlock()
	return nil
}

// GamePath returns the configured game directory.
func (c *Client) GamePath() (string, error) {
	if c.cfg.Game.Path == "" {
		return "", ErrGamePathNotSet
	}
	return c.cfg.Game.Path, nil
}

// SaveGamePath persists a newly selected game directory.
func (c *Client) SaveGamePath(path string) error {
	c.cfg.Game.Path = path
	return saveConfig(c.cfg, c.cfgPath)
}

// Language returns the configured game language.
func (c *Client) Language() string {
	return c.cfg.Game.Lang
}

// SaveLanguage persists the game language.
func (c *Client) SaveLanguage(lang string) error {
	c.cfg.Game.Lang = lang
	logrus.Infof("saving language %q to config", lang)
	return saveConfig(c.cfg, c.cfgPath)
}

// fetchManifest downloads and decodes the server hash file.
func (c *Client) fetchManifest(ctx context.Context) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Server.HashFileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, RemoteError{StatusCode: resp.StatusCode, URL: c.cfg.Server.HashFileURL}
	}
	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid server hash file: %w", err)
	}
	return &m, nil
}
