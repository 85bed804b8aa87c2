// Package remote delivers generated artifacts to a game server over SSH and
// drives its console.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/mrcl/maprot/internal/logger"
)

const (
	DefaultPort    = 22
	DefaultEntsDir = "ents"
	DefaultTimeout = 15 * time.Second
)

var ErrNoHost = errors.New("remote host not configured")

// Config describes the server account and its directory layout.
type Config struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
	KeyFile  string `yaml:"key_file" json:"key_file"`
	// KnownHosts enables host key verification when set.
	KnownHosts string `yaml:"known_hosts" json:"known_hosts"`
	// BasePath is the game directory that receives maplist.txt and server.cfg.
	BasePath string `yaml:"base_path" json:"base_path"`
	// EntsDir is relative to BasePath.
	EntsDir string `yaml:"ents_dir" json:"ents_dir"`
	// AttachCommand is typed into a console right after the shell opens,
	// e.g. "screen -r q2server".
	AttachCommand string        `yaml:"attach_command" json:"attach_command"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.EntsDir == "" {
		c.EntsDir = DefaultEntsDir
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.withDefaults().Port))
}

// Client is an authenticated SSH connection with an SFTP subsystem opened on
// first use.
type Client struct {
	cfg  Config
	conn *ssh.Client
	sftp *sftp.Client
}

// Dial connects and authenticates. The host key is checked against
// cfg.KnownHosts when set; otherwise any key is accepted and a warning logged.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Host == "" {
		return nil, ErrNoHost
	}
	log := logger.FromContext(ctx).With("host", cfg.Addr())

	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}
	hostKey, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.KnownHosts == "" {
		log.Warn("host key verification disabled; set remote.known_hosts to enable it")
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         cfg.Timeout,
	}

	d := net.Dialer{Timeout: cfg.Timeout}
	nc, err := d.DialContext(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", cfg.Addr(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = nc.SetDeadline(deadline)
	}
	c, chans, reqs, err := ssh.NewClientConn(nc, cfg.Addr(), sshCfg)
	if err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("remote: handshake %s: %w", cfg.Addr(), err)
	}
	_ = nc.SetDeadline(time.Time{})

	log.Debug("connected", "user", cfg.User)
	return &Client{cfg: cfg, conn: ssh.NewClient(c, chans, reqs)}, nil
}

func authMethods(cfg Config) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("remote: read key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) && cfg.Password != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(cfg.Password))
		}
		if err != nil {
			return nil, fmt.Errorf("remote: parse key %s: %w", cfg.KeyFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if len(methods) == 0 {
		return nil, errors.New("remote: no password or key file configured")
	}
	return methods, nil
}

func hostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	if cfg.KnownHosts == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(cfg.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("remote: known_hosts: %w", err)
	}
	return cb, nil
}

// Config returns the effective configuration, defaults applied.
func (c *Client) Config() Config { return c.cfg }

// FS opens the SFTP subsystem on first call.
func (c *Client) FS() (FS, error) {
	if c.sftp == nil {
		s, err := sftp.NewClient(c.conn)
		if err != nil {
			return nil, fmt.Errorf("remote: sftp: %w", err)
		}
		c.sftp = s
	}
	return sftpFS{c.sftp}, nil
}

func (c *Client) Close() error {
	var errs []error
	if c.sftp != nil {
		errs = append(errs, c.sftp.Close())
	}
	errs = append(errs, c.conn.Close())
	return errors.Join(errs...)
}
