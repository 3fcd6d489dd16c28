package publish

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"rtool/pkg/logx"
)

// ErrKeyPassphrase means the private key could not be decrypted with the given passphrase.
var ErrKeyPassphrase = errors.New("private key passphrase missing or wrong")

// SFTPDialer opens SFTP sessions authenticated with a private key.
//
//nolint:govet // Logical grouping preferred.
type SFTPDialer struct {
	Host       string
	Port       int
	User       string
	PrivateKey string
	Passphrase string
	// KnownHosts defaults to ~/.ssh/known_hosts.
	KnownHosts string
	Timeout    time.Duration
}

// Dial connects, verifies the host key and starts the SFTP subsystem.
func (d *SFTPDialer) Dial(ctx context.Context) (RemoteFS, error) {
	logger := logx.NewLogger("sftp")

	signer, err := loadSigner(d.PrivateKey, d.Passphrase)
	if err != nil {
		return nil, err
	}
	hostKeys, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	timeout := d.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	port := d.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(d.Host, strconv.Itoa(port))

	config := &ssh.ClientConfig{
		User:            d.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}

	logger.Info("🔐 Connecting to %s@%s...", d.User, addr)
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("failed to start sftp on %s: %w", addr, err)
	}
	logger.Debug("SFTP session open on %s", addr)
	return &sftpFS{client: client, conn: sshClient}, nil
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	if passphrase == "" {
		signer, err := ssh.ParsePrivateKey(pem)
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %s is encrypted", ErrKeyPassphrase, path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
		}
		return signer, nil
	}

	signer, err := ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	if errors.Is(err, x509.IncorrectPasswordError) { //nolint:staticcheck // Still returned by ssh key parsing.
		return nil, fmt.Errorf("%w: %s", ErrKeyPassphrase, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}
	return signer, nil
}

func (d *SFTPDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	path := d.KnownHosts
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot locate known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts from %s: %w", path, err)
	}
	return callback, nil
}

// sftpFS adapts an SFTP client to RemoteFS.
type sftpFS struct {
	client *sftp.Client
	conn   *ssh.Client
}

func (s *sftpFS) MkdirAll(dir string) error { return s.client.MkdirAll(dir) }

func (s *sftpFS) ReadDir(dir string) ([]os.FileInfo, error) { return s.client.ReadDir(dir) }

func (s *sftpFS) Remove(name string) error { return s.client.Remove(name) }

func (s *sftpFS) Rename(oldname, newname string) error { return s.client.Rename(oldname, newname) }

func (s *sftpFS) Symlink(target, link string) error { return s.client.Symlink(target, link) }

func (s *sftpFS) Lstat(name string) (os.FileInfo, error) { return s.client.Lstat(name) }

func (s *sftpFS) Create(name string) (io.WriteCloser, error) { return s.client.Create(name) }

func (s *sftpFS) Close() error {
	sftpErr := s.client.Close()
	sshErr := s.conn.Close()
	if sftpErr != nil {
		return sftpErr
	}
	if sshErr != nil && !errors.Is(sshErr, net.ErrClosed) {
		return sshErr
	}
	return nil
}
