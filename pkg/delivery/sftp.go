package delivery

import (
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Target is an SFTP drop location.
type Target struct {
	User     string
	Host     string
	Port     int
	Dir      string
	Password string
	KeyPath  string
}

// Addr returns host:port.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// ParseTarget parses "user@host[:port][/dir]".
func ParseTarget(s string) (Target, error) {
	var t Target
	at := strings.Index(s, "@")
	if at <= 0 {
		return t, fmt.Errorf("sftp target %q: missing user", s)
	}
	t.User = s[:at]
	rest := s[at+1:]

	if slash := strings.Index(rest, "/"); slash >= 0 {
		t.Dir = rest[slash:]
		rest = rest[:slash]
	}
	if colon := strings.LastIndex(rest, ":"); colon >= 0 {
		port, err := strconv.Atoi(rest[colon+1:])
		if err != nil || port <= 0 || port > 65535 {
			return t, fmt.Errorf("sftp target %q: invalid port", s)
		}
		t.Port = port
		rest = rest[:colon]
	}
	if rest == "" {
		return t, fmt.Errorf("sftp target %q: missing host", s)
	}
	t.Host = rest
	if t.Dir == "" {
		t.Dir = "."
	}
	return t, nil
}

// Logger is the logging surface the uploader needs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Uploader pushes finished artifacts to an SFTP target.
type Uploader struct {
	target Target
	logger Logger
}

// NewUploader creates an uploader for target.
func NewUploader(target Target, logger Logger) *Uploader {
	return &Uploader{target: target, logger: logger}
}

// Upload writes data to name inside the target directory and returns the
// remote path.
func (u *Uploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	authMethods, err := u.authMethods()
	if err != nil {
		return "", err
	}

	config := &ssh.ClientConfig{
		User:            u.target.User,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", u.target.Addr())
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", u.target.Addr(), err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, u.target.Addr(), config)
	if err != nil {
		_ = conn.Close()
		return "", fmt.Errorf("ssh handshake failed: %w", err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	remotePath := path.Join(u.target.Dir, path.Base(filepath.ToSlash(name)))
	if err := pushFile(client, remotePath, data, 0o644); err != nil {
		if u.logger != nil {
			u.logger.Error("sftp upload failed", "path", remotePath, "error", err)
		}
		return "", fmt.Errorf("upload %s: %w", remotePath, err)
	}
	if u.logger != nil {
		u.logger.Info("artifact delivered", "host", u.target.Host, "path", remotePath, "bytes", len(data))
	}
	return remotePath, nil
}

func (u *Uploader) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if u.target.KeyPath != "" {
		data, err := os.ReadFile(expandHome(u.target.KeyPath))
		if err != nil {
			return nil, fmt.Errorf("read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if u.target.Password != "" {
		methods = append(methods, ssh.Password(u.target.Password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no ssh credentials configured for %s", u.target.Host)
	}
	return methods, nil
}

func pushFile(client *ssh.Client, remotePath string, data []byte, perm os.FileMode) error {
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return err
	}
	defer sftpClient.Close()

	if err := sftpClient.MkdirAll(path.Dir(remotePath)); err != nil {
		return err
	}

	file, err := sftpClient.Create(remotePath)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return err
	}
	return file.Chmod(perm)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
