package snapshot

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// LocalUploader copies files into a directory served at BaseURL.
type LocalUploader struct {
	Dir     string
	BaseURL string
}

// Upload implements Uploader.
func (u *LocalUploader) Upload(_ context.Context, key, localFile string) (string, error) {
	dst := filepath.Join(u.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}
	if err := copyTo(localFile, func() (io.WriteCloser, error) { return os.Create(dst) }); err != nil {
		return "", err
	}
	return joinURL(u.BaseURL, key), nil
}

// SFTPConfig addresses the remote object store.
type SFTPConfig struct {
	Addr      string
	User      string
	Password  string
	KeyFile   string
	RemoteDir string
	BaseURL   string
	Timeout   time.Duration
}

// SFTPUploader stores files on a remote host over SFTP. Each upload
// opens its own connection.
type SFTPUploader struct {
	Config SFTPConfig
}

// Upload implements Uploader.
func (u *SFTPUploader) Upload(ctx context.Context, key, localFile string) (string, error) {
	cfg, err := u.clientConfig()
	if err != nil {
		return "", err
	}

	addr := u.Config.Addr
	if !strings.Contains(addr, ":") {
		addr += ":22"
	}
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("connecting to %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	sc, err := sftp.NewClient(client)
	if err != nil {
		return "", fmt.Errorf("starting sftp: %w", err)
	}
	defer sc.Close()

	remote := path.Join(u.Config.RemoteDir, key)
	if err := sc.MkdirAll(path.Dir(remote)); err != nil {
		return "", fmt.Errorf("creating remote dir: %w", err)
	}
	if err := copyTo(localFile, func() (io.WriteCloser, error) { return sc.Create(remote) }); err != nil {
		return "", err
	}
	return joinURL(u.Config.BaseURL, key), nil
}

func (u *SFTPUploader) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if u.Config.KeyFile != "" {
		key, err := os.ReadFile(u.Config.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing ssh key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if u.Config.Password != "" {
		auth = append(auth, ssh.Password(u.Config.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("no sftp authentication configured")
	}
	timeout := u.Config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ssh.ClientConfig{
		User: u.Config.User,
		Auth: auth,
		// TODO: verify against a configured known_hosts file.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}, nil
}

func copyTo(localFile string, create func() (io.WriteCloser, error)) error {
	src, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localFile, err)
	}
	defer src.Close()

	dst, err := create()
	if err != nil {
		return fmt.Errorf("creating upload target: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copying %s: %w", localFile, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("closing upload target: %w", err)
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
