package ingest

import (
	"context"
	"io"
	"net"
	"net/url"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP inbox fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPInbox pulls invoice files from a remote FTP directory. Finance teams
// often receive scanned invoices into a shared drop folder; this fetches them
// for batch processing.
type FTPInbox struct {
	opts FTPOptions
}

// NewFTPInbox creates an FTPInbox with the given options.
func NewFTPInbox(opts FTPOptions) *FTPInbox {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPInbox{opts: opts}
}

// File is one fetched inbox entry.
type File struct {
	Name    string
	Content []byte
}

// parseFTPURL extracts host (with port), directory path and credentials from
// an FTP URL. Anonymous login is used when the URL carries no user info.
func parseFTPURL(rawURL string) (host, dir, user, pass string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "ingest: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", "", "", eris.Errorf("ingest: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	user = "anonymous"
	pass = "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}

	dir = u.Path
	if dir == "" {
		dir = "/"
	}

	return host, dir, user, pass, nil
}

// Fetch lists the inbox directory and downloads every regular file. The
// connection is closed before returning.
func (f *FTPInbox) Fetch(ctx context.Context, inboxURL string) ([]File, error) {
	host, dir, user, pass, err := parseFTPURL(inboxURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp inbox: connecting", zap.String("host", host), zap.String("dir", dir))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ingest: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(user, pass); err != nil {
		return nil, eris.Wrap(err, "ingest: ftp login")
	}

	entries, err := conn.List(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: ftp list %s", dir)
	}

	var files []File
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFile {
			continue
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "ingest: ftp fetch cancelled")
		}

		remote := path.Join(dir, entry.Name)
		resp, err := conn.Retr(remote)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: ftp retrieve %s", remote)
		}
		content, err := io.ReadAll(resp)
		resp.Close() //nolint:errcheck
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: ftp read %s", remote)
		}

		files = append(files, File{Name: entry.Name, Content: content})
	}

	zap.L().Info("ftp inbox fetched", zap.String("dir", dir), zap.Int("files", len(files)))
	return files, nil
}
