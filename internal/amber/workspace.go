package amber

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const workspacePrefix = "amber-"

// Workspace is the private scratch directory of one request.
type Workspace struct {
	ID  string
	Dir string
}

// newWorkspace creates <root>/amber-<uuid>. os.Mkdir fails on an existing
// path, so two requests can never end up sharing a directory.
func newWorkspace(root string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create temp root %s: %w", root, err)
	}
	id := uuid.NewString()
	dir := filepath.Join(root, workspacePrefix+id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	return &Workspace{ID: id, Dir: abs}, nil
}

func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Release deletes the workspace and everything in it.
func (w *Workspace) Release() error {
	return os.RemoveAll(w.Dir)
}

func (w *Workspace) exists(name string) bool {
	info, err := os.Stat(w.Path(name))
	return err == nil && info.Mode().IsRegular()
}

func (w *Workspace) size(name string) int64 {
	info, err := os.Stat(w.Path(name))
	if err != nil {
		return 0
	}
	return info.Size()
}

func (w *Workspace) writeFile(name, content string) error {
	return os.WriteFile(w.Path(name), []byte(content), 0o644)
}

// stage copies src into the workspace as name and returns its SHA-256.
func (w *Workspace) stage(src, name string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.OpenFile(w.Path(name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// readHead returns up to limit bytes of name and whether the file was longer.
func (w *Workspace) readHead(name string, limit int) (string, bool, error) {
	f, err := os.Open(w.Path(name))
	if err != nil {
		return "", false, err
	}
	defer f.Close()
	buf, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return "", false, err
	}
	if len(buf) > limit {
		return string(buf[:limit]), true, nil
	}
	return string(buf), false, nil
}

// readTail returns the last limit bytes of name.
func (w *Workspace) readTail(name string, limit int) (string, error) {
	f, err := os.Open(w.Path(name))
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() > int64(limit) {
		if _, err := f.Seek(info.Size()-int64(limit), io.SeekStart); err != nil {
			return "", err
		}
	}
	buf, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// export copies name out of the workspace to dst without overwriting.
func (w *Workspace) export(name, dst string) error {
	in, err := os.Open(w.Path(name))
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
