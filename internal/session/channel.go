package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenChannel is the shareable location a session token lives in: a URL
// fragment in a browser, a file on disk, a client notification.
type TokenChannel interface {
	// Read returns the current token, or "" when there is none.
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, token string) error
}

// MemoryChannel keeps the token in memory.
type MemoryChannel struct {
	mu     sync.Mutex
	token  string
	writes int
}

func NewMemoryChannel(initial string) *MemoryChannel {
	return &MemoryChannel{token: initial}
}

func (c *MemoryChannel) Read(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

func (c *MemoryChannel) Write(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.writes++
	return nil
}

// Token returns the last written token.
func (c *MemoryChannel) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Writes counts Write calls.
func (c *MemoryChannel) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// FileChannel stores the token in a file, replaced atomically on write.
type FileChannel struct {
	Path string
}

func NewFileChannel(path string) *FileChannel {
	return &FileChannel{Path: path}
}

func (c *FileChannel) Read(context.Context) (string, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *FileChannel) Write(ctx context.Context, token string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return err
	}
	defer func() {
		if removeErr := os.Remove(f.Name()); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) && err == nil {
			err = removeErr
		}
	}()
	if _, err := f.WriteString(token + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), c.Path)
}
