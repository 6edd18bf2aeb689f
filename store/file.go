package store

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"golang.org/x/crypto/nacl/secretbox"

	sessionbridge "github.com/opengovern/session-bridge"
)

// TokenKey is the single key the token lives under.
const TokenKey = "access_token"

const nonceSize = 24

// File persists the token in a small JSON document. Every Get re-reads the file,
// so a Set or Clear made by another process is visible on the next call. A missing
// file or key means logged out.
type File struct {
	path   string
	key    *[32]byte
	logger zerolog.Logger
	mu     sync.Mutex
}

var _ sessionbridge.SessionStore = (*File)(nil)

type FileOption func(*File)

// WithSecretKey seals the token at rest with NaCl secretbox.
func WithSecretKey(key [32]byte) FileOption {
	return func(f *File) {
		k := key
		f.key = &k
	}
}

func WithFileLogger(l zerolog.Logger) FileOption {
	return func(f *File) { f.logger = l }
}

func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path is where the document is stored.
func (f *File) Path() string { return f.path }

func (f *File) Get() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		f.logger.Error().Err(err).Str("path", f.path).Msg("read session file")
		return "", false
	}
	raw, ok := doc[TokenKey]
	if !ok || raw == "" {
		return "", false
	}
	if f.key == nil {
		return raw, true
	}
	token, err := f.open(raw)
	if err != nil {
		f.logger.Error().Err(err).Str("path", f.path).Msg("unseal session token")
		return "", false
	}
	return token, true
}

func (f *File) Set(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.set(token); err != nil {
		f.logger.Error().Err(err).Str("path", f.path).Msg("write session file")
	}
}

func (f *File) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.clear(); err != nil {
		f.logger.Error().Err(err).Str("path", f.path).Msg("clear session file")
	}
}

func (f *File) set(token string) error {
	doc, err := f.load()
	if err != nil {
		// An unreadable document is replaced rather than blocking login.
		f.logger.Warn().Err(err).Str("path", f.path).Msg("discarding unreadable session file")
		doc = map[string]string{}
	}
	value := token
	if f.key != nil {
		if value, err = f.seal(token); err != nil {
			return err
		}
	}
	doc[TokenKey] = value
	return f.save(doc)
}

func (f *File) clear() error {
	doc, err := f.load()
	if err != nil {
		doc = map[string]string{}
	}
	delete(doc, TokenKey)
	if len(doc) > 0 {
		return f.save(doc)
	}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("store_io").With("path", f.path).Wrapf(err, "remove session file")
	}
	return nil
}

func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, oops.Code("store_io").With("path", f.path).Wrapf(err, "read session file")
	}
	if strings.TrimSpace(string(data)) == "" {
		return map[string]string{}, nil
	}
	doc := map[string]string{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("store_corrupt").With("path", f.path).Wrapf(err, "decode session file")
	}
	return doc, nil
}

// save writes through a temp file and rename so readers never see a partial file.
func (f *File) save(doc map[string]string) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return oops.Code("store_io").Wrapf(err, "encode session file")
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return oops.Code("store_io").With("dir", dir).Wrapf(err, "create session dir")
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return oops.Code("store_io").With("dir", dir).Wrapf(err, "create temp session file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return oops.Code("store_io").With("path", tmpName).Wrapf(err, "write temp session file")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return oops.Code("store_io").With("path", tmpName).Wrapf(err, "chmod temp session file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return oops.Code("store_io").With("path", tmpName).Wrapf(err, "close temp session file")
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return oops.Code("store_io").With("path", f.path).Wrapf(err, "replace session file")
	}
	return nil
}

func (f *File) seal(token string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", oops.Code("store_crypto").Wrapf(err, "generate nonce")
	}
	box := secretbox.Seal(nonce[:], []byte(token), &nonce, f.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (f *File) open(value string) (string, error) {
	box, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", oops.Code("store_crypto").Wrapf(err, "decode sealed token")
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return "", oops.Code("store_crypto").Errorf("sealed token too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, f.key)
	if !ok {
		return "", oops.Code("store_crypto").Errorf("sealed token failed authentication")
	}
	return string(plain), nil
}

// ParseSecretKey decodes a base64 (standard or URL alphabet) 32-byte key.
func ParseSecretKey(s string) ([32]byte, error) {
	var key [32]byte
	s = strings.TrimSpace(s)
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(s)
	}
	if err != nil {
		return key, oops.Code("config_invalid").Wrapf(err, "decode secret key")
	}
	if len(raw) != len(key) {
		return key, oops.Code("config_invalid").With("length", len(raw)).Errorf("secret key must be 32 bytes")
	}
	copy(key[:], raw)
	return key, nil
}
