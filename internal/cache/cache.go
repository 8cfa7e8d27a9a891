// Package cache keeps downloaded audio assets on disk so repeat plays of a
// track skip the network.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultExpiry is how long cached assets are valid (7 days).
	DefaultExpiry = 7 * 24 * time.Hour
	// AudioSubdir is the subdirectory for cached assets.
	AudioSubdir = "audio"
	// AppName is used for the cache directory name.
	AppName = "lullaby"
	// MaxAssetSize caps a single cached asset.
	MaxAssetSize = 64 << 20

	assetExt = ".bin"
)

// Cache manages disk-based caching of audio assets keyed by URL.
type Cache struct {
	baseDir string
	expiry  time.Duration
}

// NewCache creates a new Cache instance with the default expiry.
func NewCache() (*Cache, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return nil, err
	}

	return &Cache{
		baseDir: cacheDir,
		expiry:  DefaultExpiry,
	}, nil
}

// GetCacheDir returns the platform-specific cache directory for the application.
func GetCacheDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user cache directory: %w", err)
	}

	cacheDir := filepath.Join(userCacheDir, AppName)
	return cacheDir, nil
}

func (c *Cache) ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func (c *Cache) dir() string {
	return filepath.Join(c.baseDir, AudioSubdir)
}

func (c *Cache) path(url string) string {
	return filepath.Join(c.dir(), hashURL(url)+assetExt)
}

func hashURL(url string) string {
	hash := md5.Sum([]byte(url))
	return hex.EncodeToString(hash[:])
}

// Get retrieves a cached asset by URL. Missing or expired entries report false.
func (c *Cache) Get(url string) ([]byte, bool) {
	assetPath := c.path(url)

	info, err := os.Stat(assetPath)
	if err != nil {
		return nil, false
	}

	if time.Since(info.ModTime()) > c.expiry {
		if err := os.Remove(assetPath); err != nil {
			log.Debug().Err(err).Str("file", assetPath).Msg("Failed to remove expired cache file")
		}
		return nil, false
	}

	data, err := os.ReadFile(assetPath)
	if err != nil {
		log.Debug().Err(err).Str("file", assetPath).Msg("Failed to read cached asset")
		return nil, false
	}

	return data, true
}

// Put stores an asset, keyed by its URL. The file is replaced atomically so
// a concurrent Get never sees a partial asset.
func (c *Cache) Put(url string, data []byte) error {
	if len(data) > MaxAssetSize {
		log.Debug().Str("url", url).Msgf("Asset too large to cache (%s)", humanize.Bytes(uint64(len(data))))
		return nil
	}

	if err := c.ensureDir(c.dir()); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	if err := renameio.WriteFile(c.path(url), data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// CleanExpired removes cache files older than the expiry duration.
func (c *Cache) CleanExpired() error {
	assetDir := c.dir()

	entries, err := os.ReadDir(assetDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	now := time.Now()
	var removed, failed int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Debug().Err(err).Str("file", entry.Name()).Msg("Failed to get file info")
			continue
		}

		if now.Sub(info.ModTime()) > c.expiry {
			filePath := filepath.Join(assetDir, entry.Name())
			if err := os.Remove(filePath); err != nil {
				log.Debug().Err(err).Str("file", filePath).Msg("Failed to remove expired cache file")
				failed++
			} else {
				removed++
			}
		}
	}

	if removed > 0 || failed > 0 {
		log.Debug().Int("removed", removed).Int("failed", failed).Msg("Cache cleanup completed")
	}

	return nil
}

// Stats summarises the cache contents.
type Stats struct {
	Files int
	Bytes int64
}

func (s Stats) String() string {
	return fmt.Sprintf("%d files, %s", s.Files, humanize.Bytes(uint64(s.Bytes)))
}

// Stats counts the cached assets.
func (c *Cache) Stats() (Stats, error) {
	entries, err := os.ReadDir(c.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var st Stats
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != assetExt {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		st.Files++
		st.Bytes += info.Size()
	}
	return st, nil
}
