package filters

import (
	"fmt"
	"hash/crc32"
	"io"
	"path"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

const defaultHashCacheSize = 512

// AssetHasher computes short content digests of files in the output tree for
// cache-busting URLs. Digests are cached by path, modification time and size,
// so unchanged files are not re-read across renders.
type AssetHasher struct {
	fs        afero.Fs
	outputDir string
	cache     *lru.Cache[string, string]
	crcTable  *crc32.Table
}

// NewAssetHasher creates a hasher reading from outputDir on fs.
func NewAssetHasher(fs afero.Fs, outputDir string, cacheSize int) (*AssetHasher, error) {
	if cacheSize <= 0 {
		cacheSize = defaultHashCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating hash cache: %w", err)
	}
	return &AssetHasher{
		fs:        fs,
		outputDir: outputDir,
		cache:     cache,
		crcTable:  crc32.MakeTable(crc32.Castagnoli),
	}, nil
}

// Hash returns the hex CRC32-Castagnoli digest of the file at rel, a path
// relative to the output root. A leading slash is accepted so URLs can be
// passed straight through.
func (h *AssetHasher) Hash(rel string) (string, error) {
	name := path.Join(h.outputDir, strings.TrimPrefix(rel, "/"))

	stat, err := h.fs.Stat(name)
	if err != nil {
		return "", fmt.Errorf("assetHash: %w", err)
	}
	if stat.IsDir() {
		return "", fmt.Errorf("assetHash: %s is a directory", rel)
	}

	key := fmt.Sprintf("%s:%d:%d", name, stat.ModTime().UnixNano(), stat.Size())
	if digest, ok := h.cache.Get(key); ok {
		return digest, nil
	}

	f, err := h.fs.Open(name)
	if err != nil {
		return "", fmt.Errorf("assetHash: %w", err)
	}
	defer f.Close()

	sum := crc32.New(h.crcTable)
	if _, err := io.Copy(sum, f); err != nil {
		return "", fmt.Errorf("assetHash: reading %s: %w", rel, err)
	}

	digest := strconv.FormatUint(uint64(sum.Sum32()), 16)
	h.cache.Add(key, digest)
	return digest, nil
}

// Len is the number of cached digests.
func (h *AssetHasher) Len() int {
	return h.cache.Len()
}

// Filter adapts Hash to the filter signature.
func (h *AssetHasher) Filter(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("assetHash: want 1 argument, got %d", len(args))
	}
	return h.Hash(toString(args[0]))
}
