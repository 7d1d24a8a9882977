package loader

import (
	"encoding/base64"
	"sync"

	hclog "github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/sahneos/karnal64/abi"
	"github.com/sahneos/karnal64/handle"
	"github.com/sahneos/karnal64/resource"
)

// Image is executable content pulled out of a code provider,
// content-addressed by its digest.
type Image struct {
	Key  string
	Code []byte
}

type ImageCache struct {
	mu sync.RWMutex

	cache *lru.ARCCache
}

func NewImageCache() *ImageCache {
	cache, err := lru.NewARC(100)
	if err != nil {
		panic(err)
	}

	return &ImageCache{cache: cache}
}

func (c *ImageCache) Lookup(key string) (*Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}

	return val.(*Image), true
}

func (c *ImageCache) Set(key string, img *Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(key, img)
}

func NewLoader(cache *ImageCache, resources *resource.Registry) *Loader {
	return &Loader{
		L:         hclog.L(),
		cache:     cache,
		resources: resources,
	}
}

// Loader reads executable images out of resource providers for task
// spawn.
type Loader struct {
	L     hclog.Logger
	cache *ImageCache

	resources *resource.Registry
}

const readChunk = 64 * 1024

// Load pulls the full content behind the code handle. The handle must
// resolve to a provider; a provider with no content cannot be spawned.
// Reads go through explicit offsets so the handle's cursor is left
// alone and the same handle can spawn again.
func (l *Loader) Load(code handle.Handle) (*Image, error) {
	var (
		content []byte
		off     uint64
	)

	buf := make([]byte, readChunk)

	for {
		n, err := l.resources.ReadAt(code, buf, off)
		if err != nil {
			return nil, err
		}

		if n == 0 {
			break
		}

		content = append(content, buf[:n]...)
		off += uint64(n)
	}

	if len(content) == 0 {
		return nil, errors.Wrap(abi.InvalidArgument, "code provider supplied no content")
	}

	sum := blake2b.Sum256(content)
	key := base64.URLEncoding.EncodeToString(sum[:])

	if l.cache != nil {
		if img, ok := l.cache.Lookup(key); ok {
			l.L.Debug("image cache hit", "key", key)
			return img, nil
		}
	}

	img := &Image{
		Key:  key,
		Code: content,
	}

	if l.cache != nil {
		l.L.Debug("cached image", "key", key, "size", len(content))
		l.cache.Set(key, img)
	}

	return img, nil
}
