package lua

import (
	"bufio"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	glua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const defaultChunkCacheSize = 64

// chunkKey changes whenever the file is rewritten.
type chunkKey struct {
	path    string
	size    int64
	modTime int64
}

// chunkCache keeps compiled script files. Compiled protos are immutable and
// survive VM re-initialization.
type chunkCache struct {
	cache *lru.Cache[chunkKey, *glua.FunctionProto]
}

func newChunkCache(size int) *chunkCache {
	if size <= 0 {
		size = defaultChunkCacheSize
	}
	cache, _ := lru.New[chunkKey, *glua.FunctionProto](size)
	return &chunkCache{cache: cache}
}

// compile returns the compiled proto for path, parsing it on a cache miss.
func (c *chunkCache) compile(path string) (*glua.FunctionProto, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := chunkKey{path: path, size: st.Size(), modTime: st.ModTime().UnixNano()}

	if proto, ok := c.cache.Get(key); ok {
		return proto, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	chunk, err := parse.Parse(bufio.NewReader(f), path)
	if err != nil {
		return nil, err
	}
	proto, err := glua.Compile(chunk, path)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, proto)
	return proto, nil
}

func (c *chunkCache) len() int {
	return c.cache.Len()
}
