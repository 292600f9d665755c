// Package hashutil produces stable, reproducible hashes from file identity so
// that pseudo-variation derived from them is identical across runs.
package hashutil

import (
	"hash/fnv"
	"io"
	"sort"
	"strconv"
)

// Item identifies an input by name and size.
type Item struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// StableSetHash hashes a set of items independent of their order.
func StableSetHash(items []Item) (hash string) {
	hash = strconv.FormatUint(uint64(SetHashValue(items)), 36)
	return hash
}

// SetHashValue is the numeric form of StableSetHash.
func SetHashValue(items []Item) (value uint32) {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name == sorted[j].Name {
			return sorted[i].Size < sorted[j].Size
		}
		return sorted[i].Name < sorted[j].Name
	})

	h := fnv.New32a()
	for _, item := range sorted {
		writePair(h, item)
	}

	value = h.Sum32()
	return value
}

// StableItemHash hashes a single item together with its position.
func StableItemHash(item Item, index int) (hash string) {
	hash = strconv.FormatUint(uint64(ItemHashValue(item, index)), 36)
	return hash
}

// ItemHashValue is the numeric form of StableItemHash.
func ItemHashValue(item Item, index int) (value uint32) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.Itoa(index)))
	_, _ = h.Write([]byte{0})
	writePair(h, item)

	value = h.Sum32()
	return value
}

// writePair feeds one name/size tuple into the hash. The separators keep
// ("ab", 1) distinct from ("a", 1) followed by ("b", ...).
func writePair(h io.Writer, item Item) {
	_, _ = h.Write([]byte(item.Name))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatInt(item.Size, 10)))
	_, _ = h.Write([]byte{0x1e})
}
