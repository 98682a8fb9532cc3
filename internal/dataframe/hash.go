package dataframe

import (
	"encoding/binary"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	xxhash "github.com/cespare/xxhash/v2"
)

// Key tags. Integral floats share the int tag so 3 and 3.0 compare equal.
const (
	tagNull  = 'n'
	tagInt   = 'i'
	tagFloat = 'f'
	tagStr   = 's'
	tagBool  = 'b'
	tagTime  = 't'
)

// rowKey encodes the values of row i across cols into a canonical byte
// string. Nulls encode to the same key, so null keys match each other.
func rowKey(cols []arrow.Array, i int, buf []byte) []byte {
	buf = buf[:0]
	var word [8]byte
	for _, col := range cols {
		if col.IsNull(i) {
			buf = append(buf, tagNull)
			continue
		}
		switch a := col.(type) {
		case *array.Int64:
			buf = appendInt(buf, &word, a.Value(i))
		case *array.Int32:
			buf = appendInt(buf, &word, int64(a.Value(i)))
		case *array.Float64:
			buf = appendFloat(buf, &word, a.Value(i))
		case *array.Float32:
			buf = appendFloat(buf, &word, float64(a.Value(i)))
		case *array.Boolean:
			if a.Value(i) {
				buf = append(buf, tagBool, 1)
			} else {
				buf = append(buf, tagBool, 0)
			}
		case *array.Timestamp:
			binary.LittleEndian.PutUint64(word[:], uint64(a.Value(i)))
			buf = append(buf, tagTime)
			buf = append(buf, word[:]...)
		case *array.String:
			buf = appendString(buf, &word, a.Value(i))
		default:
			buf = appendString(buf, &word, col.ValueStr(i))
		}
	}
	return buf
}

func appendInt(buf []byte, word *[8]byte, v int64) []byte {
	binary.LittleEndian.PutUint64(word[:], uint64(v))
	buf = append(buf, tagInt)
	return append(buf, word[:]...)
}

func appendFloat(buf []byte, word *[8]byte, f float64) []byte {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return appendInt(buf, word, int64(f))
	}
	if math.IsNaN(f) {
		f = math.NaN()
	}
	binary.LittleEndian.PutUint64(word[:], math.Float64bits(f))
	buf = append(buf, tagFloat)
	return append(buf, word[:]...)
}

func appendString(buf []byte, word *[8]byte, s string) []byte {
	binary.LittleEndian.PutUint64(word[:], uint64(len(s)))
	buf = append(buf, tagStr)
	buf = append(buf, word[:]...)
	return append(buf, s...)
}

// keyIndex maps row keys to the row numbers that produced them. Keys are
// bucketed by xxhash and compared byte-wise inside a bucket.
type keyIndex struct {
	buckets map[uint64][]int
	entries []keyEntry
	buf     []byte
}

type keyEntry struct {
	key  string
	rows []int
}

func newKeyIndex(estimatedSize int) *keyIndex {
	return &keyIndex{buckets: make(map[uint64][]int, estimatedSize)}
}

func (ix *keyIndex) find(hash uint64) int {
	for _, e := range ix.buckets[hash] {
		if ix.entries[e].key == string(ix.buf) {
			return e
		}
	}
	return -1
}

// add records row under the key of cols at row i and reports whether the key
// was seen for the first time
func (ix *keyIndex) add(cols []arrow.Array, i, row int) bool {
	ix.buf = rowKey(cols, i, ix.buf)
	hash := xxhash.Sum64(ix.buf)
	if e := ix.find(hash); e >= 0 {
		ix.entries[e].rows = append(ix.entries[e].rows, row)
		return false
	}
	ix.buckets[hash] = append(ix.buckets[hash], len(ix.entries))
	ix.entries = append(ix.entries, keyEntry{key: string(ix.buf), rows: []int{row}})
	return true
}

// lookup returns the rows stored under the key of cols at row i
func (ix *keyIndex) lookup(cols []arrow.Array, i int) []int {
	ix.buf = rowKey(cols, i, ix.buf)
	if e := ix.find(xxhash.Sum64(ix.buf)); e >= 0 {
		return ix.entries[e].rows
	}
	return nil
}

// indexRows builds a keyIndex over the first n rows of cols
func indexRows(cols []arrow.Array, n int) *keyIndex {
	ix := newKeyIndex(n)
	for i := 0; i < n; i++ {
		ix.add(cols, i, i)
	}
	return ix
}

// groupRows partitions the rows of cols by key. Groups are ordered by their
// first row; rows inside a group keep their original order.
func groupRows(cols []arrow.Array, n int) [][]int {
	ix := indexRows(cols, n)
	groups := make([][]int, len(ix.entries))
	for g, e := range ix.entries {
		groups[g] = e.rows
	}
	return groups
}
