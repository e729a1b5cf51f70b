package request

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"net/textproto"
	"sort"
	"strings"
)

// CacheKey 由请求的规范化哈希与结果形态标签拼接而成：
//
//	<sha256(canonical request)>:<shape>
//
// 相同 (请求, 形态) 必然得到相同键；同一请求的不同形态互不冲突。
func CacheKey(d Descriptor, shape string) (string, error) {
	shape = strings.TrimSpace(shape)
	if shape == "" {
		return "", fmt.Errorf("%w: shape tag required", ErrInvalidRequest)
	}
	sum, err := Fingerprint(d)
	if err != nil {
		return "", err
	}
	return sum + ":" + shape, nil
}

// Fingerprint 返回请求规范形式的十六进制 sha256。
func Fingerprint(d Descriptor) (string, error) {
	target, err := d.ParsedURL()
	if err != nil {
		return "", err
	}

	h := sha256.New()
	writeField(h, []byte(d.NormalizedMethod()))
	writeField(h, []byte(target.String()))

	raw := make([]string, 0, len(d.Header))
	for name := range d.Header {
		raw = append(raw, name)
	}
	sort.Strings(raw)

	names := make([]string, 0, len(raw))
	values := make(map[string][]string, len(raw))
	for _, name := range raw {
		canonical := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name))
		if _, seen := values[canonical]; !seen {
			names = append(names, canonical)
		}
		values[canonical] = append(values[canonical], d.Header[name]...)
	}
	sort.Strings(names)
	writeCount(h, len(names))
	for _, name := range names {
		writeField(h, []byte(name))
		writeCount(h, len(values[name]))
		for _, v := range values[name] {
			writeField(h, []byte(strings.TrimSpace(v)))
		}
	}
	writeField(h, d.Body)

	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeField 以长度前缀写入，避免字段拼接产生歧义。
func writeField(h hash.Hash, b []byte) {
	writeCount(h, len(b))
	h.Write(b)
}

func writeCount(h hash.Hash, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}
