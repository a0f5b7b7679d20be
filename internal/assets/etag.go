package assets

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ContentTag 计算正文的 128 位 BLAKE3 摘要，并按 HTTP ETag 语法用双引号包裹。
// 同一份字节永远得到同一个 tag，正文变化则 tag 必然变化。
func ContentTag(body []byte) string {
	h := blake3.New()
	_, _ = h.Write(body)

	var sum [16]byte
	_, _ = h.Digest().Read(sum[:])
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
