// pkg/types/common.go
package types

// Hash 代表链节点的哈希值 (小写 Hex String)
// 这是一个“值对象”，应当是不可变的。
// 长度取决于哈希策略：SHA-256/BLAKE3 为 64，xxhash 为 16
type Hash string

func (h Hash) String() string { return string(h) }

func (h Hash) IsZero() bool { return h == "" }

// IsValid 只做格式检查：偶数长度、非空、纯 Hex
func (h Hash) IsValid() bool {
	if len(h) == 0 || len(h)%2 != 0 {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Short 返回用于展示的前 8 位
func (h Hash) Short() string {
	if len(h) <= 8 {
		return string(h)
	}
	return string(h[:8])
}

type HashPrefix string

func (p HashPrefix) String() string { return string(p) }
