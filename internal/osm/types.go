// 包 osm：三类版本化实体（点/路径/关系）的最小数据结构，作为历史重建的输入模型
package osm

import (
	"strings"
	"time"
)

// Tags：实体标签键值
type Tags map[string]string

// Clone：复制标签，避免多个版本共享同一个 map
func (t Tags) Clone() Tags {
	if t == nil {
		return nil
	}
	out := make(Tags, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// 文档注释：版本公共字段
// 背景：点/路径/关系每次编辑产生一个版本；同一 id 内 version 与 timestamp 同序。
// 约束：ValidUntil 为 nil 表示当前仍有效；Visible=false 表示该版本为删除。
type Info struct {
	ID         int64      `json:"id"`
	Version    int64      `json:"version"`
	Changeset  int64      `json:"changeset"`
	Timestamp  time.Time  `json:"timestamp"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	Visible    bool       `json:"visible"`
	Tags       Tags       `json:"tags,omitempty"`
	UID        int64      `json:"uid"`
	User       string     `json:"user"`
}

// Meta：返回公共字段指针，供泛型的有效期计算使用
func (i *Info) Meta() *Info { return i }

// ValidAt：判断时刻 t 是否落在 [Timestamp, ValidUntil) 内
func (i *Info) ValidAt(t time.Time) bool {
	if t.Before(i.Timestamp) {
		return false
	}
	return i.ValidUntil == nil || t.Before(*i.ValidUntil)
}

// Node：点实体；删除版本的坐标为 nil
type Node struct {
	Info
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// HasPosition：坐标是否存在
func (n *Node) HasPosition() bool { return n.Visible && n.Lat != nil && n.Lon != nil }

// Way：路径实体，按顺序引用点 id；首尾相同表示闭合环
type Way struct {
	Info
	NodeRefs []int64 `json:"nds"`
}

// Closed：首尾引用同一个点
func (w *Way) Closed() bool {
	n := len(w.NodeRefs)
	return n > 1 && w.NodeRefs[0] == w.NodeRefs[n-1]
}

// ElementType：成员类型
type ElementType int

const (
	TypeNode ElementType = iota
	TypeWay
	TypeRelation
)

func (t ElementType) String() string {
	switch t {
	case TypeNode:
		return "node"
	case TypeWay:
		return "way"
	case TypeRelation:
		return "relation"
	}
	return "unknown"
}

// ParseElementType：兼容 "node"/"way"/"relation" 与缩写 "n"/"w"/"r"
func ParseElementType(s string) (ElementType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "node", "n":
		return TypeNode, true
	case "way", "w":
		return TypeWay, true
	case "relation", "r":
		return TypeRelation, true
	}
	return TypeNode, false
}

// MarshalText / UnmarshalText：成员类型在 JSON 中以文本表示
func (t ElementType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ElementType) UnmarshalText(b []byte) error {
	v, ok := ParseElementType(string(b))
	if !ok {
		return &UnknownTypeError{Value: string(b)}
	}
	*t = v
	return nil
}

// UnknownTypeError：无法识别的成员类型
type UnknownTypeError struct{ Value string }

func (e *UnknownTypeError) Error() string { return "osm: unknown element type " + e.Value }

// Member：关系成员
type Member struct {
	Type ElementType `json:"type"`
	Ref  int64       `json:"ref"`
	Role string      `json:"role"`
}

// Relation：关系实体
type Relation struct {
	Info
	Members []Member `json:"members"`
}
