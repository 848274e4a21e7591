// 包 history：按时间点重建路径与多面关系的历史几何
package history

import (
	"errors"
	"time"

	"osmesa/internal/osm"

	"github.com/paulmach/orb"
)

var (
	ErrMissingMember = errors.New("history: member geometry unresolved")
	ErrUnclosedRing  = errors.New("history: ring cannot be closed")
	ErrNoOuterRing   = errors.New("history: no outer ring")
)

// 文档注释：几何快照
// 背景：每个依赖变化的时刻产生一条快照，[Updated, ValidUntil) 为该几何可见的区间。
// 约束：Geometry 在删除版本（Visible=false）与失效快照（Valid=false）中为 nil；
// MinorVersion 与 ValidUntil 由 AssignMinorVersions 重写，其余字段创建后不变。
type Snapshot struct {
	ID           int64
	Geometry     orb.Geometry
	Tags         osm.Tags
	Changeset    int64
	Updated      time.Time
	ValidUntil   *time.Time
	Visible      bool
	Valid        bool
	MajorVersion int64
	MinorVersion int64
}

// Bound：快照外包框，供下游切片写出按空间分区
func (s *Snapshot) Bound() (orb.Bound, bool) {
	if s.Geometry == nil {
		return orb.Bound{}, false
	}
	return s.Geometry.Bound(), true
}

// Omission：被丢弃的关系版本（非致命，供运维排查）
type Omission struct {
	Kind    string    `json:"kind"`
	ID      int64     `json:"id"`
	Version int64     `json:"version"`
	At      time.Time `json:"at"`
	Reason  string    `json:"reason"`
}

// Trigger：需要在 At 时刻重新组装几何的 (changeset, id, version)
type Trigger struct {
	Changeset int64
	ID        int64
	Version   int64
	At        time.Time
}

type versionKey struct{ id, version int64 }
