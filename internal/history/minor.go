package history

// 文档注释：分配次版本号并重算细粒度有效期
// 背景：同一主版本内可能因依赖变化产生多条快照；按 updated 排序后赋零基序号，
// 并在整个 id 的时间线上以下一条快照的 updated 作为 validUntil，得到无缝、不重叠的区间。
// 约束：同一 id 中 updated 完全相同的快照只保留 (主版本, changeset) 最大的一条，
// 以保证次版本号随 updated 严格递增；输出按 (id, updated) 排序；纯函数，可重复执行。
func AssignMinorVersions(snaps []Snapshot) []Snapshot {
	in := make([]Snapshot, len(snaps))
	copy(in, snaps)
	sortSnapshots(in)

	out := make([]Snapshot, 0, len(in))
	for i := range in {
		if i+1 < len(in) && in[i+1].ID == in[i].ID && in[i+1].Updated.Equal(in[i].Updated) {
			// 排序保证后一条的 (主版本, changeset) 不小于当前条
			continue
		}
		out = append(out, in[i])
	}

	type majorKey struct{ id, major int64 }
	ordinal := make(map[majorKey]int64)
	for i := range out {
		k := majorKey{out[i].ID, out[i].MajorVersion}
		out[i].MinorVersion = ordinal[k]
		ordinal[k]++
		if i+1 < len(out) && out[i+1].ID == out[i].ID {
			next := out[i+1].Updated
			out[i].ValidUntil = &next
		} else {
			out[i].ValidUntil = nil
		}
	}
	return out
}
