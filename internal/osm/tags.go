package osm

// 文档注释：面状要素的标签约定
// 背景：闭合路径是否表示面由标签决定；area=yes/no 显式优先，其余依据常见面状键判断。
// 约束：值为 nil 的键表示任意取值均为面；非 nil 时列出的取值被排除（如 natural=coastline）。
var areaKeys = map[string]map[string]bool{
	"aeroway":          nil,
	"amenity":          nil,
	"area:highway":     nil,
	"boundary":         nil,
	"building":         nil,
	"building:part":    nil,
	"craft":            nil,
	"golf":             nil,
	"historic":         nil,
	"indoor":           nil,
	"landuse":          nil,
	"leisure":          {"track": true, "slipway": true},
	"man_made":         {"cutline": true, "embankment": true, "pipeline": true},
	"military":         nil,
	"natural":          {"coastline": true, "cliff": true, "ridge": true, "arete": true, "tree_row": true},
	"office":           nil,
	"place":            nil,
	"power":            {"line": true, "minor_line": true, "cable": true},
	"public_transport": nil,
	"ruins":            nil,
	"shop":             nil,
	"tourism":          nil,
	"water":            nil,
	"waterway":         {"river": true, "stream": true, "canal": true, "drain": true, "ditch": true},
}

// IsArea：标签是否声明该路径为封闭面
func (t Tags) IsArea() bool {
	switch t["area"] {
	case "yes":
		return true
	case "no":
		return false
	}
	for k, v := range t {
		excluded, ok := areaKeys[k]
		if !ok || v == "no" {
			continue
		}
		if excluded == nil || !excluded[v] {
			return true
		}
	}
	return false
}

// IsMultipolygon：关系是否按多面组装（type=multipolygon，及同样以外环/内环描述的 boundary）
func (t Tags) IsMultipolygon() bool {
	switch t["type"] {
	case "multipolygon", "boundary":
		return true
	}
	return false
}
