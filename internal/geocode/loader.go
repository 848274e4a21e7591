package geocode

import (
	"fmt"
	"os"
	"strings"

	"osmesa/internal/logger"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// codeKeys：地区编码属性名，按优先级尝试
var codeKeys = []string{"code", "iso_a2", "ISO_A2", "iso3166_1", "ISO3166-1"}

// 文档注释：从 GeoJSON FeatureCollection 加载边界索引
// 背景：边界数据通常来自 Natural Earth 等公开数据集；仅保留 Polygon/MultiPolygon 要素。
// 约束：缺少编码属性或几何类型不符的要素被跳过并计数；没有任何有效要素时返回 ErrNoBoundaries。
func LoadIndex(path string) (*Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("geocode: read %s: %w", path, err)
	}
	return ParseIndex(b)
}

// ParseIndex：从内存中的 GeoJSON 构建索引
func ParseIndex(b []byte) (*Index, error) {
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("geocode: parse boundaries: %w", err)
	}
	var regions []Region
	skipped := 0
	for _, f := range fc.Features {
		code := featureCode(f)
		if code == "" {
			skipped++
			continue
		}
		var polys []orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polys = []orb.Polygon{g}
		case orb.MultiPolygon:
			polys = g
		default:
			skipped++
			continue
		}
		regions = append(regions, Region{Code: code, Polys: polys})
	}
	logger.L().Info("geocode_boundaries_loaded", "regions", len(regions), "skipped", skipped)
	return NewIndex(regions)
}

func featureCode(f *geojson.Feature) string {
	for _, k := range codeKeys {
		if v := strings.TrimSpace(f.Properties.MustString(k, "")); v != "" && v != "-99" {
			return v
		}
	}
	return ""
}
