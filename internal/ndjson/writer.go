package ndjson

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"osmesa/internal/history"

	"github.com/paulmach/orb/geojson"
)

// feature：每行一个 GeoJSON Feature；墓碑与失效快照的 geometry 为 null
type feature struct {
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties properties        `json:"properties"`
}

type properties struct {
	ID           int64             `json:"id"`
	Changeset    int64             `json:"changeset"`
	Updated      time.Time         `json:"updated"`
	ValidUntil   *time.Time        `json:"valid_until"`
	Visible      bool              `json:"visible"`
	Valid        bool              `json:"valid"`
	MajorVersion int64             `json:"major_version"`
	MinorVersion int64             `json:"minor_version"`
	Tags         map[string]string `json:"tags,omitempty"`
	Regions      []string          `json:"regions,omitempty"`
}

// Writer：缓冲写出器；Close 负责刷新并关闭底层文件
type Writer struct {
	bw  *bufio.Writer
	c   io.Closer
	enc *json.Encoder
	n   int
}

func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriterSize(w, 256*1024)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	w2 := &Writer{bw: bw, enc: enc}
	if c, ok := w.(io.Closer); ok {
		w2.c = c
	}
	return w2
}

// Create：创建文件（含父目录）
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return NewWriter(f), nil
}

// WriteSnapshot：写出一条快照及其地区编码
func (w *Writer) WriteSnapshot(s *history.Snapshot, regions []string) error {
	f := feature{
		Type: "Feature",
		Properties: properties{
			ID:           s.ID,
			Changeset:    s.Changeset,
			Updated:      s.Updated,
			ValidUntil:   s.ValidUntil,
			Visible:      s.Visible,
			Valid:        s.Valid,
			MajorVersion: s.MajorVersion,
			MinorVersion: s.MinorVersion,
			Tags:         s.Tags,
			Regions:      regions,
		},
	}
	if s.Geometry != nil {
		f.Geometry = geojson.NewGeometry(s.Geometry)
	}
	if err := w.enc.Encode(&f); err != nil {
		return err
	}
	w.n++
	return nil
}

// WriteOmission：写出一条被丢弃的关系版本
func (w *Writer) WriteOmission(o history.Omission) error {
	if err := w.enc.Encode(&o); err != nil {
		return err
	}
	w.n++
	return nil
}

// Count：已写出的行数
func (w *Writer) Count() int { return w.n }

func (w *Writer) Close() error {
	err := w.bw.Flush()
	if w.c != nil {
		if cerr := w.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
