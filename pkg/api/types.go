package api

import (
	"github.com/ssargent/tablekv/pkg/codec"
	"github.com/ssargent/tablekv/pkg/storage"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string
}

// TableStore is the part of storage.Store the API serves.
type TableStore interface {
	Lookup(name string) (*storage.Table, bool)
	Tables() []*storage.Table
	Decode(kv codec.KeyValue) (*storage.Table, codec.Row, error)
}

var _ TableStore = (*storage.Store)(nil)

// ColumnInfo describes a table column.
type ColumnInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Key   bool   `json:"key,omitempty"`
	Index int    `json:"index"`
}

// TableInfo describes a configured table.
type TableInfo struct {
	Name          string       `json:"name"`
	ID            int64        `json:"id"`
	SchemaVersion int32        `json:"schema_version"`
	CodecVersion  uint8        `json:"codec_version"`
	Columns       []ColumnInfo `json:"columns"`
}

// RowsResponse is the result of a table scan. Each row holds one value per
// entry of Columns.
type RowsResponse struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Count   int      `json:"count"`
	More    bool     `json:"more,omitempty"`
}

// DecodeRequest carries a raw record as hex strings.
type DecodeRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DecodeResponse is a decoded raw record.
type DecodeResponse struct {
	Table        string         `json:"table"`
	CodecVersion uint8          `json:"codec_version"`
	Row          map[string]any `json:"row"`
}
