package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/ssargent/tablekv/pkg/codec"
	"github.com/ssargent/tablekv/pkg/storage"
)

const (
	defaultScanLimit = 100
	maxScanLimit     = 10000
	maxBodyBytes     = 1 << 20
)

var errLimitReached = errors.New("scan limit reached")

// Server holds the API server state
type Server struct {
	store   TableStore
	config  ServerConfig
	metrics *Metrics
	logger  hclog.Logger
}

// NewServer creates a new API server
func NewServer(store TableStore, config ServerConfig, metrics *Metrics, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{
		store:   store,
		config:  config,
		metrics: metrics,
		logger:  logger.Named("api"),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables := s.store.Tables()
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name() < tables[j].Name() })

	infos := make([]TableInfo, 0, len(tables))
	for _, t := range tables {
		infos = append(infos, tableInfo(t))
	}
	sendSuccess(w, infos)
}

func (s *Server) handleScanRows(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.table(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	limit := defaultScanLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			sendError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxScanLimit)
	}
	keysOnly := q.Get("keys_only") == "true"

	slots, names, logical, err := selectColumns(tbl, q.Get("columns"), keysOnly)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := RowsResponse{Table: tbl.Name(), Columns: names, Rows: [][]any{}}
	emit := func(row codec.Row) error {
		if len(resp.Rows) == limit {
			resp.More = true
			return errLimitReached
		}
		out := make([]any, len(slots))
		for i, slot := range slots {
			out[i] = row[slot]
		}
		resp.Rows = append(resp.Rows, out)
		return nil
	}

	if keysOnly {
		err = tbl.ScanKeys(r.Context(), emit)
	} else {
		err = tbl.Scan(r.Context(), logical, emit)
	}
	if err != nil && !errors.Is(err, errLimitReached) {
		s.metrics.RecordTableOperation(tbl.Name(), "scan", false)
		s.logger.Error("scan failed", "table", tbl.Name(), "error", err)
		sendError(w, fmt.Sprintf("Failed to scan table: %v", err), http.StatusInternalServerError)
		return
	}

	resp.Count = len(resp.Rows)
	s.metrics.RecordTableOperation(tbl.Name(), "scan", true)
	s.metrics.RecordRowsServed(tbl.Name(), resp.Count)
	sendSuccess(w, resp)
}

func (s *Server) handleInsertRow(w http.ResponseWriter, r *http.Request) {
	tbl, ok := s.table(w, r)
	if !ok {
		return
	}

	var body map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}

	row, err := tbl.RowFromMap(body)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	written, err := tbl.Insert(row)
	if err != nil {
		s.metrics.RecordTableOperation(tbl.Name(), "insert", false)
		status := http.StatusInternalServerError
		if errors.Is(err, codec.ErrTypeMismatch) {
			status = http.StatusBadRequest
		}
		sendError(w, fmt.Sprintf("Failed to insert row: %v", err), status)
		return
	}

	s.metrics.RecordTableOperation(tbl.Name(), "insert", true)
	sendSuccess(w, rowMap(tbl.ColumnNames(), written))
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}
	key, err := hex.DecodeString(strings.TrimPrefix(req.Key, "0x"))
	if err != nil {
		sendError(w, "key must be hex encoded", http.StatusBadRequest)
		return
	}
	value, err := hex.DecodeString(strings.TrimPrefix(req.Value, "0x"))
	if err != nil {
		sendError(w, "value must be hex encoded", http.StatusBadRequest)
		return
	}

	tbl, row, err := s.store.Decode(codec.KeyValue{Key: key, Value: value})
	if tbl != nil {
		s.metrics.RecordTableOperation(tbl.Name(), "decode", err == nil)
	}
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to decode record: %v", err), decodeStatus(err))
		return
	}

	version, _ := codec.PeekCodecVersion(key)
	sendSuccess(w, DecodeResponse{
		Table:        tbl.Name(),
		CodecVersion: version,
		Row:          rowMap(tbl.ColumnNames(), row),
	})
}

func (s *Server) table(w http.ResponseWriter, r *http.Request) (*storage.Table, bool) {
	name := chi.URLParam(r, "table")
	tbl, ok := s.store.Lookup(name)
	if !ok {
		sendError(w, fmt.Sprintf("Table %q not found", name), http.StatusNotFound)
		return nil, false
	}
	return tbl, true
}

func decodeStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, codec.ErrCorruptRecord),
		errors.Is(err, codec.ErrUnsupportedCodecVersion),
		errors.Is(err, codec.ErrUnsupportedSchemaVersion),
		errors.Is(err, codec.ErrIdentityMismatch):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func tableInfo(t *storage.Table) TableInfo {
	cfg := t.Decoder().Config()
	info := TableInfo{
		Name:          t.Name(),
		ID:            cfg.CommonID,
		SchemaVersion: cfg.SchemaVersion,
		CodecVersion:  cfg.CodecVersion,
		Columns:       []ColumnInfo{},
	}
	for _, col := range t.Decoder().Columns() {
		if col == nil {
			continue
		}
		info.Columns = append(info.Columns, ColumnInfo{
			Name:  col.Name(),
			Type:  col.Type().String(),
			Key:   col.IsKey(),
			Index: col.Index(),
		})
	}
	return info
}

// selectColumns resolves the columns parameter into row slots, names and
// the logical indexes to scan. logical is nil when every column is wanted.
func selectColumns(t *storage.Table, param string, keysOnly bool) (slots []int, names []string, logical []int, err error) {
	all := t.ColumnNames()
	if param == "" {
		for _, col := range t.Decoder().Columns() {
			if col == nil || (keysOnly && !col.IsKey()) {
				continue
			}
			slots = append(slots, col.Index())
		}
		sort.Ints(slots)
		for _, slot := range slots {
			names = append(names, all[slot])
		}
		return slots, names, nil, nil
	}

	for _, name := range strings.Split(param, ",") {
		names = append(names, strings.TrimSpace(name))
	}
	if logical, err = t.Logical(names); err != nil {
		return nil, nil, nil, err
	}
	for i, idx := range logical {
		if !keysOnly {
			slots = append(slots, i)
			continue
		}
		if !t.IsKey(idx) {
			return nil, nil, nil, fmt.Errorf("column %q is not a key column", names[i])
		}
		// Key scans fill the row by logical index.
		slots = append(slots, idx)
	}
	return slots, names, logical, nil
}

// rowMap keys a row by column name, leaving out dropped columns.
func rowMap(names []string, row codec.Row) map[string]any {
	m := make(map[string]any, len(row))
	for i, v := range row {
		if i < len(names) && names[i] != "" {
			m[names[i]] = v
		}
	}
	return m
}
