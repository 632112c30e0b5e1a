package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/schemascope/internal/database"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/inspector"
)

// TableResponse is the body of GET /tables/{table}.
type TableResponse struct {
	Name        string                 `json:"name"`
	PrimaryKey  string                 `json:"primary_key"`
	Columns     []inspector.Column     `json:"columns"`
	ForeignKeys []inspector.ForeignKey `json:"foreign_keys"`
}

// RowsResponse is the body of GET /tables/{table}/rows.
type RowsResponse struct {
	Table  string           `json:"table"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Rows   []map[string]any `json:"rows"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok", "driver": string(s.db.Driver())})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.ins.Tables(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(tables))
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	table, ok := s.requireTable(w, r)
	if !ok {
		return
	}

	cols, err := s.ins.ColumnInfo(r.Context(), table)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pk, err := s.ins.PrimaryKey(r.Context(), table)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fks, err := s.ins.ForeignKeys(r.Context(), table)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, TableResponse{
		Name:        table,
		PrimaryKey:  pk,
		Columns:     nonNil(cols),
		ForeignKeys: nonNil(fks),
	})
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	table, ok := s.requireTable(w, r)
	if !ok {
		return
	}
	cols, err := s.ins.ColumnInfo(r.Context(), table)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(cols))
}

func (s *Server) handleColumn(w http.ResponseWriter, r *http.Request) {
	col, err := s.ins.Column(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "column"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, col)
}

func (s *Server) handlePrimaryKey(w http.ResponseWriter, r *http.Request) {
	table, ok := s.requireTable(w, r)
	if !ok {
		return
	}
	pk, err := s.ins.PrimaryKey(r.Context(), table)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"table": table, "primary_key": pk})
}

func (s *Server) handleForeignKeys(w http.ResponseWriter, r *http.Request) {
	table, ok := s.requireTable(w, r)
	if !ok {
		return
	}
	fks, err := s.ins.ForeignKeys(r.Context(), table)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(fks))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := inspector.BuildSchemaOverview(r.Context(), s.ins)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, ov)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	d, err := inspector.Describe(r.Context(), s.ins)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d.Driver = string(s.db.Driver())
	d.Schema = s.opts.Schema
	jsonResponse(w, http.StatusOK, d)
}

// handleRows previews table rows. Query parameters: limit, offset,
// columns (comma separated), order_by and desc=true.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	table, ok := s.requireTable(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), s.opts.MaxRows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit = min(limit, s.opts.MaxRows)
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	b := database.Select(table, database.DialectFor(s.db.Driver())).Limit(limit).Offset(offset)

	if raw := q.Get("columns"); raw != "" {
		cols := strings.Split(raw, ",")
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
			if err := s.requireColumn(r, table, cols[i]); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		b.Columns(cols...)
	}
	if order := q.Get("order_by"); order != "" {
		if err := s.requireColumn(r, table, order); err != nil {
			s.writeError(w, r, err)
			return
		}
		dir := database.Asc
		if q.Get("desc") == "true" {
			dir = database.Desc
		}
		b.OrderBy(order, dir)
	}

	sql, args, err := b.Build()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err := s.db.Query(r.Context(), sql, args...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := database.ScanRows(rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, RowsResponse{Table: table, Limit: limit, Offset: offset, Rows: data})
}

// requireTable resolves {table} and answers 404 when it is not a user table.
func (s *Server) requireTable(w http.ResponseWriter, r *http.Request) (string, bool) {
	table := chi.URLParam(r, "table")
	ok, err := s.ins.TableExists(r.Context(), table)
	if err != nil {
		s.writeError(w, r, err)
		return "", false
	}
	if !ok {
		errorResponse(w, http.StatusNotFound, fmt.Sprintf("table %q not found", table))
		return "", false
	}
	return table, true
}

func (s *Server) requireColumn(r *http.Request, table, column string) error {
	ok, err := s.ins.ColumnExists(r.Context(), table, column)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Newf(errs.ErrKindInvalidInput, "unknown column %q", column)
	}
	return nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.Newf(errs.ErrKindInvalidInput, "invalid non-negative integer %q", raw)
	}
	return n, nil
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
