package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/rowcodec/pkg/codec"
	"github.com/ssargent/rowcodec/pkg/equality"
	"github.com/ssargent/rowcodec/pkg/errs"
	"github.com/ssargent/rowcodec/pkg/logging"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/rowjson"
	"github.com/ssargent/rowcodec/pkg/storage"
)

// maxBodySize bounds request bodies.
const maxBodySize = 16 << 20

// Server holds the API server state
type Server struct {
	store    RowStore
	strategy equality.RecordEquality
	config   ServerConfig
	metrics  *Metrics
	bytes    *codec.ByteArrayCoder
	logger   *logging.Logger
}

// NewServer creates a new API server. An empty config.Strategy selects the
// deep strategy.
func NewServer(store RowStore, config ServerConfig, metrics *Metrics) (*Server, error) {
	name := config.Strategy
	if name == "" {
		name = equality.Deep.Name()
	}
	strategy, err := equality.ByName(name)
	if err != nil {
		return nil, err
	}
	return &Server{
		store:    store,
		strategy: strategy,
		config:   config,
		metrics:  metrics,
		bytes:    codec.NewByteArrayCoder(),
		logger:   logging.New("api"),
	}, nil
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleSchema godoc
//
//	@Summary		Row schema
//	@Description	Get the schema of the rows served by this API
//	@Tags			rows
//	@Produce		json
//	@Success		200	{object}	SchemaResponse
//	@Router			/schema [get]
//	@Security		ApiKeyAuth
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	sc := s.store.Schema()
	resp := SchemaResponse{Schema: sc.String()}
	for _, f := range sc.Fields() {
		resp.Fields = append(resp.Fields, FieldResponse{Name: f.Name, Type: f.Type.String()})
	}
	sendSuccess(w, resp)
}

// handleEncodeBytes godoc
//
//	@Summary		Encode a byte payload
//	@Description	Length-prefix a payload with the opaque-bytes encoding
//	@Tags			bytes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BytesRequest	true	"Payload (base64)"
//	@Success		200		{object}	EncodedResponse
//	@Failure		400		{object}	APIResponse
//	@Router			/bytes/encode [post]
//	@Security		ApiKeyAuth
func (s *Server) handleEncodeBytes(w http.ResponseWriter, r *http.Request) {
	var req BytesRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	// A missing or null payload is absent, not empty.
	var value *row.ByteArray
	if req.Data != nil {
		value = row.WrapByteArray(req.Data)
	}

	encoded, err := codec.Marshal[*row.ByteArray](s.bytes, value)
	s.metrics.RecordCodecOperation("encode", err == nil, len(encoded))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sendSuccess(w, EncodedResponse{Encoded: encoded, Size: len(encoded)})
}

// handleDecodeBytes godoc
//
//	@Summary		Decode a byte payload
//	@Description	Decode exactly one opaque-bytes encoding
//	@Tags			bytes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EncodedRequest	true	"Encoding (base64)"
//	@Success		200		{object}	DecodedResponse
//	@Failure		400		{object}	APIResponse
//	@Router			/bytes/decode [post]
//	@Security		ApiKeyAuth
func (s *Server) handleDecodeBytes(w http.ResponseWriter, r *http.Request) {
	var req EncodedRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	value, err := codec.Unmarshal[*row.ByteArray](s.bytes, req.Encoded)
	s.metrics.RecordCodecOperation("decode", err == nil, len(req.Encoded))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sendSuccess(w, DecodedResponse{Data: value.Bytes(), Size: value.Len()})
}

// handleCreateRow godoc
//
//	@Summary		Create a row
//	@Description	Store a row given as a JSON object keyed by field name
//	@Tags			rows
//	@Accept			json
//	@Produce		json
//	@Param			body	body		object	true	"Row"
//	@Success		201		{object}	RowResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Router			/rows [post]
//	@Security		ApiKeyAuth
func (s *Server) handleCreateRow(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw, raw, err := s.readRow(r)
	if err != nil {
		s.metrics.RecordDBOperation("create", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := s.store.Create(rw)
	s.metrics.RecordDBOperation("create", err == nil, time.Since(start))
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendCreated(w, RowResponse{ID: id.String(), Row: raw})
}

// handleGetRow godoc
//
//	@Summary		Get a row
//	@Tags			rows
//	@Produce		json
//	@Param			id	path		string	true	"Row id"
//	@Success		200	{object}	RowResponse
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Router			/rows/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetRow(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.metrics.RecordDBOperation("read", false, time.Since(start))
		sendError(w, "Invalid row id", http.StatusBadRequest)
		return
	}

	rw, err := s.store.Read(id)
	s.metrics.RecordDBOperation("read", err == nil, time.Since(start))
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	raw, err := rowjson.Encode(rw)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to render row: %v", err), http.StatusInternalServerError)
		return
	}
	sendSuccess(w, RowResponse{ID: id.String(), Row: raw})
}

// handleUpdateRow godoc
//
//	@Summary		Replace a row
//	@Tags			rows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string	true	"Row id"
//	@Param			body	body		object	true	"Row"
//	@Success		200		{object}	RowResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Router			/rows/{id} [put]
//	@Security		ApiKeyAuth
func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.metrics.RecordDBOperation("update", false, time.Since(start))
		sendError(w, "Invalid row id", http.StatusBadRequest)
		return
	}
	rw, raw, err := s.readRow(r)
	if err != nil {
		s.metrics.RecordDBOperation("update", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.store.Update(id, rw)
	s.metrics.RecordDBOperation("update", err == nil, time.Since(start))
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendSuccess(w, RowResponse{ID: id.String(), Row: raw})
}

// handleDeleteRow godoc
//
//	@Summary		Delete a row
//	@Tags			rows
//	@Produce		json
//	@Param			id	path		string	true	"Row id"
//	@Success		200	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Router			/rows/{id} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.metrics.RecordDBOperation("delete", false, time.Since(start))
		sendError(w, "Invalid row id", http.StatusBadRequest)
		return
	}

	err = s.store.Delete(id)
	s.metrics.RecordDBOperation("delete", err == nil, time.Since(start))
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendSuccess(w, map[string]string{"status": "deleted"})
}

// handleCompareRows godoc
//
//	@Summary		Compare two rows
//	@Description	Each side is a row object or the id of a stored row
//	@Tags			rows
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CompareRequest	true	"Rows to compare"
//	@Success		200		{object}	CompareResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Router			/rows/compare [post]
//	@Security		ApiKeyAuth
func (s *Server) handleCompareRows(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	strategy := s.strategy
	if req.Strategy != "" {
		var err error
		if strategy, err = equality.ByName(req.Strategy); err != nil {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	left, err := s.resolveRow(req.Left)
	if err != nil {
		s.sendCompareError(w, "left", err)
		return
	}
	right, err := s.resolveRow(req.Right)
	if err != nil {
		s.sendCompareError(w, "right", err)
		return
	}

	equal, err := safeEqual(strategy, left, right)
	if err != nil {
		sendError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.metrics.RecordComparison(strategy.Name(), equal)
	sendSuccess(w, CompareResponse{Equal: equal, Strategy: strategy.Name()})
}

// readRow parses the request body as a row and returns it with its
// canonical JSON rendering.
func (s *Server) readRow(r *http.Request) (*row.Row, json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read body: %w", err)
	}
	rw, err := rowjson.Decode(s.store.Schema(), body)
	if err != nil {
		return nil, nil, err
	}
	raw, err := rowjson.Encode(rw)
	if err != nil {
		return nil, nil, err
	}
	return rw, raw, nil
}

// resolveRow turns one side of a compare request into a row. A JSON string
// is the id of a stored row; anything else is a row object.
func (s *Server) resolveRow(raw json.RawMessage) (*row.Row, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("missing row")
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
		id, err := ksuid.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("invalid row id %q", text)
		}
		return s.store.Read(id)
	}
	return rowjson.Decode(s.store.Schema(), raw)
}

func (s *Server) sendCompareError(w http.ResponseWriter, side string, err error) {
	if errors.Is(err, storage.ErrRowNotFound) {
		sendError(w, fmt.Sprintf("%s: %v", side, err), http.StatusNotFound)
		return
	}
	sendError(w, fmt.Sprintf("%s: %v", side, err), http.StatusBadRequest)
}

func (s *Server) sendStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrRowNotFound):
		sendError(w, "Row not found", http.StatusNotFound)
	case errors.Is(err, errs.ErrEncoding):
		sendError(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Errorf("storage: %v", err)
		sendError(w, fmt.Sprintf("Storage failure: %v", err), http.StatusInternalServerError)
	}
}

// safeEqual converts an invariant panic from a strategy into an error.
func safeEqual(strategy equality.RecordEquality, a, b *row.Row) (equal bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			e, ok := p.(error)
			if !ok || !errors.Is(e, errs.ErrInvariant) {
				panic(p)
			}
			err = e
		}
	}()
	return strategy.Equal(a, b), nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// updateRowCount refreshes the stored row gauge.
func (s *Server) updateRowCount() {
	n, err := s.store.Count()
	if err != nil {
		s.logger.Warnf("count rows: %v", err)
		return
	}
	s.metrics.UpdateRowCount(n)
}
