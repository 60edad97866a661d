package api

import (
	"bytes"
	"encoding/binary"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/safedump/pkg/safetensors"
)

const sampleHeader = `{"__metadata__":{"format":"pt"},` +
	`"vectors":{"dtype":"F32","shape":[2,2],"data_offsets":[0,16]},` +
	`"docids":{"dtype":"I64","shape":[2],"data_offsets":[16,32]}}`

func container(header string, data []byte) []byte {
	out := binary.LittleEndian.AppendUint64(nil, uint64(len(header)))
	out = append(out, header...)
	return append(out, data...)
}

func sampleData() []byte {
	var data []byte
	for _, v := range []float32{1, 2, 3, 4.5} {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}
	for _, v := range []int64{10, -20} {
		data = binary.LittleEndian.AppendUint64(data, uint64(v))
	}
	return data
}

func newTestEcho(cfg Config) *echo.Echo {
	e := echo.New()
	NewServer(cfg).Register(e)
	return e
}

func doPost(t *testing.T, e *echo.Echo, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEOctetStream)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{Version: "test"})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, rec.Body.String())
}

func TestDecodeAllTensors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	rec := doPost(t, e, "/v1/decode", container(sampleHeader, sampleData()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DecodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ID, "dec_"))
	assert.Equal(t, "decode", resp.Object)
	require.Len(t, resp.Tensors, 2)
	assert.Equal(t, "vectors", resp.Tensors[0].Name)
	assert.Equal(t, []int{2, 2}, resp.Tensors[0].Shape)
	assert.Equal(t, []any{[]any{1.0, 2.0}, []any{3.0, 4.5}}, resp.Tensors[0].Data)
	assert.Equal(t, "I64", resp.Tensors[1].DType)
	assert.Equal(t, []any{10.0, -20.0}, resp.Tensors[1].Data)
}

func TestDecodeSelectedTensor(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	rec := doPost(t, e, "/v1/decode?tensor=docids", container(sampleHeader, sampleData()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DecodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tensors, 1)
	assert.Equal(t, "docids", resp.Tensors[0].Name)

	rec = doPost(t, e, "/v1/decode?tensor=missing", container(sampleHeader, sampleData()))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "tensor_not_found", decodeError(t, rec).Code)

	rec = doPost(t, e, "/v1/decode?tensor=", container(sampleHeader, sampleData()))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_error", decodeError(t, rec).Type)
}

func TestInspect(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	rec := doPost(t, e, "/v1/inspect", container(sampleHeader, sampleData()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp InspectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ID, "insp_"))
	assert.Equal(t, uint64(len(sampleHeader)), resp.HeaderLength)
	assert.JSONEq(t, `{"format":"pt"}`, string(resp.Metadata))
	require.Len(t, resp.Tensors, 2)
	assert.Equal(t, 4, resp.Tensors[0].Elements)
	assert.NotEmpty(t, resp.Tensors[1].Checksum)
}

func TestDecodeErrorCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   []byte
		status int
		code   string
	}{
		{"short buffer", []byte{1, 2, 3, 4, 5}, http.StatusBadRequest, "truncated_buffer"},
		{"huge header", binary.LittleEndian.AppendUint64(nil, 1<<40), http.StatusBadRequest, "header_too_large"},
		{"not json", container("nope", nil), http.StatusBadRequest, "malformed_metadata"},
		{"bad utf8", container("{\"\xff\":1}", nil), http.StatusBadRequest, "invalid_metadata_encoding"},
		{"unsupported dtype", container(`{"h":{"dtype":"BF16","shape":[1],"data_offsets":[0,2]}}`, []byte{0, 0}), http.StatusBadRequest, "unsupported_dtype"},
		{"out of range", container(`{"w":{"dtype":"F32","shape":[4],"data_offsets":[0,16]}}`, make([]byte, 4)), http.StatusBadRequest, "offset_out_of_range"},
		{"shape mismatch", container(`{"w":{"dtype":"F32","shape":[3],"data_offsets":[0,8]}}`, make([]byte, 8)), http.StatusBadRequest, "shape_mismatch"},
		{"non finite", container(`{"w":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`, binary.LittleEndian.AppendUint32(nil, 0x7fc00000)), http.StatusUnprocessableEntity, "non_finite"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newTestEcho(Config{})
			rec := doPost(t, e, "/v1/decode", tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			body := decodeError(t, rec)
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{MaxBodyBytes: 16})
	rec := doPost(t, e, "/v1/inspect", container(sampleHeader, sampleData()))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", decodeError(t, rec).Code)
}

func TestCustomDecoderLimit(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{Decoder: safetensors.NewDecoder(safetensors.WithMaxHeaderBytes(8))})
	rec := doPost(t, e, "/v1/inspect", container(sampleHeader, sampleData()))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "header_too_large", decodeError(t, rec).Code)
}
