package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecode_BodyLimit(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/maps", strings.NewReader(body))

	var req types.CreateMapRequest
	err := decode(w, r, &req)
	require.ErrorIs(t, err, engine.ErrValidation)
	assert.Contains(t, err.Error(), "body exceeds")

	r = httptest.NewRequest(http.MethodPost, "/maps", strings.NewReader(`{"name":"de_nuke","tag":"de_nuke"}`))
	require.NoError(t, decode(w, r, &req))
	assert.Equal(t, "de_nuke", req.Tag)
}

func TestWriteError_HidesUnknownErrors(t *testing.T) {
	a := &API{log: zap.NewNop()}
	r := httptest.NewRequest(http.MethodGet, "/matches", nil)

	w := httptest.NewRecorder()
	a.writeError(w, r, errors.New("dial tcp 10.0.0.1:5432: refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"internal","message":"internal server error"}`, w.Body.String())

	w = httptest.NewRecorder()
	a.writeError(w, r, engine.ErrInvalidTurn)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"invalid_turn"`)
}
