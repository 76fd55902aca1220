package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	"github.com/antonbeski0/Predflux/internal/repository"
	"github.com/antonbeski0/Predflux/internal/service/ratelimit"
	"github.com/antonbeski0/Predflux/internal/services/forecast"
	"github.com/antonbeski0/Predflux/internal/usecase"
	"github.com/antonbeski0/Predflux/pkg/kvstore"
)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) (*echo.Echo, *repository.ModelStore) {
	t.Helper()
	store := repository.NewModelStore(kvstore.NewMemoryStore())

	single := forecast.DefaultSingleConfig()
	single.Units, single.Epochs = 4, 2
	multi := forecast.DefaultMultiConfig()
	multi.Units, multi.HeadUnits, multi.Epochs = 4, 4, 2

	runner := usecase.NewForecastRunner(
		forecast.NewSingleAssetEngine(store, forecast.WithConfig(single)),
		forecast.NewMultiAssetEngine(store, forecast.WithConfig(multi)),
		nil, nil, nil, nil,
	)
	e := echo.New()
	NewForecastEchoHandler(nil, runner, limiter, store).RegisterRoutes(e)
	return e, store
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func sine(n int) string {
	vals := make([]string, n)
	for i := range vals {
		vals[i] = fmt.Sprintf("%.4f", 100+10*math.Sin(float64(i)*0.4))
	}
	return "[" + strings.Join(vals, ",") + "]"
}

func TestSingleForecast(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodPost, "/api/forecast/single",
		`{"values":`+sine(30)+`,"lookback":8,"horizon":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.SingleForecastResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Len(t, res.Predictions, 5)
	assert.Len(t, res.Prices, 5)
	assert.Equal(t, models.SingleAssetModel, res.Model)
}

func TestSingleForecastValidation(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec, _ := do(t, e, http.MethodPost, "/api/forecast/single", `{"horizon":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/forecast/single", `{"values":[5,5,5,5,5,5,5,5,5,5]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/forecast/single", `{"values":[1,2,3],"lookback":8}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMultiForecast(t *testing.T) {
	e, _ := newTestServer(t, nil)

	body := `{"lookback":4,"horizon":3,"assets":[` +
		`{"name":"A","values":` + sine(20) + `,"sentiment":[1,-1,2]},` +
		`{"name":"B","values":` + sine(20) + `}]}`
	rec, env := do(t, e, http.MethodPost, "/api/forecast/multi", body)
	require.Equal(t, http.StatusOK, rec.Code, string(env.Data))

	var res models.MultiForecastResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Assets, 2)
	assert.Len(t, res.Assets[0].Predictions, 3)
	assert.InDelta(t, 2.0/3.0, res.Assets[0].AverageSentiment, 1e-9)
}

func TestSymbolsWithoutSourceFails(t *testing.T) {
	e, _ := newTestServer(t, nil)
	rec, _ := do(t, e, http.MethodPost, "/api/forecast/symbols", `{"symbols":["AAPL"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestForecastRateLimited(t *testing.T) {
	e, _ := newTestServer(t, ratelimit.New(0, 1))

	rec, _ := do(t, e, http.MethodPost, "/api/forecast/single", `{"values":[5,5,5]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/forecast/single", `{"values":[5,5,5]}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/engines", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestModelEndpoint(t *testing.T) {
	e, store := newTestServer(t, nil)

	rec, _ := do(t, e, http.MethodGet, "/api/models/"+models.SingleAssetModel, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/models/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/forecast/single", `{"values":`+sine(30)+`,"lookback":8,"horizon":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, e, http.MethodGet, "/api/models/"+models.SingleAssetModel, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info ModelInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, "memory", info.Source)
	assert.Equal(t, 8, info.Architecture.Lookback)
	assert.Equal(t, 2, info.Epochs)
	assert.NotEmpty(t, info.Layers)

	a, err := store.MustLoad(context.Background(), models.SingleAssetModel)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Epochs)
}

func TestEnginesAndHealth(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodGet, "/api/engines", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st []forecast.Status
	require.NoError(t, json.Unmarshal(env.Data, &st))
	require.Len(t, st, 2)
	assert.Equal(t, models.StateIdle, st[0].State)

	rec, _ = do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("x: %w", models.ErrInvalidSeries), http.StatusBadRequest},
		{fmt.Errorf("x: %w", models.ErrInvalidOptions), http.StatusBadRequest},
		{fmt.Errorf("x: %w", models.ErrDegenerateSeries), http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", models.ErrInsufficientData), http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", models.ErrDatasetAlignment), http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", models.ErrModelMissing), http.StatusNotFound},
		{fmt.Errorf("x: %w", models.ErrPersistence), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, mapError(tc.err).Status, tc.err.Error())
	}
}
