package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coolbeans/ddiharvest/pkg/cmm"
	"github.com/coolbeans/ddiharvest/pkg/config"
	"github.com/coolbeans/ddiharvest/pkg/harvest"
	"github.com/coolbeans/ddiharvest/pkg/index"
	"github.com/coolbeans/ddiharvest/pkg/source"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptySource struct{}

func (emptySource) List(context.Context, time.Time) ([]source.RecordRef, error) {
	return nil, nil
}

func (emptySource) Fetch(context.Context, source.RecordRef) ([]byte, error) {
	return nil, nil
}

func newTestServer(t *testing.T, tokens *TokenService) (*Server, *index.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := index.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := config.NewRepositoryRegistry()
	require.NoError(t, registry.Register(&config.Repository{
		Code:           "FSD",
		Name:           "Finnish Social Science Data Archive",
		URL:            "https://services.fsd.tuni.fi/v0/oai",
		MetadataPrefix: "oai_ddi25",
	}))

	runner := harvest.NewRunner(config.DefaultSettings(), registry, nil, store)
	runner.SourceFactory = func(*config.Repository, config.Settings) (source.Source, error) {
		return emptySource{}, nil
	}
	return New(context.Background(), runner, tokens), store
}

func do(t *testing.T, handler http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndRepositories(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	router := srv.Router()

	rec := do(t, router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = do(t, router, http.MethodGet, "/repositories", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Total int                  `json:"total"`
		Items []*config.Repository `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "FSD", body.Items[0].Code)
}

func TestGetStudy(t *testing.T) {
	srv, store := newTestServer(t, nil)
	router := srv.Router()

	record := cmm.StudyOfLanguage{ID: "abc", Code: "FSD", StudyNumber: "FSD0001", Active: true, TitleStudy: "Youth Survey"}
	require.NoError(t, store.Upsert(context.Background(), "en", []cmm.StudyOfLanguage{record}))

	rec := do(t, router, http.MethodGet, "/studies/en/abc", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got cmm.StudyOfLanguage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Youth Survey", got.TitleStudy)

	rec = do(t, router, http.MethodGet, "/studies/fi/abc", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerHarvest(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	router := srv.Router()

	rec := do(t, router, http.MethodPost, "/harvests", map[string]any{"full": true}, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	srv.Wait()

	rec = do(t, router, http.MethodGet, "/harvests/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report harvest.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, harvest.StatusCompleted, report.Status)
	assert.True(t, report.Full)

	rec = do(t, router, http.MethodGet, "/harvests", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID)

	rec = do(t, router, http.MethodGet, "/harvests/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/harvests", map[string]any{"repositories": []string{"NOPE"}}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerInProgress(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	srv.mu.Lock()
	srv.active = "busy"
	srv.mu.Unlock()

	rec := do(t, srv.Router(), http.MethodPost, "/harvests", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTriggerAuthentication(t *testing.T) {
	tokens := NewTokenService("test-secret", "ddiharvest")
	srv, _ := newTestServer(t, &tokens)
	router := srv.Router()

	t.Run("missing_token", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/harvests", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong_secret", func(t *testing.T) {
		other := NewTokenService("other-secret", "ddiharvest")
		token, _, err := other.Sign("ops")
		require.NoError(t, err)
		rec := do(t, router, http.MethodPost, "/harvests", nil, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong_issuer", func(t *testing.T) {
		other := NewTokenService("test-secret", "someone-else")
		token, _, err := other.Sign("ops")
		require.NoError(t, err)
		rec := do(t, router, http.MethodPost, "/harvests", nil, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid_token", func(t *testing.T) {
		token, exp, err := tokens.Sign("ops")
		require.NoError(t, err)
		assert.True(t, exp.After(time.Now()))

		rec := do(t, router, http.MethodPost, "/harvests", nil, token)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		srv.Wait()
	})

	t.Run("reads_are_open", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/harvests", nil, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestTokenService(t *testing.T) {
	tokens := NewTokenService("test-secret", "ddiharvest")
	token, _, err := tokens.Sign("ops")
	require.NoError(t, err)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, ScopeHarvest, claims.Scope)

	tokens.Duration = -time.Minute
	expired, _, err := tokens.Sign("ops")
	require.NoError(t, err)
	_, err = tokens.Parse(expired)
	assert.Error(t, err)
}
