package handler_test

import (
	"context"
	"crypto/ecdsa"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/catalog"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/circuit"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/handler"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/parser"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/service"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/verifier"
	"github.com/tddproof/tddproof-backend/pkg/auth"
	"github.com/tddproof/tddproof-backend/pkg/config"
	"github.com/tddproof/tddproof-backend/pkg/logger"
	"github.com/tddproof/tddproof-backend/pkg/metrics"
	"github.com/tddproof/tddproof-backend/pkg/testutil"
)

type envelope struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

type option func(*handler.RouterConfig)

func newRouter(t *testing.T, opts ...option) (http.Handler, *ecdsa.PrivateKey) {
	t.Helper()
	key := testutil.NewSigningKey(t)
	p := parser.New(verifier.New(verifier.NewStaticKeyStore(&key.PublicKey), logger.Nop()), logger.Nop())
	svc := service.New(p, circuit.NewBuilder(p, circuit.DefaultConfig()), nil, nil, logger.Nop())

	cfg := handler.RouterConfig{
		ServiceName: "tdd-service",
		Documents:   handler.NewDocumentHandler(svc, logger.Nop()),
		Catalog:     handler.NewCatalogHandler(),
		Logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return handler.NewRouter(cfg), key
}

func TestParse(t *testing.T) {
	router, key := newRouter(t)
	raw := testutil.NewPayload(testutil.WithKey(key)).Build(t)

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/documents/parse", map[string]string{"raw": raw}))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body envelope
	testutil.ParseJSONBody(t, rr, &body)
	assert.True(t, body.Success)
	assert.Equal(t, true, body.Data["signature_valid"])
	assert.Equal(t, []any{"10", "24", "26"}, body.Data["field_order"])

	fields := body.Data["fields"].(map[string]any)
	postal := fields["24"].(map[string]any)
	assert.Equal(t, "75001", postal["value"])
}

func TestParse_Errors(t *testing.T) {
	router, _ := newRouter(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"missing raw", map[string]string{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"empty raw", map[string]string{"raw": ""}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown field", map[string]string{"raw": "DC03", "payload": "x"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"not a 2D-DOC", map[string]string{"raw": "hello world"}, http.StatusUnprocessableEntity, "PARSE_FAILED"},
		{"unsupported version", map[string]string{"raw": "DC09" + "0000000000000000000000"}, http.StatusUnprocessableEntity, "PARSE_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/documents/parse", tt.body))
			testutil.AssertStatus(t, rr, tt.wantStatus)

			var body envelope
			testutil.ParseJSONBody(t, rr, &body)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.wantCode == "PARSE_FAILED" {
				assert.Equal(t, "Failed to parse 2D-DOC", body.Error.Message)
			}
		})
	}
}

func TestBuildCircuitInput(t *testing.T) {
	router, key := newRouter(t)
	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/circuit-inputs", map[string]string{
		"id_raw":    testutil.IdentityPayload(key).Build(t),
		"taxes_raw": testutil.TaxPayload(key, "45000", "2023").Build(t),
	})

	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body envelope
	testutil.ParseJSONBody(t, rr, &body)
	for _, key := range []string{"tdd_id", "tdd_taxes", "id_first_name", "id_last_name", "taxes_first_name", "taxes_last_name", "taxes_base_revenue", "taxes_year"} {
		assert.Contains(t, body.Data, key)
	}
}

func TestBuildCircuitInput_Errors(t *testing.T) {
	router, key := newRouter(t)

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/circuit-inputs", map[string]string{
		"id_raw": testutil.IdentityPayload(key).Build(t),
	}))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	var body envelope
	testutil.ParseJSONBody(t, rr, &body)
	require.NotNil(t, body.Error)
	assert.Equal(t, "this field is required", body.Error.Details["taxes_raw"])

	rr = testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/circuit-inputs", map[string]string{
		"id_raw":    testutil.IdentityPayload(key).Build(t),
		"taxes_raw": "garbage",
	}))
	testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	body = envelope{}
	testutil.ParseJSONBody(t, rr, &body)
	require.NotNil(t, body.Error)
	assert.Equal(t, "PARSE_FAILED", body.Error.Code)
	assert.Equal(t, "taxes", body.Error.Details["document"])
}

func TestCatalog(t *testing.T) {
	router, _ := newRouter(t)

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/api/v1/catalog/fields", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var list envelope
	testutil.ParseJSONBody(t, rr, &list)
	require.NotNil(t, list.Meta)
	assert.EqualValues(t, len(catalog.Fields()), list.Meta.Total)

	rr = testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/api/v1/catalog/document-types", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	tests := []struct {
		path       string
		wantStatus int
		wantName   string
	}{
		{"/api/v1/catalog/document-types/ID/01", http.StatusOK, "Carte d'identité"},
		{"/api/v1/catalog/document-types/ZZ/01", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, tt.path, nil))
			testutil.AssertStatus(t, rr, tt.wantStatus)
			if tt.wantName != "" {
				var body envelope
				testutil.ParseJSONBody(t, rr, &body)
				assert.Equal(t, tt.wantName, body.Data["name"])
				assert.Equal(t, "IDENTITE", body.Data["category"])
			}
		})
	}
}

func TestAuthentication(t *testing.T) {
	tokens := auth.NewManager(&config.JWTConfig{Enabled: true, Secret: "router-secret", AccessExpiry: time.Minute, Issuer: "tddproof"})
	router, _ := newRouter(t, func(c *handler.RouterConfig) { c.Tokens = tokens })

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/api/v1/catalog/fields", nil))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	rr = testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/health", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	tests := []struct {
		name       string
		scopes     []string
		wantStatus int
	}{
		{"exact scope", []string{"catalog.read"}, http.StatusOK},
		{"resource wildcard", []string{"catalog.*"}, http.StatusOK},
		{"full access", []string{"*"}, http.StatusOK},
		{"other scope", []string{"documents.parse"}, http.StatusForbidden},
		{"no scopes", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := tokens.Issue("scanner", 0, tt.scopes...)
			require.NoError(t, err)

			req := testutil.WithBearerToken(testutil.NewHTTPRequest(http.MethodGet, "/api/v1/catalog/fields", nil), tok.AccessToken)
			rr := testutil.ExecuteRequest(router, req)
			testutil.AssertStatus(t, rr, tt.wantStatus)
			if tt.wantStatus == http.StatusForbidden {
				testutil.AssertBodyContains(t, rr, "FORBIDDEN")
			}
		})
	}
}

func TestHealth(t *testing.T) {
	up := func(context.Context) map[string]string { return map[string]string{"status": "up"} }
	down := func(context.Context) map[string]string { return map[string]string{"status": "down", "error": "connection closed"} }

	tests := []struct {
		name       string
		checks     map[string]handler.HealthCheck
		wantStatus int
		want       string
	}{
		{"no dependencies", nil, http.StatusOK, "healthy"},
		{"all up", map[string]handler.HealthCheck{"database": up, "rabbitmq": up}, http.StatusOK, "healthy"},
		{"broker down", map[string]handler.HealthCheck{"database": up, "rabbitmq": down}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newRouter(t, func(c *handler.RouterConfig) { c.Health = tt.checks })

			rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/health", nil))
			testutil.AssertStatus(t, rr, tt.wantStatus)

			var body envelope
			testutil.ParseJSONBody(t, rr, &body)
			assert.Equal(t, tt.want, body.Data["status"])
			assert.Equal(t, "tdd-service", body.Data["service"])
			for name := range tt.checks {
				assert.Contains(t, body.Data, name)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	router, _ := newRouter(t, func(c *handler.RouterConfig) { c.Metrics = m })

	testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/api/v1/catalog/document-types/ID/01", nil))

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/metrics", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, `route="/api/v1/catalog/document-types/{perimeter}/{docType}"`)
}

func TestMetricsDisabled(t *testing.T) {
	router, _ := newRouter(t)
	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/metrics", nil))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}
