package hwlicense

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeErrorBody(w http.ResponseWriter, status int, detail ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorBody{Error: detail})
}

func TestOnlineClient_Validate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/validate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ValidateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ABC", req.Key)
		assert.Equal(t, "M1", req.HWID)

		days := 20
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ValidateResponse{
			Status:        "valid",
			Message:       "License valid. Days remaining: 20",
			KeyType:       KeyTypeTrial,
			DaysRemaining: &days,
		})
	}))
	defer server.Close()

	client := NewOnlineClient(server.URL + "/")
	resp, err := client.Validate(context.Background(), ValidateRequest{Key: "ABC", HWID: "M1"})
	require.NoError(t, err)
	assert.Equal(t, "valid", resp.Status)
	assert.Equal(t, KeyTypeTrial, resp.KeyType)
	require.NotNil(t, resp.DaysRemaining)
	assert.Equal(t, 20, *resp.DaysRemaining)
}

func TestOnlineClient_Validate_UsesConfiguredFingerprint(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ValidateRequest
		json.NewDecoder(r.Body).Decode(&req)
		got = req.HWID
		json.NewEncoder(w).Encode(ValidateResponse{Status: "valid", KeyType: KeyTypePermanent})
	}))
	defer server.Close()

	client := NewOnlineClient(server.URL, WithFingerprint("fp-123"))
	assert.Equal(t, "fp-123", client.Fingerprint())
	_, err := client.Validate(context.Background(), ValidateRequest{Key: "ABC"})
	require.NoError(t, err)
	assert.Equal(t, "fp-123", got)
}

func TestOnlineClient_Validate_GeneratesFingerprint(t *testing.T) {
	t.Setenv(FingerprintEnv, "generated-on-this-host")

	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ValidateRequest
		json.NewDecoder(r.Body).Decode(&req)
		got = req.HWID
		json.NewEncoder(w).Encode(ValidateResponse{Status: "valid", KeyType: KeyTypePermanent})
	}))
	defer server.Close()

	_, err := NewOnlineClient(server.URL).Validate(context.Background(), ValidateRequest{Key: "ABC"})
	require.NoError(t, err)
	assert.Equal(t, "generated-on-this-host", got)
}

func TestOnlineClient_Validate_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusNotFound, ErrorDetail{Code: CodeNotFound, Message: "License key not found."})
	}))
	defer server.Close()

	_, err := NewOnlineClient(server.URL).Validate(context.Background(), ValidateRequest{Key: "NOPE", HWID: "M1"})
	assert.ErrorIs(t, err, ErrLicenseNotFound)

	// Mapped errors should also expose ServerError details via errors.As
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, CodeNotFound, se.Code)
}

func TestOnlineClient_Validate_HardwareMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusForbidden, ErrorDetail{Code: CodeHWIDMismatch, Message: "This key is bound to another machine."})
	}))
	defer server.Close()

	_, err := NewOnlineClient(server.URL).Validate(context.Background(), ValidateRequest{Key: "ABC", HWID: "M2"})
	assert.ErrorIs(t, err, ErrHardwareMismatch)
	assert.NotErrorIs(t, err, ErrLicenseExpired)
}

func TestOnlineClient_Validate_Expired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusForbidden, ErrorDetail{
			Code:           CodeExpired,
			Message:        "License expired on 2024-01-31.",
			ExpirationDate: "2024-01-31",
		})
	}))
	defer server.Close()

	_, err := NewOnlineClient(server.URL).Validate(context.Background(), ValidateRequest{Key: "ABC", HWID: "M1"})
	assert.ErrorIs(t, err, ErrLicenseExpired)

	var ee *ExpiredError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), ee.ExpirationDate)

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestOnlineClient_Validate_ExpiredWithoutDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusForbidden, ErrorDetail{Code: CodeExpired, Message: "expired"})
	}))
	defer server.Close()

	_, err := NewOnlineClient(server.URL).Validate(context.Background(), ValidateRequest{Key: "ABC", HWID: "M1"})
	assert.ErrorIs(t, err, ErrLicenseExpired)
	var ee *ExpiredError
	assert.False(t, errors.As(err, &ee))
}

func TestOnlineClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewOnlineClient(server.URL, WithTimeout(50*time.Millisecond))
	_, err := client.Validate(context.Background(), ValidateRequest{Key: "ABC", HWID: "M1"})
	assert.Error(t, err)
}

func TestOnlineClient_CustomUserAgent(t *testing.T) {
	var receivedUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedUA = r.Header.Get("User-Agent")
		json.NewEncoder(w).Encode(ValidateResponse{Status: "valid"})
	}))
	defer server.Close()

	client := NewOnlineClient(server.URL, WithUserAgent("my-app/2.0"))
	client.Validate(context.Background(), ValidateRequest{Key: "ABC", HWID: "M1"})

	assert.Equal(t, "my-app/2.0", receivedUA)
}

func TestOnlineClient_UnavailableIsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusServiceUnavailable, ErrorDetail{Code: CodeUnavailable, Message: "record store unavailable"})
	}))
	defer server.Close()

	_, err := NewOnlineClient(server.URL).Validate(context.Background(), ValidateRequest{Key: "ABC", HWID: "M1"})
	require.Error(t, err)
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, CodeUnavailable, se.Code)
	assert.NotErrorIs(t, err, ErrLicenseNotFound)
}

func TestOnlineClient_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	_, err := NewOnlineClient(server.URL).Validate(context.Background(), ValidateRequest{Key: "ABC", HWID: "M1"})
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "UNKNOWN", se.Code)
	assert.Equal(t, "bad gateway", se.Message)
}
