package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBroadbandClient_Fetch(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantNil    bool
		wantErr    string
		wantTotal  int64
		wantUpload int64
	}{
		{
			name:   "parses quoted octet values",
			status: http.StatusOK,
			body: `[{
				"curretUsage": {"downloadOctets": "900", "uploadOctets": "124", "totalOctets": "1024"},
				"balance": {"totalOctets": "2048"}
			}]`,
			wantTotal:  1024,
			wantUpload: 124,
		},
		{
			name:   "parses bare numeric octet values",
			status: http.StatusOK,
			body: `[{
				"curretUsage": {"downloadOctets": 900, "uploadOctets": 124, "totalOctets": 1024},
				"balance": {"totalOctets": 2048}
			}]`,
			wantTotal:  1024,
			wantUpload: 124,
		},
		{
			name:    "empty result array skips silently",
			status:  http.StatusOK,
			body:    `[]`,
			wantNil: true,
		},
		{
			name:    "non-200 is an error",
			status:  http.StatusBadGateway,
			body:    `upstream broke`,
			wantErr: "portal returned status 502",
		},
		{
			name:    "malformed body is an error",
			status:  http.StatusOK,
			body:    `{not-json`,
			wantErr: "failed to parse portal response",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.NoError(t, r.ParseMultipartForm(1<<20))
				require.Equal(t, "CN165948", r.FormValue("subscriberCode"))

				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewBroadbandClient(srv.URL, "CN165948")
			reading, err := client.Fetch(context.Background())

			if tc.wantErr != "" {
				require.Error(t, err)
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)

			if tc.wantNil {
				require.Nil(t, reading)
				return
			}

			require.NotNil(t, reading)
			require.True(t, reading.Total.Equal(decimal.NewFromInt(tc.wantTotal)))
			require.True(t, reading.Upload.Equal(decimal.NewFromInt(tc.wantUpload)))
			require.True(t, reading.Balance.Equal(decimal.NewFromInt(2048)))
		})
	}
}

func TestRegistryClient_Fetch(t *testing.T) {
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		switch r.URL.Path {
		case "/downloads/point/last-day/vibranium-cli":
			w.Write([]byte(`{"downloads": 12, "package": "vibranium-cli"}`))
		case "/downloads/point/last-week/vibranium-cli":
			w.Write([]byte(`{"downloads": 80, "package": "vibranium-cli"}`))
		case "/downloads/point/last-month/vibranium-cli":
			w.Write([]byte(`{"downloads": 340, "package": "vibranium-cli"}`))
		case "/downloads/point/last-year/vibranium-cli":
			// No downloads recorded for the period: registry answers 404.
			http.NotFound(w, r)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewRegistryClient(srv.URL)
	counts, err := client.Fetch(context.Background(), "vibranium-cli")

	require.NoError(t, err)
	require.Equal(t, int64(4), calls.Load())
	require.Equal(t, int64(12), counts.LastDay)
	require.Equal(t, int64(80), counts.LastWeek)
	require.Equal(t, int64(340), counts.LastMonth)
	require.Equal(t, int64(0), counts.LastYear)
}

func TestRegistryClient_Fetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	client := NewRegistryClient(srv.URL)
	_, err := client.Fetch(context.Background(), "vibranium-cli")

	require.Error(t, err)
	require.ErrorContains(t, err, "registry request for vibranium-cli failed")
}
