package sheets

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var testTabs = Tabs{Machines: "DB_Maquinas", Prices: "DB_Precios"}

func TestCSVFetcherReadsBothTabs(t *testing.T) {
	var agents atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == userAgent {
			agents.Add(1)
		}
		if !strings.HasPrefix(r.URL.Path, "/spreadsheets/d/sheet-1/gviz/tq") || r.URL.Query().Get("tqx") != "out:csv" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("sheet") {
		case "DB_Maquinas":
			_, _ = w.Write([]byte("\ufeffModelo,Plantilla,Precio Base\nCM640,CM640.docx,\"17,995\"\n,,\n"))
		case "DB_Precios":
			_, _ = w.Write([]byte("Modelo,Paso,Opcion,Precio\nCM640,Voltage,208V_3PH_60HZ,0\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tables, err := NewCSVFetcher(srv.Client(), srv.URL, "sheet-1", testTabs).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(tables.Machines) != 1 || tables.Machines[0]["Modelo"] != "CM640" {
		t.Fatalf("unexpected machines %+v", tables.Machines)
	}
	if tables.Machines[0]["Precio Base"] != "17,995" {
		t.Fatalf("expected quoted cell kept intact, got %q", tables.Machines[0]["Precio Base"])
	}
	if len(tables.Prices) != 1 || tables.Prices[0]["Opcion"] != "208V_3PH_60HZ" {
		t.Fatalf("unexpected prices %+v", tables.Prices)
	}
	if agents.Load() != 2 {
		t.Fatalf("expected user agent on both requests, got %d", agents.Load())
	}
}

func TestCSVFetcherFailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sheet") == "DB_Precios" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("Modelo\nCM640\n"))
	}))
	defer srv.Close()

	_, err := NewCSVFetcher(srv.Client(), srv.URL, "sheet-1", testTabs).Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestCSVFetcherRejectsOversizedTab(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Modelo,Plantilla,Precio Base\n"))
		row := []byte("CM640,CM640.docx,17995\n")
		for written := 0; written <= maxTabBytes; written += len(row) {
			_, _ = w.Write(row)
		}
	}))
	defer srv.Close()

	_, err := NewCSVFetcher(srv.Client(), srv.URL, "sheet-1", testTabs).Fetch(context.Background())
	if !errors.Is(err, ErrTabTooLarge) {
		t.Fatalf("expected ErrTabTooLarge, got %v", err)
	}
}

func TestReadTabBodyLimit(t *testing.T) {
	body, err := readTabBody(strings.NewReader("abcd"), 4)
	if err != nil || string(body) != "abcd" {
		t.Fatalf("expected body at the limit to pass, got %q %v", body, err)
	}
	if _, err := readTabBody(strings.NewReader("abcde"), 4); !errors.Is(err, ErrTabTooLarge) {
		t.Fatalf("expected ErrTabTooLarge, got %v", err)
	}
}

func TestCSVFetcherHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := NewCSVFetcher(srv.Client(), srv.URL, "s", testTabs).Fetch(ctx); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Fatal("fetch did not stop at the deadline")
	}
}

func serviceAccountJSON(t *testing.T, tokenURL string) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	creds, _ := json.Marshal(map[string]string{
		"type":           "service_account",
		"client_email":   "sync@example.iam.gserviceaccount.com",
		"private_key_id": "kid-1",
		"private_key":    string(pemKey),
		"token_uri":      tokenURL,
	})
	return creds
}

func TestServiceAccountFetcherAuthorizesAndParsesValues(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v4/spreadsheets/sheet-1/values/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "DB_Maquinas") {
			_, _ = w.Write([]byte(`{"values":[["Modelo","Precio Base"],["CM640",17995],["CM860"]]}`))
			return
		}
		_, _ = w.Write([]byte(`{"values":[["Modelo","Paso","Opcion","Precio"],["CM640","Voltage","208V_3PH_60HZ","0"]]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fetcher, err := NewServiceAccountFetcher(serviceAccountJSON(t, srv.URL+"/token"), srv.URL, "sheet-1", testTabs)
	if err != nil {
		t.Fatalf("NewServiceAccountFetcher: %v", err)
	}
	if fetcher.Mode() != ModeServiceAccount {
		t.Fatalf("unexpected mode %s", fetcher.Mode())
	}
	tables, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(tables.Machines) != 2 {
		t.Fatalf("expected 2 machine rows, got %+v", tables.Machines)
	}
	if tables.Machines[0]["Precio Base"] != "17995" {
		t.Fatalf("expected numeric cell as text, got %q", tables.Machines[0]["Precio Base"])
	}
	if tables.Machines[1]["Precio Base"] != "" {
		t.Fatalf("expected short row padded, got %+v", tables.Machines[1])
	}
	if len(tables.Prices) != 1 {
		t.Fatalf("unexpected prices %+v", tables.Prices)
	}
}

func TestNewServiceAccountFetcherRejectsBadCredentials(t *testing.T) {
	if _, err := NewServiceAccountFetcher([]byte(`{}`), "", "s", testTabs); err == nil {
		t.Fatal("expected credential parse error")
	}
}
